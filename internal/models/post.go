package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is one entry of the append-only post catalog, populated by the
// Jetstream consumer. Rows are deleted only on upstream retraction.
type Post struct {
	ID  uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	URI string    `json:"uri" db:"uri" gorm:"uniqueIndex;not null"` // AT URI of the post
	CID string    `json:"cid" db:"cid"`                             // Content identifier

	AuthorDID string `json:"author_did" db:"author_did" gorm:"not null;index:idx_posts_author_indexed"`

	// PostedAt is the author-asserted creation time from the record.
	PostedAt time.Time `json:"posted_at" db:"posted_at"`

	// IndexedAt is when this post was indexed; feed pages are ordered on it.
	IndexedAt time.Time `json:"indexed_at" db:"indexed_at" gorm:"not null;index:idx_posts_author_indexed,sort:desc"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Post model
func (Post) TableName() string {
	return "posts"
}
