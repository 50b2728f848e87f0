package models

import (
	"time"

	"github.com/google/uuid"
)

// PostView records that a viewer has been shown a post. The composite
// unique index on (post_uri, viewer_did) is what makes recording
// idempotent under concurrent writers; quota accounting depends on it.
type PostView struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PostURI   string    `json:"post_uri" db:"post_uri" gorm:"not null;uniqueIndex:idx_post_views_post_viewer"`
	AuthorDID string    `json:"author_did" db:"author_did" gorm:"not null;index"`
	ViewerDID string    `json:"viewer_did" db:"viewer_did" gorm:"not null;uniqueIndex:idx_post_views_post_viewer;index:idx_post_views_viewer_viewed"`
	ViewedAt  time.Time `json:"viewed_at" db:"viewed_at" gorm:"not null;index:idx_post_views_viewer_viewed"`
}

// TableName sets the table name for the PostView model
func (PostView) TableName() string {
	return "post_views"
}
