package models

import (
	"time"

	"github.com/google/uuid"
)

// Followee is one edge of the viewer -> followee graph together with the
// followee's Mahoot number (daily quota). Quota 0 means the followee is
// muted and contributes nothing to allocation.
type Followee struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ViewerDID   string    `json:"viewer_did" db:"viewer_did" gorm:"not null;uniqueIndex:idx_followees_viewer_followee;index"`
	FolloweeDID string    `json:"followee_did" db:"followee_did" gorm:"not null;uniqueIndex:idx_followees_viewer_followee"`

	// Quota is the guaranteed per-day maximum of posts from this followee (0-50).
	Quota int `json:"quota" db:"quota" gorm:"not null;default:7"`

	// Pinned marks a quota the viewer set explicitly. Default-quota
	// recalculation only touches unpinned edges.
	Pinned bool `json:"pinned" db:"pinned" gorm:"not null;default:false"`

	// SourceRef is the AT URI of the follow record that created this edge,
	// used to find the edge on unfollow events. Empty for edges created
	// through the API or the AppView bootstrap.
	SourceRef string `json:"source_ref" db:"source_ref" gorm:"index"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Followee model
func (Followee) TableName() string {
	return "followees"
}

// Muted reports whether this followee is excluded from allocation.
func (f *Followee) Muted() bool {
	return f.Quota == 0
}
