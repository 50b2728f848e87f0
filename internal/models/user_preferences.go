package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Default values applied when a preferences row is created lazily.
const (
	DefaultDailyPostLimit = 300
	DefaultFolloweeQuota  = 7
)

// UserPreferences holds a viewer's feed configuration. A row is created
// lazily with defaults on the viewer's first feed request and is never
// deleted in normal operation.
type UserPreferences struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ViewerDID string    `json:"viewer_did" db:"viewer_did" gorm:"uniqueIndex;not null"`

	// DailyPostLimit is the hard ceiling on posts served per UTC day (1-1000).
	DailyPostLimit int `json:"daily_post_limit" db:"daily_post_limit" gorm:"not null;default:300"`

	// DefaultQuota is the per-followee daily quota assigned to new edges
	// when the default calculation has no followee count to spread over (1-50).
	DefaultQuota int `json:"default_quota" db:"default_quota" gorm:"not null;default:7"`

	// FeatureFlags are echoed in feed page metadata.
	FeatureFlags pq.StringArray `json:"feature_flags" db:"feature_flags" gorm:"type:text[]"`

	// FollowsImportedAt tracks the initial followee bootstrap from the AppView.
	FollowsImportedAt *time.Time `json:"follows_imported_at" db:"follows_imported_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the UserPreferences model
func (UserPreferences) TableName() string {
	return "user_preferences"
}
