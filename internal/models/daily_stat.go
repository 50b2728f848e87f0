package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyStat is the per-(viewer, day) consumption rollup. TotalPostsViewed
// is maintained as an atomic increment so concurrent feed generations for
// the same viewer cannot undercount each other.
type DailyStat struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ViewerDID string    `json:"viewer_did" db:"viewer_did" gorm:"not null;uniqueIndex:idx_daily_stats_viewer_date"`
	Date      time.Time `json:"date" db:"date" gorm:"not null;type:date;uniqueIndex:idx_daily_stats_viewer_date"`

	TotalPostsViewed int `json:"total_posts_viewed" db:"total_posts_viewed" gorm:"not null;default:0"`
	FolloweeCount    int `json:"followee_count" db:"followee_count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the DailyStat model
func (DailyStat) TableName() string {
	return "daily_stats"
}
