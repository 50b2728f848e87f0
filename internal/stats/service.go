// Package stats derives rolling, daily, and per-author consumption
// statistics from view records and daily rollups.
package stats

import (
	"errors"
	"fmt"
	"time"

	"mahoot/internal/models"
	"mahoot/internal/views"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles consumption statistics
type Service struct {
	db *gorm.DB
}

// NewService creates a new stats service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Rolling30Day summarizes the viewer's last 30 days of consumption.
// Averages run over days with data, not the full window: a viewer who
// was active 2 of 30 days is averaged over 2.
type Rolling30Day struct {
	TotalViewed      int     `json:"total_viewed"`
	AvgPerDay        float64 `json:"avg_per_day"`
	AvgFolloweeCount float64 `json:"avg_followee_count"`
	DaysWithData     int     `json:"days_with_data"`
}

// AuthorStats counts views of one author's posts by one viewer over
// independent windows. Quota is nil when the viewer no longer follows
// the author.
type AuthorStats struct {
	AuthorDID       string `json:"author_did"`
	ViewedToday     int    `json:"viewed_today"`
	ViewedThisWeek  int    `json:"viewed_this_week"`
	ViewedThisMonth int    `json:"viewed_this_month"`
	Quota           *int   `json:"quota"`
}

// Rolling30Day aggregates daily stat rows with date >= today-30d.
func (s *Service) Rolling30Day(viewerDID string) (*Rolling30Day, error) {
	dayStart, _ := views.DayBounds(time.Now().UTC())
	cutoff := dayStart.AddDate(0, 0, -30)

	var rows []models.DailyStat
	err := s.db.Where("viewer_did = ? AND date >= ?", viewerDID, cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats for %s: %w", viewerDID, err)
	}

	result := &Rolling30Day{DaysWithData: len(rows)}
	if len(rows) == 0 {
		return result, nil
	}

	totalFollowees := 0
	for _, row := range rows {
		result.TotalViewed += row.TotalPostsViewed
		totalFollowees += row.FolloweeCount
	}
	result.AvgPerDay = float64(result.TotalViewed) / float64(len(rows))
	result.AvgFolloweeCount = float64(totalFollowees) / float64(len(rows))

	return result, nil
}

// PerAuthorStats counts the viewer's views of one author over today /
// 7 days / 30 days and joins the current edge quota.
func (s *Service) PerAuthorStats(viewerDID, authorDID string) (*AuthorStats, error) {
	dayStart, dayEnd := views.DayBounds(time.Now().UTC())

	today, err := s.countViews(viewerDID, authorDID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	week, err := s.countViews(viewerDID, authorDID, dayEnd.AddDate(0, 0, -7), dayEnd)
	if err != nil {
		return nil, err
	}
	month, err := s.countViews(viewerDID, authorDID, dayEnd.AddDate(0, 0, -30), dayEnd)
	if err != nil {
		return nil, err
	}

	result := &AuthorStats{
		AuthorDID:       authorDID,
		ViewedToday:     today,
		ViewedThisWeek:  week,
		ViewedThisMonth: month,
	}

	var edge models.Followee
	err = s.db.Where("viewer_did = ? AND followee_did = ?", viewerDID, authorDID).First(&edge).Error
	if err == nil {
		quota := edge.Quota
		result.Quota = &quota
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load followee edge: %w", err)
	}

	return result, nil
}

// AllAuthorStats enumerates the distinct authors the viewer has ever
// been served posts from. Muted or never-served followees do not appear.
func (s *Service) AllAuthorStats(viewerDID string) ([]AuthorStats, error) {
	var authors []string
	err := s.db.Model(&models.PostView{}).
		Distinct("author_did").
		Where("viewer_did = ?", viewerDID).
		Order("author_did ASC").
		Pluck("author_did", &authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list viewed authors for %s: %w", viewerDID, err)
	}

	result := make([]AuthorStats, 0, len(authors))
	for _, author := range authors {
		stats, err := s.PerAuthorStats(viewerDID, author)
		if err != nil {
			return nil, err
		}
		result = append(result, *stats)
	}
	return result, nil
}

// IncrementDaily adds delta to the viewer's rollup for the given day,
// creating the row if needed. The increment happens in the upsert itself
// so concurrent feed generations cannot undercount each other.
func (s *Service) IncrementDaily(viewerDID string, day time.Time, delta, followeeCount int) error {
	dayStart, _ := views.DayBounds(day)

	stat := models.DailyStat{
		ID:               uuid.New(),
		ViewerDID:        viewerDID,
		Date:             dayStart,
		TotalPostsViewed: delta,
		FolloweeCount:    followeeCount,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "viewer_did"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_posts_viewed": gorm.Expr("daily_stats.total_posts_viewed + ?", delta),
			"followee_count":     followeeCount,
			"updated_at":         time.Now(),
		}),
	}).Create(&stat).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily stat for %s: %w", viewerDID, err)
	}
	return nil
}

func (s *Service) countViews(viewerDID, authorDID string, from, to time.Time) (int, error) {
	var count int64
	err := s.db.Model(&models.PostView{}).
		Where("viewer_did = ? AND author_did = ? AND viewed_at >= ? AND viewed_at < ?",
			viewerDID, authorDID, from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return int(count), nil
}
