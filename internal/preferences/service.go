// Package preferences owns per-viewer feed configuration.
package preferences

import (
	"fmt"
	"time"

	"mahoot/internal/apperrors"
	"mahoot/internal/models"

	"gorm.io/gorm"
)

// Bounds for validated setters.
const (
	MinDailyPostLimit = 1
	MaxDailyPostLimit = 1000
	MinDefaultQuota   = 1
	MaxDefaultQuota   = 50
)

// Service handles reading and mutating user preferences
type Service struct {
	db *gorm.DB
}

// NewService creates a new preferences service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetOrCreate returns the viewer's preferences, creating a row with
// defaults (300 posts/day, quota 7) on first access.
func (s *Service) GetOrCreate(viewerDID string) (*models.UserPreferences, error) {
	if viewerDID == "" {
		return nil, apperrors.NewValidation("viewer_did", "must not be empty")
	}

	var prefs models.UserPreferences
	err := s.db.Where(models.UserPreferences{ViewerDID: viewerDID}).
		Attrs(models.UserPreferences{
			DailyPostLimit: models.DefaultDailyPostLimit,
			DefaultQuota:   models.DefaultFolloweeQuota,
		}).
		FirstOrCreate(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", viewerDID, err)
	}

	return &prefs, nil
}

// SetDailyLimit updates the viewer's daily post budget (1-1000).
func (s *Service) SetDailyLimit(viewerDID string, limit int) (*models.UserPreferences, error) {
	if limit < MinDailyPostLimit || limit > MaxDailyPostLimit {
		return nil, apperrors.NewValidation("daily_post_limit", "must be between %d and %d, got %d",
			MinDailyPostLimit, MaxDailyPostLimit, limit)
	}

	prefs, err := s.GetOrCreate(viewerDID)
	if err != nil {
		return nil, err
	}

	prefs.DailyPostLimit = limit
	prefs.UpdatedAt = time.Now()
	if err := s.db.Save(prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to update daily limit: %w", err)
	}

	return prefs, nil
}

// SetDefaultQuota updates the viewer's default followee quota (1-50).
// The lower bound is 1 on purpose: quota 0 exists only on individual
// edges as a mute, never as a default for new edges.
func (s *Service) SetDefaultQuota(viewerDID string, quota int) (*models.UserPreferences, error) {
	if quota < MinDefaultQuota || quota > MaxDefaultQuota {
		return nil, apperrors.NewValidation("default_quota", "must be between %d and %d, got %d",
			MinDefaultQuota, MaxDefaultQuota, quota)
	}

	prefs, err := s.GetOrCreate(viewerDID)
	if err != nil {
		return nil, err
	}

	prefs.DefaultQuota = quota
	prefs.UpdatedAt = time.Now()
	if err := s.db.Save(prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to update default quota: %w", err)
	}

	return prefs, nil
}

// Exists reports whether the viewer has a preferences row, without
// creating one. Ingestion uses it to decide whose follow events matter.
func (s *Service) Exists(viewerDID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.UserPreferences{}).
		Where("viewer_did = ?", viewerDID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check preferences for %s: %w", viewerDID, err)
	}
	return count > 0, nil
}

// MarkFollowsImported stamps the bootstrap time on the viewer's row.
func (s *Service) MarkFollowsImported(viewerDID string) error {
	now := time.Now()
	return s.db.Model(&models.UserPreferences{}).
		Where("viewer_did = ?", viewerDID).
		Update("follows_imported_at", &now).Error
}
