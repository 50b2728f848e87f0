// Package followees owns the viewer -> followee graph and the Mahoot
// number (per-followee daily quota) attached to each edge.
package followees

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"mahoot/internal/apperrors"
	"mahoot/internal/models"
	"mahoot/internal/preferences"

	"gorm.io/gorm"
)

// Quota bounds. Edge quotas reach down to 0 (mute); computed defaults
// are clamped to [1, 20] so every followee keeps at least one guaranteed
// slot and no single followee can claim an outsized share of a page.
const (
	MinQuota           = 0
	MaxQuota           = 50
	MinComputedDefault = 1
	MaxComputedDefault = 20
)

// FollowsPage is one page of a viewer's follows from the AppView.
type FollowsPage struct {
	Follows []Follow
	Cursor  string
}

// Follow is a single followed account as reported by the AppView.
type Follow struct {
	DID    string
	Handle string
}

// FollowsClient fetches a viewer's follows, page by page. Implemented by
// the Bluesky AppView client; mocked in tests.
type FollowsClient interface {
	GetFollows(actor string, limit int, cursor string) (*FollowsPage, error)
}

// Service handles followee edges and default quota maintenance
type Service struct {
	db     *gorm.DB
	prefs  *preferences.Service
	client FollowsClient
}

// NewService creates a new followee registry service. client may be nil
// when AppView bootstrap is not wanted (tests, offline tools).
func NewService(db *gorm.DB, prefs *preferences.Service, client FollowsClient) *Service {
	return &Service{db: db, prefs: prefs, client: client}
}

// List returns the viewer's followee edges in a stable order.
func (s *Service) List(viewerDID string) ([]models.Followee, error) {
	var edges []models.Followee
	err := s.db.Where("viewer_did = ?", viewerDID).
		Order("followee_did ASC").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list followees for %s: %w", viewerDID, err)
	}
	return edges, nil
}

// Count returns the viewer's current followee count.
func (s *Service) Count(viewerDID string) (int, error) {
	var count int64
	err := s.db.Model(&models.Followee{}).
		Where("viewer_did = ?", viewerDID).
		Count(&count).Error
	return int(count), err
}

// IsFollowedAuthor reports whether any viewer follows the given author.
// The ingestion pipeline uses it to decide whether a post is worth
// indexing.
func (s *Service) IsFollowedAuthor(authorDID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Followee{}).
		Where("followee_did = ?", authorDID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// AddOrUpdate upserts a followee edge. A nil quota means system-assigned:
// the edge gets the computed default and stays in the default tier. An
// explicit quota pins the edge so later default recalculations leave it
// alone.
func (s *Service) AddOrUpdate(viewerDID, followeeDID string, quota *int, sourceRef string) (*models.Followee, error) {
	if quota != nil && (*quota < MinQuota || *quota > MaxQuota) {
		return nil, apperrors.NewValidation("quota", "must be between %d and %d, got %d", MinQuota, MaxQuota, *quota)
	}

	var edge models.Followee
	err := s.db.Where("viewer_did = ? AND followee_did = ?", viewerDID, followeeDID).First(&edge).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		assigned := 0
		if quota != nil {
			assigned = *quota
		} else {
			assigned, err = s.CalculateDefaultQuota(viewerDID)
			if err != nil {
				return nil, err
			}
		}

		edge = models.Followee{
			ViewerDID:   viewerDID,
			FolloweeDID: followeeDID,
			Quota:       assigned,
			Pinned:      quota != nil,
			SourceRef:   sourceRef,
		}
		if err := s.db.Create(&edge).Error; err != nil {
			return nil, fmt.Errorf("failed to create followee edge: %w", err)
		}

		// Followee count changed; spread the budget over the new count.
		if err := s.recalculateDefaultTier(viewerDID); err != nil {
			return nil, err
		}

		// Reload so the caller sees the recalculated quota.
		if err := s.db.First(&edge, "id = ?", edge.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to reload followee edge: %w", err)
		}
		return &edge, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to query followee edge: %w", err)
	}

	if quota != nil {
		edge.Quota = *quota
		edge.Pinned = true
	}
	if sourceRef != "" {
		edge.SourceRef = sourceRef
	}
	edge.UpdatedAt = time.Now()
	if err := s.db.Save(&edge).Error; err != nil {
		return nil, fmt.Errorf("failed to update followee edge: %w", err)
	}

	return &edge, nil
}

// SetQuota pins an explicit quota (0-50, 0 = mute) on an existing edge.
func (s *Service) SetQuota(viewerDID, followeeDID string, quota int) (*models.Followee, error) {
	if quota < MinQuota || quota > MaxQuota {
		return nil, apperrors.NewValidation("quota", "must be between %d and %d, got %d", MinQuota, MaxQuota, quota)
	}

	var edge models.Followee
	err := s.db.Where("viewer_did = ? AND followee_did = ?", viewerDID, followeeDID).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query followee edge: %w", err)
	}

	edge.Quota = quota
	edge.Pinned = true
	edge.UpdatedAt = time.Now()
	if err := s.db.Save(&edge).Error; err != nil {
		return nil, fmt.Errorf("failed to update quota: %w", err)
	}

	return &edge, nil
}

// Remove deletes a followee edge. Removing an absent edge is a no-op.
func (s *Service) Remove(viewerDID, followeeDID string) error {
	res := s.db.Where("viewer_did = ? AND followee_did = ?", viewerDID, followeeDID).
		Delete(&models.Followee{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove followee edge: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		return s.recalculateDefaultTier(viewerDID)
	}
	return nil
}

// RemoveBySourceRef deletes the edge created by the given follow record.
// Used by the unfollow event path, where only the record URI is known.
func (s *Service) RemoveBySourceRef(sourceRef string) error {
	if sourceRef == "" {
		return nil
	}

	var edge models.Followee
	err := s.db.Where("source_ref = ?", sourceRef).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to query followee edge by source ref: %w", err)
	}

	if err := s.db.Delete(&edge).Error; err != nil {
		return fmt.Errorf("failed to remove followee edge: %w", err)
	}
	return s.recalculateDefaultTier(edge.ViewerDID)
}

// OnFollowCreated handles a follow event from ingestion. The new edge is
// system-assigned (default tier).
func (s *Service) OnFollowCreated(viewerDID, followeeDID, sourceRef string) error {
	_, err := s.AddOrUpdate(viewerDID, followeeDID, nil, sourceRef)
	return err
}

// OnFollowRemoved handles an unfollow event from ingestion.
func (s *Service) OnFollowRemoved(sourceRef string) error {
	return s.RemoveBySourceRef(sourceRef)
}

// CalculateDefaultQuota computes the quota a new system-assigned edge
// should get, spreading the viewer's daily budget over the current
// followee count.
func (s *Service) CalculateDefaultQuota(viewerDID string) (int, error) {
	prefs, err := s.prefs.GetOrCreate(viewerDID)
	if err != nil {
		return 0, err
	}

	count, err := s.Count(viewerDID)
	if err != nil {
		return 0, fmt.Errorf("failed to count followees: %w", err)
	}

	return DefaultQuotaFor(prefs.DailyPostLimit, prefs.DefaultQuota, count), nil
}

// DefaultQuotaFor spreads dailyLimit evenly over followeeCount with a
// floor of 1 and a ceiling of 20. With no followees to spread over it
// falls back to the viewer's configured default quota.
func DefaultQuotaFor(dailyLimit, defaultQuota, followeeCount int) int {
	if followeeCount <= 0 {
		return defaultQuota
	}

	quota := int(math.Ceil(float64(dailyLimit) / float64(followeeCount)))
	if quota < MinComputedDefault {
		quota = MinComputedDefault
	}
	if quota > MaxComputedDefault {
		quota = MaxComputedDefault
	}
	return quota
}

// recalculateDefaultTier re-spreads the viewer's budget over the new
// followee count. Only unpinned (system-assigned) edges are touched;
// quotas the viewer set explicitly survive.
func (s *Service) recalculateDefaultTier(viewerDID string) error {
	prefs, err := s.prefs.GetOrCreate(viewerDID)
	if err != nil {
		return err
	}

	count, err := s.Count(viewerDID)
	if err != nil {
		return fmt.Errorf("failed to count followees: %w", err)
	}
	if count == 0 {
		return nil
	}

	quota := DefaultQuotaFor(prefs.DailyPostLimit, prefs.DefaultQuota, count)
	err = s.db.Model(&models.Followee{}).
		Where("viewer_did = ? AND pinned = ?", viewerDID, false).
		Updates(map[string]interface{}{"quota": quota, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to recalculate default quotas: %w", err)
	}
	return nil
}

// ImportFollows bootstraps the viewer's followee edges from the AppView.
// All imported edges are system-assigned; individual failures are logged
// and skipped so one bad record cannot abort the import.
func (s *Service) ImportFollows(viewerDID string) error {
	if s.client == nil {
		return fmt.Errorf("no follows client configured")
	}

	log.Printf("🔄 Importing follows for viewer %s", viewerDID)

	limit := 100
	cursor := ""
	imported := 0

	for {
		page, err := s.client.GetFollows(viewerDID, limit, cursor)
		if err != nil {
			return fmt.Errorf("failed to get follows from AppView: %w", err)
		}

		for _, follow := range page.Follows {
			if _, err := s.AddOrUpdate(viewerDID, follow.DID, nil, ""); err != nil {
				log.Printf("❌ Failed to import followee %s: %v", follow.DID, err)
				continue
			}
			imported++
		}

		if page.Cursor == "" || len(page.Follows) < limit {
			break
		}
		cursor = page.Cursor
	}

	if err := s.prefs.MarkFollowsImported(viewerDID); err != nil {
		return fmt.Errorf("failed to mark follows imported: %w", err)
	}

	log.Printf("✅ Imported %d follows for viewer %s", imported, viewerDID)
	return nil
}

// EnsureViewer lazily creates the viewer's preferences and, on first
// sight, bootstraps their followee edges from the AppView.
func (s *Service) EnsureViewer(viewerDID string) (*models.UserPreferences, error) {
	prefs, err := s.prefs.GetOrCreate(viewerDID)
	if err != nil {
		return nil, err
	}

	if prefs.FollowsImportedAt == nil && s.client != nil {
		if err := s.ImportFollows(viewerDID); err != nil {
			// A failed bootstrap should not fail the feed request.
			log.Printf("⚠️  Failed to import follows for %s: %v", viewerDID, err)
		}
	}

	return prefs, nil
}
