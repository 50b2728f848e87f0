// Package catalog owns the append-only post catalog populated by
// ingestion. Posts are deleted only on upstream retraction.
package catalog

import (
	"fmt"
	"time"

	"mahoot/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles post catalog writes and lookups
type Service struct {
	db *gorm.DB
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// OnPostCreated indexes a newly discovered post. Replayed events are
// absorbed by the unique URI constraint.
func (s *Service) OnPostCreated(uri, cid, authorDID string, postedAt, indexedAt time.Time) error {
	post := models.Post{
		ID:        uuid.New(),
		URI:       uri,
		CID:       cid,
		AuthorDID: authorDID,
		PostedAt:  postedAt,
		IndexedAt: indexedAt,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uri"}},
		DoNothing: true,
	}).Create(&post).Error
	if err != nil {
		return fmt.Errorf("failed to index post %s: %w", uri, err)
	}
	return nil
}

// OnPostDeleted drops a post the author retracted upstream.
func (s *Service) OnPostDeleted(uri string) error {
	if err := s.db.Where("uri = ?", uri).Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("failed to delete post %s: %w", uri, err)
	}
	return nil
}

// Counts returns catalog totals for the periodic ingestion counters.
func (s *Service) Counts() (posts int64, views int64, err error) {
	if err = s.db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return 0, 0, err
	}
	if err = s.db.Model(&models.PostView{}).Count(&views).Error; err != nil {
		return 0, 0, err
	}
	return posts, views, nil
}
