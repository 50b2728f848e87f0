// Package views records which posts have been shown to which viewers.
// Every quota guarantee in the allocator rests on these records.
package views

import (
	"fmt"
	"time"

	"mahoot/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tracker handles view record reads and idempotent writes
type Tracker struct {
	db *gorm.DB
}

// NewTracker creates a new view tracker
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// Record marks a post as viewed by a viewer. The insert is idempotent:
// the (post_uri, viewer_did) unique constraint absorbs duplicates, so
// there is no read-before-write and the operation is race-safe under
// concurrent writers.
func (t *Tracker) Record(postURI, authorDID, viewerDID string) error {
	view := models.PostView{
		ID:        uuid.New(),
		PostURI:   postURI,
		AuthorDID: authorDID,
		ViewerDID: viewerDID,
		ViewedAt:  time.Now().UTC(),
	}

	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_uri"}, {Name: "viewer_did"}},
		DoNothing: true,
	}).Create(&view).Error
	if err != nil {
		return fmt.Errorf("failed to record view of %s for %s: %w", postURI, viewerDID, err)
	}
	return nil
}

// ViewedToday returns the viewer's view records for the current UTC
// calendar day.
func (t *Tracker) ViewedToday(viewerDID string) ([]models.PostView, error) {
	start, end := DayBounds(time.Now().UTC())

	var records []models.PostView
	err := t.db.Where("viewer_did = ? AND viewed_at >= ? AND viewed_at < ?", viewerDID, start, end).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load today's views for %s: %w", viewerDID, err)
	}
	return records, nil
}

// UnviewedByAuthor returns up to limit posts by author that the viewer
// has never been shown, newest first. Callers over-fetch relative to the
// slots they intend to fill to leave room for random subset selection.
func (t *Tracker) UnviewedByAuthor(viewerDID, authorDID string, limit int) ([]models.Post, error) {
	viewed := t.db.Model(&models.PostView{}).
		Select("post_uri").
		Where("viewer_did = ?", viewerDID)

	var posts []models.Post
	err := t.db.Where("author_did = ?", authorDID).
		Where("uri NOT IN (?)", viewed).
		Order("indexed_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load unviewed posts by %s: %w", authorDID, err)
	}
	return posts, nil
}

// DayBounds returns the [start, end) of the UTC calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
