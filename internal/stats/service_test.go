package stats

import (
	"testing"
	"time"

	"mahoot/internal/models"
	"mahoot/internal/testutil"
	"mahoot/internal/views"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func recordView(t *testing.T, db *gorm.DB, viewer, author, uri string, viewedAt time.Time) {
	t.Helper()
	view := models.PostView{
		ID:        uuid.New(),
		PostURI:   uri,
		AuthorDID: author,
		ViewerDID: viewer,
		ViewedAt:  viewedAt,
	}
	assert.NoError(t, db.Create(&view).Error)
}

func TestIncrementDaily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)
	viewer := "did:plc:stats-increment"
	now := time.Now().UTC()

	t.Run("creates the rollup row on first increment", func(t *testing.T) {
		assert.NoError(t, service.IncrementDaily(viewer, now, 5, 4))

		var stat models.DailyStat
		assert.NoError(t, db.Where("viewer_did = ?", viewer).First(&stat).Error)
		assert.Equal(t, 5, stat.TotalPostsViewed)
		assert.Equal(t, 4, stat.FolloweeCount)
	})

	t.Run("accumulates into the same row", func(t *testing.T) {
		assert.NoError(t, service.IncrementDaily(viewer, now, 3, 6))

		var stats []models.DailyStat
		assert.NoError(t, db.Where("viewer_did = ?", viewer).Find(&stats).Error)
		assert.Len(t, stats, 1)
		assert.Equal(t, 8, stats[0].TotalPostsViewed)
		assert.Equal(t, 6, stats[0].FolloweeCount)
	})

	t.Run("different days get different rows", func(t *testing.T) {
		assert.NoError(t, service.IncrementDaily(viewer, now.AddDate(0, 0, -1), 2, 6))

		var count int64
		db.Model(&models.DailyStat{}).Where("viewer_did = ?", viewer).Count(&count)
		assert.Equal(t, int64(2), count)
	})
}

func TestRolling30Day(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)
	viewer := "did:plc:stats-rolling"
	now := time.Now().UTC()

	t.Run("empty without data", func(t *testing.T) {
		result, err := service.Rolling30Day(viewer)
		assert.NoError(t, err)
		assert.Equal(t, 0, result.DaysWithData)
		assert.Equal(t, 0, result.TotalViewed)
		assert.Equal(t, 0.0, result.AvgPerDay)
	})

	t.Run("averages over days with data only", func(t *testing.T) {
		assert.NoError(t, service.IncrementDaily(viewer, now, 10, 4))
		assert.NoError(t, service.IncrementDaily(viewer, now.AddDate(0, 0, -3), 20, 6))
		// Outside the window.
		assert.NoError(t, service.IncrementDaily(viewer, now.AddDate(0, 0, -40), 99, 9))

		result, err := service.Rolling30Day(viewer)
		assert.NoError(t, err)
		assert.Equal(t, 2, result.DaysWithData)
		assert.Equal(t, 30, result.TotalViewed)
		assert.Equal(t, 15.0, result.AvgPerDay)
		assert.Equal(t, 5.0, result.AvgFolloweeCount)
	})
}

func TestPerAuthorStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)
	viewer := "did:plc:stats-viewer"
	author := "did:plc:stats-author"
	dayStart, _ := views.DayBounds(time.Now().UTC())

	recordView(t, db, viewer, author, "at://a/app.bsky.feed.post/1", dayStart.Add(2*time.Hour))
	recordView(t, db, viewer, author, "at://a/app.bsky.feed.post/2", dayStart.AddDate(0, 0, -3))
	recordView(t, db, viewer, author, "at://a/app.bsky.feed.post/3", dayStart.AddDate(0, 0, -20))
	// Another viewer's view of the same author must not leak in.
	recordView(t, db, "did:plc:someone-else", author, "at://a/app.bsky.feed.post/1", dayStart.Add(time.Hour))

	t.Run("windows are counted independently", func(t *testing.T) {
		result, err := service.PerAuthorStats(viewer, author)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.ViewedToday)
		assert.Equal(t, 2, result.ViewedThisWeek)
		assert.Equal(t, 3, result.ViewedThisMonth)
	})

	t.Run("quota is nil without a followee edge", func(t *testing.T) {
		result, err := service.PerAuthorStats(viewer, author)
		assert.NoError(t, err)
		assert.Nil(t, result.Quota)
	})

	t.Run("quota reflects the current edge", func(t *testing.T) {
		edge := models.Followee{ViewerDID: viewer, FolloweeDID: author, Quota: 12, Pinned: true}
		assert.NoError(t, db.Create(&edge).Error)

		result, err := service.PerAuthorStats(viewer, author)
		assert.NoError(t, err)
		assert.NotNil(t, result.Quota)
		assert.Equal(t, 12, *result.Quota)
	})
}

func TestAllAuthorStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)
	viewer := "did:plc:stats-all"
	now := time.Now().UTC()

	recordView(t, db, viewer, "did:plc:author-a", "at://a/app.bsky.feed.post/1", now)
	recordView(t, db, viewer, "did:plc:author-a", "at://a/app.bsky.feed.post/2", now)
	recordView(t, db, viewer, "did:plc:author-b", "at://b/app.bsky.feed.post/1", now)

	result, err := service.AllAuthorStats(viewer)
	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, "did:plc:author-a", result[0].AuthorDID)
	assert.Equal(t, 2, result[0].ViewedToday)
	assert.Equal(t, "did:plc:author-b", result[1].AuthorDID)
	assert.Equal(t, 1, result[1].ViewedToday)
}
