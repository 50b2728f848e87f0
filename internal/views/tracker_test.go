package views

import (
	"fmt"
	"testing"
	"time"

	"mahoot/internal/models"
	"mahoot/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func seedPost(t *testing.T, db *gorm.DB, author string, n int, indexedAt time.Time) models.Post {
	t.Helper()
	post := models.Post{
		ID:        uuid.New(),
		URI:       fmt.Sprintf("at://%s/app.bsky.feed.post/%04d", author, n),
		CID:       fmt.Sprintf("bafytest%04d", n),
		AuthorDID: author,
		PostedAt:  indexedAt,
		IndexedAt: indexedAt,
	}
	assert.NoError(t, db.Create(&post).Error)
	return post
}

func TestRecord_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tracker := NewTracker(db)

	uri := "at://did:plc:author/app.bsky.feed.post/0001"
	assert.NoError(t, tracker.Record(uri, "did:plc:author", "did:plc:viewer"))
	assert.NoError(t, tracker.Record(uri, "did:plc:author", "did:plc:viewer"))

	var count int64
	db.Model(&models.PostView{}).
		Where("post_uri = ? AND viewer_did = ?", uri, "did:plc:viewer").
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRecord_DistinctViewers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tracker := NewTracker(db)

	uri := "at://did:plc:author/app.bsky.feed.post/0002"
	assert.NoError(t, tracker.Record(uri, "did:plc:author", "did:plc:viewer-a"))
	assert.NoError(t, tracker.Record(uri, "did:plc:author", "did:plc:viewer-b"))

	var count int64
	db.Model(&models.PostView{}).Where("post_uri = ?", uri).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestViewedToday(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tracker := NewTracker(db)
	viewer := "did:plc:viewer-today"

	assert.NoError(t, tracker.Record("at://a/app.bsky.feed.post/1", "did:plc:a", viewer))

	// A view from yesterday must not count against today's budget.
	yesterday := models.PostView{
		ID:        uuid.New(),
		PostURI:   "at://a/app.bsky.feed.post/2",
		AuthorDID: "did:plc:a",
		ViewerDID: viewer,
		ViewedAt:  time.Now().UTC().AddDate(0, 0, -1),
	}
	assert.NoError(t, db.Create(&yesterday).Error)

	records, err := tracker.ViewedToday(viewer)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "at://a/app.bsky.feed.post/1", records[0].PostURI)
}

func TestUnviewedByAuthor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	tracker := NewTracker(db)
	viewer := "did:plc:viewer-unviewed"
	author := "did:plc:author-unviewed"

	now := time.Now().UTC()
	var posts []models.Post
	for i := 0; i < 5; i++ {
		posts = append(posts, seedPost(t, db, author, i, now.Add(-time.Duration(i)*time.Hour)))
	}

	assert.NoError(t, tracker.Record(posts[0].URI, author, viewer))
	assert.NoError(t, tracker.Record(posts[3].URI, author, viewer))

	t.Run("excludes viewed posts, newest first", func(t *testing.T) {
		unviewed, err := tracker.UnviewedByAuthor(viewer, author, 10)
		assert.NoError(t, err)
		assert.Len(t, unviewed, 3)
		assert.Equal(t, posts[1].URI, unviewed[0].URI)
		assert.Equal(t, posts[2].URI, unviewed[1].URI)
		assert.Equal(t, posts[4].URI, unviewed[2].URI)
	})

	t.Run("respects the limit", func(t *testing.T) {
		unviewed, err := tracker.UnviewedByAuthor(viewer, author, 2)
		assert.NoError(t, err)
		assert.Len(t, unviewed, 2)
	})

	t.Run("other viewers see everything", func(t *testing.T) {
		unviewed, err := tracker.UnviewedByAuthor("did:plc:someone-else", author, 10)
		assert.NoError(t, err)
		assert.Len(t, unviewed, 5)
	})
}

func TestDayBounds(t *testing.T) {
	moment := time.Date(2025, 6, 15, 13, 45, 12, 0, time.UTC)
	start, end := DayBounds(moment)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), end)
}
