package followees

import (
	"errors"
	"testing"

	"mahoot/internal/apperrors"
	"mahoot/internal/models"
	"mahoot/internal/preferences"
	"mahoot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockFollowsClient is a mock implementation of the AppView follows client
type MockFollowsClient struct {
	mock.Mock
}

func (m *MockFollowsClient) GetFollows(actor string, limit int, cursor string) (*FollowsPage, error) {
	args := m.Called(actor, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FollowsPage), args.Error(1)
}

func TestDefaultQuotaFor(t *testing.T) {
	t.Run("spreads the budget evenly", func(t *testing.T) {
		assert.Equal(t, 15, DefaultQuotaFor(300, 7, 20))
	})

	t.Run("rounds up", func(t *testing.T) {
		assert.Equal(t, 3, DefaultQuotaFor(100, 7, 40))
	})

	t.Run("clamps to the ceiling", func(t *testing.T) {
		assert.Equal(t, 20, DefaultQuotaFor(300, 7, 1))
		assert.Equal(t, 20, DefaultQuotaFor(1000, 7, 10))
	})

	t.Run("clamps to the floor", func(t *testing.T) {
		assert.Equal(t, 1, DefaultQuotaFor(300, 7, 1000))
	})

	t.Run("falls back to the default quota with no followees", func(t *testing.T) {
		assert.Equal(t, 7, DefaultQuotaFor(300, 7, 0))
		assert.Equal(t, 12, DefaultQuotaFor(300, 12, 0))
	})
}

func TestAddOrUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prefs := preferences.NewService(db)
	service := NewService(db, prefs, nil)
	viewer := "did:plc:test-viewer"

	t.Run("system-assigned edges track the computed default", func(t *testing.T) {
		edge, err := service.AddOrUpdate(viewer, "did:plc:f1", nil, "")
		assert.NoError(t, err)
		assert.False(t, edge.Pinned)

		// With one followee the whole budget collapses onto it,
		// clamped to the computed ceiling.
		edges, err := service.List(viewer)
		assert.NoError(t, err)
		assert.Len(t, edges, 1)
		assert.Equal(t, MaxComputedDefault, edges[0].Quota)
	})

	t.Run("explicit quota pins the edge", func(t *testing.T) {
		quota := 5
		edge, err := service.AddOrUpdate(viewer, "did:plc:f2", &quota, "")
		assert.NoError(t, err)
		assert.True(t, edge.Pinned)
		assert.Equal(t, 5, edge.Quota)
	})

	t.Run("pinned edges survive default recalculation", func(t *testing.T) {
		_, err := service.AddOrUpdate(viewer, "did:plc:f3", nil, "")
		assert.NoError(t, err)

		edges, err := service.List(viewer)
		assert.NoError(t, err)

		byDID := make(map[string]models.Followee)
		for _, edge := range edges {
			byDID[edge.FolloweeDID] = edge
		}
		assert.Equal(t, 5, byDID["did:plc:f2"].Quota)
		assert.Equal(t, byDID["did:plc:f1"].Quota, byDID["did:plc:f3"].Quota)
	})

	t.Run("upsert updates an existing edge", func(t *testing.T) {
		quota := 9
		edge, err := service.AddOrUpdate(viewer, "did:plc:f1", &quota, "at://follow/ref")
		assert.NoError(t, err)
		assert.Equal(t, 9, edge.Quota)
		assert.True(t, edge.Pinned)
		assert.Equal(t, "at://follow/ref", edge.SourceRef)

		edges, err := service.List(viewer)
		assert.NoError(t, err)
		assert.Len(t, edges, 3)
	})

	t.Run("rejects out-of-range quotas", func(t *testing.T) {
		quota := 51
		_, err := service.AddOrUpdate(viewer, "did:plc:f4", &quota, "")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestRecalculationSpreadsBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prefs := preferences.NewService(db)
	service := NewService(db, prefs, nil)
	viewer := "did:plc:test-spread"

	// 300 daily budget over 20 followees is 15 each.
	for i := 0; i < 20; i++ {
		did := "did:plc:spread-" + string(rune('a'+i))
		_, err := service.AddOrUpdate(viewer, did, nil, "")
		assert.NoError(t, err)
	}

	edges, err := service.List(viewer)
	assert.NoError(t, err)
	assert.Len(t, edges, 20)
	for _, edge := range edges {
		assert.Equal(t, 15, edge.Quota)
	}
}

func TestSetQuota(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prefs := preferences.NewService(db)
	service := NewService(db, prefs, nil)
	viewer := "did:plc:test-setquota"

	t.Run("errors on a missing edge", func(t *testing.T) {
		_, err := service.SetQuota(viewer, "did:plc:nobody", 5)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("quota zero mutes and pins", func(t *testing.T) {
		_, err := service.AddOrUpdate(viewer, "did:plc:loud", nil, "")
		assert.NoError(t, err)

		edge, err := service.SetQuota(viewer, "did:plc:loud", 0)
		assert.NoError(t, err)
		assert.True(t, edge.Muted())
		assert.True(t, edge.Pinned)
	})

	t.Run("rejects out-of-range quotas", func(t *testing.T) {
		_, err := service.SetQuota(viewer, "did:plc:loud", -1)
		assert.True(t, apperrors.IsValidation(err))

		_, err = service.SetQuota(viewer, "did:plc:loud", 51)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestRemove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prefs := preferences.NewService(db)
	service := NewService(db, prefs, nil)
	viewer := "did:plc:test-remove"

	t.Run("removing an absent edge is a no-op", func(t *testing.T) {
		assert.NoError(t, service.Remove(viewer, "did:plc:nobody"))
	})

	t.Run("removes an existing edge", func(t *testing.T) {
		_, err := service.AddOrUpdate(viewer, "did:plc:gone", nil, "")
		assert.NoError(t, err)

		assert.NoError(t, service.Remove(viewer, "did:plc:gone"))

		edges, err := service.List(viewer)
		assert.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func TestRemoveBySourceRef(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prefs := preferences.NewService(db)
	service := NewService(db, prefs, nil)
	viewer := "did:plc:test-unfollow"
	sourceRef := "at://" + viewer + "/app.bsky.graph.follow/3abc"

	_, err := service.AddOrUpdate(viewer, "did:plc:followed", nil, sourceRef)
	assert.NoError(t, err)

	t.Run("deletes the edge named by the follow record", func(t *testing.T) {
		assert.NoError(t, service.RemoveBySourceRef(sourceRef))

		edges, err := service.List(viewer)
		assert.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("unknown refs are a no-op", func(t *testing.T) {
		assert.NoError(t, service.RemoveBySourceRef("at://unknown/ref"))
		assert.NoError(t, service.RemoveBySourceRef(""))
	})
}

func TestImportFollows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prefs := preferences.NewService(db)
	mockClient := &MockFollowsClient{}
	service := NewService(db, prefs, mockClient)
	viewer := "did:plc:test-import"

	page := &FollowsPage{
		Follows: []Follow{
			{DID: "did:plc:import-1", Handle: "one.bsky.social"},
			{DID: "did:plc:import-2", Handle: "two.bsky.social"},
		},
		Cursor: "",
	}
	mockClient.On("GetFollows", viewer, 100, "").Return(page, nil)

	err := service.ImportFollows(viewer)
	assert.NoError(t, err)

	edges, err := service.List(viewer)
	assert.NoError(t, err)
	assert.Len(t, edges, 2)
	for _, edge := range edges {
		assert.False(t, edge.Pinned)
	}

	imported, err := prefs.GetOrCreate(viewer)
	assert.NoError(t, err)
	assert.NotNil(t, imported.FollowsImportedAt)

	mockClient.AssertExpectations(t)
}
