package preferences

import (
	"testing"

	"mahoot/internal/apperrors"
	"mahoot/internal/models"
	"mahoot/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)

	t.Run("creates row with defaults on first access", func(t *testing.T) {
		prefs, err := service.GetOrCreate("did:plc:test-prefs-1")
		assert.NoError(t, err)
		assert.Equal(t, models.DefaultDailyPostLimit, prefs.DailyPostLimit)
		assert.Equal(t, models.DefaultFolloweeQuota, prefs.DefaultQuota)
	})

	t.Run("returns existing row on later access", func(t *testing.T) {
		first, err := service.GetOrCreate("did:plc:test-prefs-2")
		assert.NoError(t, err)

		_, err = service.SetDailyLimit("did:plc:test-prefs-2", 50)
		assert.NoError(t, err)

		second, err := service.GetOrCreate("did:plc:test-prefs-2")
		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 50, second.DailyPostLimit)
	})

	t.Run("rejects empty viewer", func(t *testing.T) {
		_, err := service.GetOrCreate("")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestSetDailyLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)
	viewer := "did:plc:test-limit"

	t.Run("accepts values in range", func(t *testing.T) {
		prefs, err := service.SetDailyLimit(viewer, 1)
		assert.NoError(t, err)
		assert.Equal(t, 1, prefs.DailyPostLimit)

		prefs, err = service.SetDailyLimit(viewer, 1000)
		assert.NoError(t, err)
		assert.Equal(t, 1000, prefs.DailyPostLimit)
	})

	t.Run("rejects values out of range before any mutation", func(t *testing.T) {
		_, err := service.SetDailyLimit(viewer, 0)
		assert.True(t, apperrors.IsValidation(err))

		_, err = service.SetDailyLimit(viewer, 1001)
		assert.True(t, apperrors.IsValidation(err))

		prefs, err := service.GetOrCreate(viewer)
		assert.NoError(t, err)
		assert.Equal(t, 1000, prefs.DailyPostLimit)
	})
}

func TestSetDefaultQuota(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)
	viewer := "did:plc:test-quota"

	t.Run("accepts values in range", func(t *testing.T) {
		prefs, err := service.SetDefaultQuota(viewer, 50)
		assert.NoError(t, err)
		assert.Equal(t, 50, prefs.DefaultQuota)
	})

	t.Run("rejects zero, unlike per-edge quotas", func(t *testing.T) {
		// Edge quota 0 is a mute; the default never goes below 1.
		_, err := service.SetDefaultQuota(viewer, 0)
		assert.True(t, apperrors.IsValidation(err))

		_, err = service.SetDefaultQuota(viewer, 51)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	service := NewService(db)

	exists, err := service.Exists("did:plc:test-exists")
	assert.NoError(t, err)
	assert.False(t, exists)

	_, err = service.GetOrCreate("did:plc:test-exists")
	assert.NoError(t, err)

	exists, err = service.Exists("did:plc:test-exists")
	assert.NoError(t, err)
	assert.True(t, exists)
}
