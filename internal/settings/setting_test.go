package settings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/settings"
	"mizan/internal/testsupport"
)

func TestSetupDefaultSettings(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	require.NoError(t, settings.SetupDefaultSettings(db))

	value, err := settings.GetSetting(db, settings.KeyExcludedIPs)
	require.NoError(t, err)
	assert.Equal(t, "", value)

	// Re-running must not clobber an existing value
	require.NoError(t, settings.UpdateSetting(db, settings.KeyExcludedIPs, "10.1.2.3"))
	require.NoError(t, settings.SetupDefaultSettings(db))

	value, err = settings.GetSetting(db, settings.KeyExcludedIPs)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", value)
}

func TestUpdateSetting(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	t.Run("creates the key when missing", func(t *testing.T) {
		require.NoError(t, settings.UpdateSetting(db, "fresh_key", "v1"))

		value, err := settings.GetSetting(db, "fresh_key")
		require.NoError(t, err)
		assert.Equal(t, "v1", value)
	})

	t.Run("updates an existing key", func(t *testing.T) {
		require.NoError(t, settings.CreateOrUpdateSetting(db, "twice", "first"))
		require.NoError(t, settings.CreateOrUpdateSetting(db, "twice", "second"))

		value, err := settings.GetSetting(db, "twice")
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})
}

func TestIsIPExcluded(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	require.NoError(t, settings.SetupDefaultSettings(db))
	require.NoError(t, settings.SetExcludedIPs(db, []string{"203.0.113.7", " 203.0.113.8 "}))

	excluded, err := settings.IsIPExcluded("203.0.113.7")
	require.NoError(t, err)
	assert.True(t, excluded)

	excluded, err = settings.IsIPExcluded("203.0.113.8")
	require.NoError(t, err)
	assert.True(t, excluded)

	excluded, err = settings.IsIPExcluded("198.51.100.1")
	require.NoError(t, err)
	assert.False(t, excluded)
}
