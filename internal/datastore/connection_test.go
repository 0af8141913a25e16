package datastore

import (
	"testing"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteAppliesPragmasAndMigratesSchema(t *testing.T) {
	settings := &conf.Settings{}
	settings.Database.Driver = "sqlite"
	settings.Database.DSN = ":memory:"

	store, err := Open(settings)
	require.NoError(t, err)
	defer store.Close()

	var walMode string
	require.NoError(t, store.DB.Raw("PRAGMA journal_mode;").Scan(&walMode).Error)
	assert.Equal(t, "memory", walMode) // in-memory DBs report "memory", not "wal"

	assert.True(t, store.DB.Migrator().HasTable(&RecordingConfigRow{}))
	assert.True(t, store.DB.Migrator().HasTable(&SplitAudioFrameRow{}))
	assert.True(t, store.DB.Migrator().HasTable(&StepLogRow{}))
}

func TestOpen_UnsupportedDriverReturnsError(t *testing.T) {
	settings := &conf.Settings{}
	settings.Database.Driver = "postgres"
	settings.Database.DSN = "whatever"

	store, err := Open(settings)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestOpen_PoolLimitsDefaultWhenUnset(t *testing.T) {
	settings := &conf.Settings{}
	settings.Database.Driver = "sqlite"
	settings.Database.DSN = ":memory:"

	store, err := Open(settings)
	require.NoError(t, err)
	defer store.Close()

	sqlDB, err := store.DB.DB()
	require.NoError(t, err)
	stats := sqlDB.Stats()
	assert.LessOrEqual(t, stats.MaxOpenConnections, 10)
}

func TestOpen_AcceptsConfiguredConnMaxLifetime(t *testing.T) {
	settings := &conf.Settings{}
	settings.Database.Driver = "sqlite"
	settings.Database.DSN = ":memory:"
	settings.Database.ConnMaxLifetime = 30 * time.Second

	store, err := Open(settings)
	require.NoError(t, err)
	defer store.Close()
}
