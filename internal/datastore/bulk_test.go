package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestStore creates an in-memory SQLite-backed DataStore with the
// full schema migrated, for bulk-insert and query tests.
func setupTestStore(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store := &DataStore{DB: db}
	require.NoError(t, store.autoMigrate())

	return store
}

func TestBulkInsert_EmptySliceIsNoOp(t *testing.T) {
	store := setupTestStore(t)

	err := store.BulkInsert(context.Background(), []SpectralRow{}, SPAllRecordingParametersGet)
	assert.NoError(t, err)

	var count int64
	store.DB.Model(&SpectralRow{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestBulkInsert_InsertsAllRows(t *testing.T) {
	store := setupTestStore(t)

	rows := []SpectralRow{
		{RecordingID: 1, AudioFrameNo: 1, BucketNo: 0, HzLo: 0, HzHi: 100, Magnitude: 0.1, SampleRate: 44100},
		{RecordingID: 1, AudioFrameNo: 1, BucketNo: 1, HzLo: 100, HzHi: 200, Magnitude: 0.2, SampleRate: 44100},
		{RecordingID: 1, AudioFrameNo: 1, BucketNo: 2, HzLo: 200, HzHi: 300, Magnitude: 0.3, SampleRate: 44100},
	}

	err := store.BulkInsert(context.Background(), rows, "fft_insert")
	require.NoError(t, err)

	var count int64
	store.DB.Model(&SpectralRow{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestBulkInsert_BatchesAcrossThreshold(t *testing.T) {
	store := setupTestStore(t)

	rows := make([]Volume1MSRow, defaultBatchSize+50)
	for i := range rows {
		rows[i] = Volume1MSRow{RecordingID: 1, StartMS: int64(i), RMS: 0.5, DB: -6, AudioFrameNo: 1, SampleRate: 44100}
	}

	err := store.BulkInsert(context.Background(), rows, "volume_1ms_insert")
	require.NoError(t, err)

	var count int64
	store.DB.Model(&Volume1MSRow{}).Count(&count)
	assert.Equal(t, int64(len(rows)), count)
}

func TestBuildCall_RendersPositionalPlaceholders(t *testing.T) {
	sql, values := buildCall(SPMethodComplete, []interface{}{int64(7), "FFT"})

	assert.Equal(t, "CALL P_ENGINE_METHOD_COMPLETE(?, ?)", sql)
	assert.Equal(t, []interface{}{int64(7), "FFT"}, values)
}

func TestBuildCall_NoArgsRendersEmptyParens(t *testing.T) {
	sql, values := buildCall(SPFinalizeRecording, nil)

	assert.Equal(t, "CALL P_ENGINE_FINALIZE_RECORDING()", sql)
	assert.Empty(t, values)
}
