package volume

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSilenceIsFloorDB(t *testing.T) {
	buf := make([]float32, window10MS*3)
	row := Aggregate(1, 5, 0, buf)
	assert.Equal(t, 0.0, row.RMS)
	assert.InDelta(t, 20*math.Log10(dbFloor), row.DB, 1e-9)
	assert.Equal(t, int64(1), row.RecordingID)
	assert.Equal(t, int64(5), row.AudioChunkNo)
}

func TestAggregateConstantSignalMatchesExpectedRMS(t *testing.T) {
	buf := make([]float32, window10MS*3)
	for i := range buf {
		buf[i] = 0.5
	}
	row := Aggregate(1, 1, 0, buf)
	assert.InDelta(t, 0.5, row.RMS, 1e-6)
}

func TestSeries10MSCoversWholeBufferAtHop(t *testing.T) {
	buf := make([]float32, window10MS*4)
	rows := Series10MS(1, 1, 1000, buf)
	require.NotEmpty(t, rows)
	assert.Equal(t, int64(1000), rows[0].StartMS)
	assert.Equal(t, int64(9), rows[0].EndMS-rows[0].StartMS)
	assert.Equal(t, sampleRate, rows[0].SampleRate)
}

func TestSeries1MSHasNoEndMSGap(t *testing.T) {
	buf := make([]float32, window1MS*5)
	rows := Series1MS(1, 1, 0, buf)
	require.NotEmpty(t, rows)
	for i := 1; i < len(rows); i++ {
		assert.Greater(t, rows[i].StartMS, rows[i-1].StartMS)
	}
}

func TestSeriesTooShortBufferProducesNoRows(t *testing.T) {
	buf := make([]float32, 5)
	assert.Empty(t, Series10MS(1, 1, 0, buf))
	assert.Empty(t, Series1MS(1, 1, 0, buf))
}

func TestRMSIsRootMeanSquareOfWindow(t *testing.T) {
	buf := make([]float32, window1MS)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = 1
		} else {
			buf[i] = -1
		}
	}
	windows := rmsSeries(buf, hop1MS, window1MS)
	require.Len(t, windows, 1)
	assert.InDelta(t, 1.0, windows[0].rms, 1e-9)
}
