package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeEmitsBucketRangeInclusive(t *testing.T) {
	a := New(100)
	buf := make([]float32, 1600) // 100ms at 16kHz
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	rows := a.Analyze(1, 1, 0, buf, 16000)
	require.Len(t, rows, BucketHi-BucketLo+1)
	assert.Equal(t, BucketLo, rows[0].BucketNo)
	assert.Equal(t, BucketHi, rows[len(rows)-1].BucketNo)
}

func TestAnalyzeNormalizesToMaxOne(t *testing.T) {
	a := New(100)
	buf := make([]float32, 1600)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	rows := a.Analyze(1, 1, 0, buf, 16000)
	var maxMag float64
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.Magnitude, 0.0)
		assert.LessOrEqual(t, r.Magnitude, 1.0+1e-9)
		if r.Magnitude > maxMag {
			maxMag = r.Magnitude
		}
	}
	// 440 Hz falls exactly on bucket 44 (10 Hz buckets), inside the persisted range.
	assert.InDelta(t, 1.0, maxMag, 1e-9)
}

func TestAnalyzeDownsamplesNonNativeRate(t *testing.T) {
	a := New(100)
	buf := make([]float32, 4410) // 100ms at 44.1kHz
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}
	assert.NotPanics(t, func() {
		rows := a.Analyze(1, 1, 0, buf, 44100)
		assert.Len(t, rows, BucketHi-BucketLo+1)
	})
}

func TestAbsoluteTimesDeriveFromFrameNo(t *testing.T) {
	a := New(100)
	buf := make([]float32, 1600)
	rows := a.Analyze(7, 12, 100*(12-1), buf, 16000)
	require.NotEmpty(t, rows)
	assert.Equal(t, int64(100*(12-1)), rows[0].StartMS)
}
