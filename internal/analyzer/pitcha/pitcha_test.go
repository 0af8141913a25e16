package pitcha

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sineWave(freq float64, n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return buf
}

func TestAnalyzeDetectsKnownFrequency(t *testing.T) {
	buf := sineWave(440, windowLength()+hopLength*4)
	rows := Analyze(1, 5, 400, buf)
	if assert.NotEmpty(t, rows) {
		for _, r := range rows {
			assert.InDelta(t, 440, r.HZ, 20)
			assert.GreaterOrEqual(t, r.Confidence, minConfidence)
			assert.Equal(t, "PYIN", r.SourceTag)
		}
	}
}

func TestAnalyzeSilenceProducesNoRows(t *testing.T) {
	buf := make([]float32, windowLength()+hopLength*4)
	rows := Analyze(1, 1, 0, buf)
	assert.Empty(t, rows)
}

func TestAnalyzeTooShortBufferProducesNoRows(t *testing.T) {
	buf := make([]float32, 100)
	rows := Analyze(1, 1, 0, buf)
	assert.Empty(t, rows)
}

func TestRowTimingIsRelativeHopPlusBase(t *testing.T) {
	buf := sineWave(300, windowLength()+hopLength*2)
	rows := Analyze(1, 3, 200, buf)
	if assert.NotEmpty(t, rows) {
		assert.Equal(t, rows[0].EndMS-rows[0].StartMS, int64(hopMS-1))
		assert.GreaterOrEqual(t, rows[0].StartMS, int64(200))
	}
}
