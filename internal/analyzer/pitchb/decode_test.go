package pitchb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianBins(centerBin int, peak float32) []float32 {
	frame := make([]float32, numBins)
	for b := range frame {
		dist := b - centerBin
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist == 0:
			frame[b] = peak
		case dist <= 3:
			frame[b] = peak * 0.3
		default:
			frame[b] = 0.001
		}
	}
	return frame
}

func TestDecodeEmptySequence(t *testing.T) {
	hz, conf := Decode(nil)
	assert.Nil(t, hz)
	assert.Nil(t, conf)
}

func TestDecodeSingleFrameUsesArgmax(t *testing.T) {
	frame := gaussianBins(120, 0.9)
	hz, conf := Decode([][]float32{frame})
	require.Len(t, hz, 1)
	assert.InDelta(t, binToHz(120), hz[0], 0.01)
	assert.InDelta(t, 0.9, conf[0], 1e-6)
}

func TestDecodeViterbiSmoothsOctaveJump(t *testing.T) {
	// A stable pitch track with one frame of noisy, unrelated bin content
	// in the middle — the viterbi path should still prefer staying near
	// the dominant track rather than jumping to the noisy outlier.
	seq := [][]float32{
		gaussianBins(100, 0.9),
		gaussianBins(102, 0.85),
		gaussianBins(161, 0.95), // one octave (60 bins) above the track
		gaussianBins(103, 0.9),
	}
	hz, conf := Decode(seq)
	require.Len(t, hz, 4)
	for i, h := range hz {
		assert.InDelta(t, binToHz(101), h, binToHz(110)-binToHz(90), "frame %d", i)
	}
	for _, c := range conf {
		assert.Greater(t, c, 0.0)
	}
}

func TestBinToHzIsMonotonicIncreasing(t *testing.T) {
	prev := binToHz(0)
	for b := 1; b < numBins; b++ {
		cur := binToHz(float64(b))
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

func TestArgmaxPicksHighestProbabilityBin(t *testing.T) {
	frame := make([]float32, numBins)
	frame[50] = 0.1
	frame[200] = 0.95
	bin, p := argmax(frame)
	assert.Equal(t, 200, bin)
	assert.Equal(t, float32(0.95), p)
}
