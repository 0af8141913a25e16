package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityPassThrough(t *testing.T) {
	samples := []float32{0.1, -0.2, 0.3, -0.4}
	out := ToRate(samples, 44100, 44100)
	assert.Equal(t, samples, out)
}

func TestEmptyInputReturnsEmptyOutput(t *testing.T) {
	out := ToRate(nil, 44100, 16000)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestOutputLengthMatchesRatio(t *testing.T) {
	cases := []struct {
		src, dst, n int
	}{
		{44100, 22050, 4410},
		{44100, 16000, 4410},
		{22050, 16000, 2205},
	}
	for _, c := range cases {
		samples := make([]float32, c.n)
		for i := range samples {
			samples[i] = float32(i%100) / 100
		}
		out := ToRate(samples, c.src, c.dst)
		want := (c.n*c.dst + c.src/2) / c.src
		assert.InDelta(t, want, len(out), 1, "src=%d dst=%d", c.src, c.dst)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	pcm := make([]byte, 200)
	for i := 0; i < 100; i++ {
		v := int16(i*300 - 15000)
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}

	floats := DecodePCM16(pcm)
	back := EncodePCM16(floats)
	require.Equal(t, len(pcm), len(back))

	mismatches := 0
	for i := 0; i < 100; i++ {
		orig := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		got := int16(uint16(back[2*i]) | uint16(back[2*i+1])<<8)
		if diff := int(orig) - int(got); diff < -1 || diff > 1 {
			mismatches++
		}
	}
	assert.LessOrEqual(t, mismatches, 1, "round trip should match within 1 LSB for 99%% of samples")
}

func TestPolyphasePathForModestRatios(t *testing.T) {
	// 44100 -> 22050 reduces to 1/2, a modest polyphase ratio.
	samples := make([]float32, 4410)
	for i := range samples {
		samples[i] = float32(i%10) / 10
	}
	out := ToRate(samples, 44100, 22050)
	assert.InDelta(t, 2205, len(out), 1)
}

func TestNeverPanicsOnSingleSample(t *testing.T) {
	assert.NotPanics(t, func() {
		ToRate([]float32{0.5}, 44100, 16000)
	})
}
