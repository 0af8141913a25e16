// Package resample converts PCM16 audio buffers between the three sample
// rates the pipeline operates at — 44.1 kHz (the canonical split-frame
// rate), 22.05 kHz (Pitch-A and Volume), and 16 kHz (Spectral and
// Pitch-B) — producing normalized float32 output. It is purely
// computational: no I/O, no shared state across calls.
package resample

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const pcm16Scale = 1.0 / 32768.0

// DecodePCM16 converts little-endian signed 16-bit samples to float32,
// normalized to [-1, 1]. An odd trailing byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		out[i] = float32(v) * pcm16Scale
	}
	return out
}

// EncodePCM16 converts normalized float32 samples back to little-endian
// signed 16-bit bytes, clamping out-of-range values.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32768.0
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		iv := int16(v)
		out[2*i] = byte(iv)
		out[2*i+1] = byte(iv >> 8)
	}
	return out
}

// ToRate resamples a normalized float32 buffer from srcRate to dstRate.
// Empty input returns empty output — not an error. When rates match the
// input slice is returned unchanged (no recompute, no forced copy).
//
// Path selection: a polyphase integer decimation/expansion when the
// reduced src/dst ratio is small (both factors <= maxPolyphaseFactor); an
// FFT-domain band-limited resample for everything else non-trivial; a
// last-resort linear interpolation when the FFT path isn't applicable
// (buffers shorter than a usable transform window).
func ToRate(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate {
		return samples
	}
	if len(samples) == 0 {
		return []float32{}
	}

	outLen := int(math.Round(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	if outLen <= 0 {
		return []float32{}
	}

	g := gcd(srcRate, dstRate)
	l, m := dstRate/g, srcRate/g

	switch {
	case l <= maxPolyphaseFactor && m <= maxPolyphaseFactor:
		return fitLength(polyphaseResample(samples, l, m), outLen)
	case len(samples) >= minSincWindow:
		return fitLength(sincResample(samples, outLen), outLen)
	default:
		return linearResample(samples, outLen)
	}
}

const (
	maxPolyphaseFactor = 8
	minSincWindow      = 64
)

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// fitLength trims or zero-pads a resampled buffer to exactly n samples —
// rounding in the polyphase/sinc paths can land one sample either side of
// the target length.
func fitLength(samples []float32, n int) []float32 {
	if len(samples) == n {
		return samples
	}
	out := make([]float32, n)
	copy(out, samples)
	return out
}

// polyphaseResample implements a rational resampler: zero-stuff the input
// by l, run it through a windowed-sinc lowpass filter sized to the
// tighter of the two Nyquist limits, then decimate by m.
func polyphaseResample(samples []float32, l, m int) []float32 {
	upLen := len(samples) * l
	up := make([]float64, upLen)
	for i, s := range samples {
		up[i*l] = float64(s)
	}

	cutoff := 1.0 / float64(max(l, m))
	taps := 2*sincHalfTaps + 1
	kernel := make([]float64, taps)
	for i := range kernel {
		n := float64(i - sincHalfTaps)
		kernel[i] = sincWindowed(n, cutoff, taps)
	}

	filtered := convolveSame(up, kernel)

	outLen := (upLen + m - 1) / m
	out := make([]float32, outLen)
	for i := range out {
		idx := i * m
		if idx < len(filtered) {
			out[i] = float32(filtered[idx] * float64(l))
		}
	}
	return out
}

const sincHalfTaps = 16

func sincWindowed(n, cutoff float64, taps int) float64 {
	var s float64
	if n == 0 {
		s = 2 * cutoff
	} else {
		s = math.Sin(2*math.Pi*cutoff*n) / (math.Pi * n)
	}
	// Hann window over the tap span.
	w := 0.5 - 0.5*math.Cos(2*math.Pi*(n+float64(taps/2))/float64(taps-1))
	return s * w
}

func convolveSame(signal, kernel []float64) []float64 {
	half := len(kernel) / 2
	out := make([]float64, len(signal))
	for i := range out {
		var acc float64
		for k, kv := range kernel {
			j := i + k - half
			if j >= 0 && j < len(signal) {
				acc += signal[j] * kv
			}
		}
		out[i] = acc
	}
	return out
}

// sincResample performs band-limited resampling in the frequency domain:
// forward real FFT, truncate or zero-pad the coefficient vector to match
// the target length's Nyquist bin count, inverse FFT, rescale for the
// length change.
func sincResample(samples []float32, outLen int) []float32 {
	n := len(samples)
	seq := make([]float64, n)
	for i, s := range samples {
		seq[i] = float64(s)
	}

	fwd := fourier.NewFFT(n)
	coeffs := fwd.Coefficients(nil, seq)

	inv := fourier.NewFFT(outLen)
	outBins := outLen/2 + 1
	resized := make([]complex128, outBins)
	copyBins := min(len(coeffs), outBins)
	copy(resized[:copyBins], coeffs[:copyBins])

	outSeq := inv.Sequence(nil, resized)

	scale := float64(outLen) / float64(n)
	out := make([]float32, outLen)
	for i, v := range outSeq {
		out[i] = float32(v * scale / float64(outLen))
	}
	return out
}

// linearResample is the fallback path for buffers too short to FFT
// usefully: plain linear interpolation between sample pairs.
func linearResample(samples []float32, outLen int) []float32 {
	n := len(samples)
	out := make([]float32, outLen)
	if n == 1 {
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}
	ratio := float64(n-1) / float64(max(outLen-1, 1))
	for i := range out {
		pos := float64(i) * ratio
		lo := int(pos)
		if lo >= n-1 {
			out[i] = samples[n-1]
			continue
		}
		frac := float32(pos - float64(lo))
		out[i] = samples[lo]*(1-frac) + samples[lo+1]*frac
	}
	return out
}
