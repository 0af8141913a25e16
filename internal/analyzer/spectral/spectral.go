// Package spectral is the Spectral analyzer (C3): one windowed magnitude
// spectrum per 100ms split frame, bucketed over the violin-relevant
// range and max-normalized.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/resample"
)

// BucketLo and BucketHi bound the inclusive FFT bin range persisted —
// the violin-relevant band.
const (
	BucketLo = 18
	BucketHi = 400
)

// sampleRate is the rate this analyzer runs at by design: sufficient
// Nyquist for violin content at a cheaper FFT size than 44.1kHz would need.
const sampleRate = 16000

// Analyzer holds the pre-allocated Hann window, FFT plan, and magnitude
// buffer reused across frames. Not safe for concurrent use by multiple
// goroutines — each worker owns its own Analyzer instance.
type Analyzer struct {
	n       int
	fft     *fourier.FFT
	hann    []float64
	windowed []float64
	mag     []float64
}

// New creates an Analyzer sized for a 100ms window at the analyzer's
// fixed 16kHz operating rate.
func New(frameMS int) *Analyzer {
	n := frameMS * sampleRate / 1000
	hann := window.Hann(make([]float64, n))
	return &Analyzer{
		n:        n,
		fft:      fourier.NewFFT(n),
		hann:     hann,
		windowed: make([]float64, n),
		mag:      make([]float64, n/2+1),
	}
}

// Analyze computes one window's bucketed, normalized magnitude spectrum
// for a 100ms frame. buf is mono float32 at srcRate; if srcRate doesn't
// match the analyzer's 16kHz operating rate, it is resampled first via
// resample.ToRate, which itself picks polyphase decimation for small
// integer ratios.
func (a *Analyzer) Analyze(recordingID, frameNo int64, baseStartMS int64, buf []float32, srcRate int) []datastore.SpectralRow {
	if srcRate != sampleRate {
		buf = resample.ToRate(buf, srcRate, sampleRate)
	}

	n := a.n
	if len(buf) < n {
		padded := make([]float32, n)
		copy(padded, buf)
		buf = padded
	} else if len(buf) > n {
		buf = buf[:n]
	}

	for i := 0; i < n; i++ {
		a.windowed[i] = float64(buf[i]) * a.hann[i]
	}

	coeffs := a.fft.Coefficients(nil, a.windowed)

	var maxMag float64
	for i, c := range coeffs {
		m := math.Hypot(real(c), imag(c))
		a.mag[i] = m
		if m > maxMag {
			maxMag = m
		}
	}
	if maxMag == 0 {
		maxMag = 1
	}

	bucketWidthHz := float64(sampleRate) / float64(n)
	startMS := baseStartMS

	hi := BucketHi
	if hi >= len(a.mag) {
		hi = len(a.mag) - 1
	}

	rows := make([]datastore.SpectralRow, 0, hi-BucketLo+1)
	for bucket := BucketLo; bucket <= hi; bucket++ {
		rows = append(rows, datastore.SpectralRow{
			RecordingID:   recordingID,
			AudioFrameNo:  frameNo,
			StartMS:       startMS,
			EndMS:         startMS + int64(math.Round(float64(n)*1000.0/float64(sampleRate))) - 1,
			BucketNo:      bucket,
			HzLo:          float64(bucket) * bucketWidthHz,
			HzHi:          float64(bucket+1) * bucketWidthHz,
			BucketWidthHz: bucketWidthHz,
			Magnitude:     a.mag[bucket] / maxMag,
			SampleRate:    sampleRate,
		})
	}
	return rows
}

// SampleRate returns the fixed operating rate this analyzer runs at.
func SampleRate() int { return sampleRate }
