// Package pitcha is the Pitch-A analyzer (C4): a YIN-style autocorrelation
// pitch tracker over a 22.05kHz mono buffer, emitting per-10ms fundamental
// frequency and voicing confidence.
package pitcha

import (
	"math"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
)

const (
	sampleRate = 22050
	hopLength  = 220  // ~10ms at 22.05kHz
	minWindow  = 2048 // max(hop*4, 2048)

	minHz              = 180.0
	maxHz              = 4000.0
	minConfidence      = 0.1
	yinThreshold       = 0.1
	hopMS              = 10
)

// windowLength is hopLength*4 when that exceeds minWindow, else minWindow —
// matching the original's max(hop*4, 2048) sizing.
func windowLength() int {
	if hopLength*4 > minWindow {
		return hopLength * 4
	}
	return minWindow
}

// Analyze produces per-10ms pitch rows for one 100ms frame's 22.05kHz
// buffer. Only voiced frames with a finite positive frequency and
// confidence >= 0.1 are emitted; everything else is silently dropped
// (spec.md §4.4 — unvoiced/boundary frames produce zero rows, not an
// error).
func Analyze(recordingID, frameNo int64, baseStartMS int64, buf []float32) []datastore.PitchRow {
	win := windowLength()
	if len(buf) < win {
		return nil
	}

	minLag := int(sampleRate / maxHz)
	maxLag := int(sampleRate / minHz)
	if maxLag >= win {
		maxLag = win - 1
	}
	if minLag < 1 {
		minLag = 1
	}

	var rows []datastore.PitchRow
	for start := 0; start+win <= len(buf); start += hopLength {
		frame := buf[start : start+win]
		hz, conf, voiced := yinEstimate(frame, minLag, maxLag)
		if !voiced || !isFinitePositive(hz) || conf < minConfidence {
			continue
		}

		i := start / hopLength
		startMSRel := int64(math.Round(float64(i*hopLength) * 1000.0 / sampleRate))
		rows = append(rows, datastore.PitchRow{
			RecordingID:  recordingID,
			AudioFrameNo: frameNo,
			StartMS:      baseStartMS + startMSRel,
			EndMS:        baseStartMS + startMSRel + (hopMS - 1),
			SourceTag:    "PYIN",
			HZ:           hz,
			Confidence:   conf,
		})
	}
	return rows
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// yinEstimate runs the cumulative mean normalized difference function
// over one window and returns the fundamental frequency, a voicing
// confidence (1 - normalized difference at the chosen lag), and whether
// a lag beneath yinThreshold was found at all.
func yinEstimate(frame []float32, minLag, maxLag int) (hz, confidence float64, voiced bool) {
	n := len(frame)
	d := make([]float64, maxLag+1)

	for tau := 1; tau <= maxLag; tau++ {
		var sum float64
		for i := 0; i+tau < n; i++ {
			diff := float64(frame[i] - frame[i+tau])
			sum += diff * diff
		}
		d[tau] = sum
	}

	cmnd := make([]float64, maxLag+1)
	cmnd[0] = 1
	var runningSum float64
	for tau := 1; tau <= maxLag; tau++ {
		runningSum += d[tau]
		if runningSum == 0 {
			cmnd[tau] = 1
		} else {
			cmnd[tau] = d[tau] * float64(tau) / runningSum
		}
	}

	bestTau := -1
	for tau := minLag; tau <= maxLag; tau++ {
		if cmnd[tau] < yinThreshold {
			// Walk forward to the local minimum, per the original YIN refinement.
			for tau+1 <= maxLag && cmnd[tau+1] < cmnd[tau] {
				tau++
			}
			bestTau = tau
			break
		}
	}
	if bestTau < 0 {
		return 0, 0, false
	}

	refined := parabolicRefine(cmnd, bestTau, maxLag)
	if refined <= 0 {
		return 0, 0, false
	}

	hz = sampleRate / refined
	confidence = 1 - cmnd[bestTau]
	return hz, confidence, true
}

func parabolicRefine(cmnd []float64, tau, maxLag int) float64 {
	if tau <= 0 || tau >= maxLag {
		return float64(tau)
	}
	s0, s1, s2 := cmnd[tau-1], cmnd[tau], cmnd[tau+1]
	denom := 2*s1 - s2 - s0
	if denom == 0 {
		return float64(tau)
	}
	adjustment := (s2 - s0) / (2 * denom)
	return float64(tau) + adjustment
}
