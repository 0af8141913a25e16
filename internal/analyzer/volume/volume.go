// Package volume is the Volume analyzer (C7): RMS and dB loudness over a
// 22.05kHz mono buffer, emitted both as a per-frame aggregate and as
// explicit 1ms/10ms time series.
package volume

import (
	"math"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
)

const (
	sampleRate = 22050

	hop1MS    = 22 // round(sr * 0.001)
	window1MS = hop1MS * 2

	hop10MS    = 220 // round(sr * 0.010)
	window10MS = hop10MS * 2

	dbFloor = 1e-6
)

// rmsWindow is one RMS/dB measurement over a fixed-length span starting
// at startSample, with center=false so windows align to the frame's
// absolute start rather than straddling it.
type rmsWindow struct {
	startSample int
	rms         float64
	db          float64
}

func rmsSeries(buf []float32, hop, win int) []rmsWindow {
	if len(buf) < win {
		return nil
	}
	out := make([]rmsWindow, 0, (len(buf)-win)/hop+1)
	for start := 0; start+win <= len(buf); start += hop {
		var sumSq float64
		for i := start; i < start+win; i++ {
			v := float64(buf[i])
			sumSq += v * v
		}
		rms := math.Sqrt(sumSq / float64(win))
		out = append(out, rmsWindow{
			startSample: start,
			rms:         rms,
			db:          20 * math.Log10(rms+dbFloor),
		})
	}
	return out
}

// Aggregate computes the per-chunk summary row: the mean 1ms-windowed
// RMS over the whole buffer, and the dB derived from that mean
// (spec.md §4.7).
func Aggregate(recordingID, chunkNo int64, baseStartMS int64, buf []float32) datastore.VolumeAggregateRow {
	windows := rmsSeries(buf, hop1MS, window1MS)
	row := datastore.VolumeAggregateRow{
		RecordingID:  recordingID,
		AudioChunkNo: chunkNo,
		StartMS:      baseStartMS,
	}
	if len(windows) == 0 {
		return row
	}
	var sum float64
	for _, w := range windows {
		sum += w.rms
	}
	mean := sum / float64(len(windows))
	row.RMS = mean
	row.DB = 20 * math.Log10(mean+dbFloor)
	return row
}

// Series10MS produces one row per 10ms window with absolute start/end
// ms relative to baseStartMS.
func Series10MS(recordingID, frameNo int64, baseStartMS int64, buf []float32) []datastore.Volume10MSRow {
	windows := rmsSeries(buf, hop10MS, window10MS)
	rows := make([]datastore.Volume10MSRow, 0, len(windows))
	for _, w := range windows {
		startMSRel := int64(math.Round(float64(w.startSample) * 1000.0 / sampleRate))
		rows = append(rows, datastore.Volume10MSRow{
			RecordingID:  recordingID,
			AudioFrameNo: frameNo,
			StartMS:      baseStartMS + startMSRel,
			EndMS:        baseStartMS + startMSRel + 9,
			RMS:          w.rms,
			DB:           w.db,
			SampleRate:   sampleRate,
		})
	}
	return rows
}

// Series1MS produces one row per 1ms window, persisted only when the
// caller explicitly invokes this emitter (spec.md §4.7).
func Series1MS(recordingID, frameNo int64, baseStartMS int64, buf []float32) []datastore.Volume1MSRow {
	windows := rmsSeries(buf, hop1MS, window1MS)
	rows := make([]datastore.Volume1MSRow, 0, len(windows))
	for _, w := range windows {
		startMSRel := int64(math.Round(float64(w.startSample) * 1000.0 / sampleRate))
		rows = append(rows, datastore.Volume1MSRow{
			RecordingID:  recordingID,
			AudioFrameNo: frameNo,
			StartMS:      baseStartMS + startMSRel,
			RMS:          w.rms,
			DB:           w.db,
			SampleRate:   sampleRate,
		})
	}
	return rows
}

// SampleRate returns the fixed operating rate this analyzer runs at.
func SampleRate() int { return sampleRate }
