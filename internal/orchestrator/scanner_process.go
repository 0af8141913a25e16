package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/analyzer/pitcha"
	"github.com/diamondadamsteven/violin-engine/internal/analyzer/spectral"
	"github.com/diamondadamsteven/violin-engine/internal/analyzer/volume"
	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

// scan6ProcessSplitFrames is Scanner 6: it sweeps every live recording's
// split frames not yet claimed for processing and hands each one to its
// own coordinator goroutine. A frame is claimed by stamping its
// DTProcessingStart before dispatch, so a slow tick never re-dispatches
// work already in flight. The coordinator itself fans the frame's
// analyzers out across both worker pools rather than running them
// sequentially (spec.md §2/§4.11: "C3-C7 fan out in parallel").
func (o *Orchestrator) scan6ProcessSplitFrames(ctx context.Context) {
	for _, cfg := range o.store.AllConfigs() {
		for _, sf := range o.store.SplitFramesForRecording(cfg.RecordingID) {
			if sf.DTProcessingStart != nil {
				continue
			}
			now := time.Now()
			sf.DTProcessingStart = &now
			o.store.PutSplitFrame(sf)

			sf := sf
			o.wg.Add(1)
			go func() {
				defer o.wg.Done()
				o.processSplitFrame(ctx, sf)
			}()
		}
	}
}

// processSplitFrame coordinates one split frame's analyzer fan-out: C3
// (spectral), C4 (pitch-A), C5 (pitch-B), and C7 (volume) each run as
// their own CPU-pool task; C6 (onset/note) is HTTP work and runs on the
// long-running pool instead. All five run concurrently and
// processSplitFrame blocks only on their completion, never on the tick
// thread.
func (o *Orchestrator) processSplitFrame(ctx context.Context, sf *state.SplitFrame) {
	recordingID, frameNo, baseStartMS := sf.RecordingID, sf.AudioFrameNo, sf.StartMS

	var wg sync.WaitGroup

	if sf.YNRunFFT == "Y" {
		wg.Add(1)
		o.dispatchCPU(func() {
			defer wg.Done()
			start := time.Now()
			sf.DTStartFFT = &start
			spec := spectral.New(o.settings.Audio.FrameMS)
			rows := spec.Analyze(recordingID, frameNo, baseStartMS, sf.AudioArray16000, spectral.SampleRate())
			sf.FFTRecordCnt = len(rows)
			o.persist(ctx, rows, "ENGINE_DB_LOG_FFT")
			end := time.Now()
			sf.DTEndFFT = &end
		})
	}

	if sf.YNRunPYIN == "Y" {
		wg.Add(1)
		o.dispatchCPU(func() {
			defer wg.Done()
			start := time.Now()
			sf.DTStartPYIN = &start
			rows := pitcha.Analyze(recordingID, frameNo, baseStartMS, sf.AudioArray22050)
			sf.PYINRecordCnt = len(rows)
			o.persist(ctx, rows, "ENGINE_DB_LOG_PITCH")
			end := time.Now()
			sf.DTEndPYIN = &end
		})
	}

	if sf.YNRunCREPE == "Y" && o.pitchModel != nil {
		wg.Add(1)
		o.dispatchCPU(func() {
			defer wg.Done()
			start := time.Now()
			sf.DTStartCREPE = &start
			rows := o.pitchModel.Analyze(recordingID, frameNo, baseStartMS, sf.AudioArray16000)
			sf.CREPERecordCnt = len(rows)
			o.persist(ctx, rows, "ENGINE_DB_LOG_PITCH")
			end := time.Now()
			sf.DTEndCREPE = &end
		})
	}

	if sf.YNRunONS == "Y" && o.onset != nil {
		wg.Add(1)
		o.dispatchLongRunning(func() {
			defer wg.Done()
			start := time.Now()
			sf.DTStartONS = &start
			wavPath := o.chunkFragmentPath(recordingID, frameNo)
			rows := o.onset.Analyze(ctx, recordingID, frameNo, baseStartMS, wavPath)
			sf.ONSRecordCnt = len(rows)
			o.persist(ctx, rows, "ENGINE_DB_LOG_NOTE")
			end := time.Now()
			sf.DTEndONS = &end
		})
	}

	wg.Add(1)
	o.dispatchCPU(func() {
		defer wg.Done()
		aggRow := volume.Aggregate(recordingID, frameNo, baseStartMS, sf.AudioArray22050)
		o.persist(ctx, []datastore.VolumeAggregateRow{aggRow}, "ENGINE_DB_LOG_VOLUME")

		tenMS := volume.Series10MS(recordingID, frameNo, baseStartMS, sf.AudioArray22050)
		sf.Volume10MSRecordCnt = len(tenMS)
		o.persist(ctx, tenMS, "ENGINE_DB_LOG_VOLUME_10_MS")

		oneMS := volume.Series1MS(recordingID, frameNo, baseStartMS, sf.AudioArray22050)
		sf.Volume1MSRecordCnt = len(oneMS)
		o.persist(ctx, oneMS, "ENGINE_DB_LOG_VOLUME_1_MS")
	})

	wg.Wait()

	now := time.Now()
	sf.DTProcessingEnd = &now
	o.logStep("FRAME_PROCESSED", "processSplitFrame", "scanner_process.go", recordingID, frameNo, frameNo)

	o.persistSplitFrameRow(ctx, sf)

	if err := o.ds.CallProcedureNoResult(ctx, datastore.SPMethodComplete, recordingID, frameNo); err != nil {
		logging.Warn("orchestrator: method-complete procedure failed", "recording_id", recordingID, "frame_no", frameNo, "error", err)
	}

	// The split frame's durable footprint is the row just persisted plus
	// the analyzer rows persisted above; its live copy in the store is no
	// longer needed once Scanner 7 can see the recording has nothing left
	// in flight.
	o.store.DeleteSplitFrame(recordingID, frameNo)
}

// persistSplitFrameRow writes the split frame's durable metadata row,
// including every per-analyzer row count, once its fan-out has finished
// (spec.md §9 testable property 4: per-frame row counts are verifiable
// from the database, not only from in-memory state).
func (o *Orchestrator) persistSplitFrameRow(ctx context.Context, sf *state.SplitFrame) {
	row := datastore.SplitAudioFrameRow{
		RecordingID:                             sf.RecordingID,
		AudioFrameNo:                            sf.AudioFrameNo,
		StartMS:                                 sf.StartMS,
		EndMS:                                   sf.EndMS,
		AudioFrameSizeBytes:                      sf.AudioFrameSizeBytes,
		AudioFrameEncoding:                       sf.AudioFrameEncoding,
		AudioFrameSHA256Hex:                      sf.AudioFrameSHA256Hex,
		YNRunFFT:                                 sf.YNRunFFT,
		YNRunONS:                                 sf.YNRunONS,
		YNRunPYIN:                                sf.YNRunPYIN,
		YNRunCREPE:                               sf.YNRunCREPE,
		DTFrameDecodedFromBase64ToBytes:           sf.DTFrameDecodedFromBase64ToBytes,
		DTFrameDecodedFromBytesIntoAudioSamples:   sf.DTFrameDecodedFromBytesIntoAudioSamples,
		DTFrameResampledTo44100:                   sf.DTFrameResampledTo44100,
		DTProcessingStart:                         sf.DTProcessingStart,
		DTProcessingEnd:                           sf.DTProcessingEnd,
		DTStartFFT:                                sf.DTStartFFT,
		DTEndFFT:                                  sf.DTEndFFT,
		DTStartONS:                                sf.DTStartONS,
		DTEndONS:                                  sf.DTEndONS,
		DTStartPYIN:                               sf.DTStartPYIN,
		DTEndPYIN:                                 sf.DTEndPYIN,
		DTStartCREPE:                              sf.DTStartCREPE,
		DTEndCREPE:                                sf.DTEndCREPE,
		FFTRecordCnt:                              sf.FFTRecordCnt,
		ONSRecordCnt:                              sf.ONSRecordCnt,
		PYINRecordCnt:                             sf.PYINRecordCnt,
		CREPERecordCnt:                            sf.CREPERecordCnt,
		Volume1MSRecordCnt:                        sf.Volume1MSRecordCnt,
		Volume10MSRecordCnt:                       sf.Volume10MSRecordCnt,
	}
	o.persist(ctx, []datastore.SplitAudioFrameRow{row}, "ENGINE_DB_LOG_SPLIT_100_MS_AUDIO_FRAME")
}

// persist bulk-inserts a non-empty analyzer row slice, logging (not
// failing the frame) on error — an analyzer's output is best-effort
// durability, not a blocking dependency for the next frame.
func (o *Orchestrator) persist(ctx context.Context, rows interface{}, table string) {
	if err := o.ds.BulkInsert(ctx, rows, table); err != nil {
		logging.Warn("orchestrator: bulk insert failed", "table", table, "error", err)
	}
}
