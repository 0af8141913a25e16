package orchestrator

import (
	"context"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/logging"
)

// scan7Finalize is Scanner 7: once a recording's STOP has been processed,
// its finalize grace window has elapsed, and no split frames remain in
// flight, it hands the recording to the finalizer to concatenate its WAV
// fragments and signal end-of-recording downstream.
func (o *Orchestrator) scan7Finalize(ctx context.Context) {
	if o.finalizer == nil {
		return
	}
	grace := time.Duration(o.settings.Orchestrator.FinalizeGraceSecs) * time.Second

	for _, cfg := range o.store.AllConfigs() {
		if cfg.DTRecordingEnd == nil {
			continue
		}
		if time.Since(*cfg.DTRecordingEnd) < grace {
			continue
		}
		if len(o.store.SplitFramesForRecording(cfg.RecordingID)) > 0 {
			continue
		}

		recordingID := cfg.RecordingID
		o.dispatchLongRunning(func() {
			if err := o.finalizer.Finalize(ctx, recordingID); err != nil {
				logging.Warn("orchestrator: finalize failed", "recording_id", recordingID, "error", err)
				return
			}
			o.logStep("FINALIZED", "scan7Finalize", "scanner_finalize.go", recordingID, 0, 0)
		})
	}
}
