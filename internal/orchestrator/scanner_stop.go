package orchestrator

import (
	"context"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

// scan3CStop is Scanner 3C: it drains queued STOP messages, flushes the
// aligner's final short frame (if any) for the recording, stamps the
// recording's end time, and closes its session. The recording itself is
// left in the store for Scanner 6/7 to drain and finalize.
func (o *Orchestrator) scan3CStop(ctx context.Context) {
	for _, msg := range o.store.PendingUnqueued(state.MessageStop) {
		o.store.MarkQueued(msg.MessageID, time.Now())
		msg := msg
		o.dispatchCPU(func() { o.processStop(ctx, msg) })
	}
}

func (o *Orchestrator) processStop(ctx context.Context, msg *state.Message) {
	o.store.MarkStarted(msg.MessageID, time.Now())
	defer o.store.RemoveMessage(msg.MessageID)

	cfg, ok := o.store.Config(msg.RecordingID)
	if !ok {
		logging.Warn("orchestrator: stop message for unknown recording, dropping", "recording_id", msg.RecordingID)
		return
	}

	if final := o.aligner.Flush(msg.RecordingID); final != nil {
		sf := o.buildSplitFrame(cfg, final.FrameNo, final.Bytes)
		o.store.PutSplitFrame(sf)
	}

	now := time.Now()
	cfg.DTRecordingEnd = &now
	o.store.PutConfig(cfg)

	o.store.CloseSession(msg.SessionID, now)
	o.logStep("STOP", "processStop", "scanner_stop.go", msg.RecordingID, 0, 0)
}
