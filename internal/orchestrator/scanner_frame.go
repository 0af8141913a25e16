package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

// scan3BFrame is Scanner 3B: it drains queued FRAME messages, records
// each one's pre-split-frame entity, feeds its raw audio through the
// frame aligner, and deposits every complete 100ms split frame the
// aligner slices off into the state store for Scanner 6 to pick up.
func (o *Orchestrator) scan3BFrame(ctx context.Context) {
	for _, msg := range o.store.PendingUnqueued(state.MessageFrame) {
		o.store.MarkQueued(msg.MessageID, time.Now())
		msg := msg
		o.dispatchCPU(func() { o.processFrame(ctx, msg) })
	}
}

func (o *Orchestrator) processFrame(ctx context.Context, msg *state.Message) {
	o.store.MarkStarted(msg.MessageID, time.Now())
	defer o.store.RemoveMessage(msg.MessageID)

	cfg, ok := o.store.Config(msg.RecordingID)
	if !ok {
		logging.Warn("orchestrator: frame message for unknown recording, dropping", "recording_id", msg.RecordingID)
		return
	}

	preSplit := o.buildPreSplitFrame(cfg, msg)
	o.store.PutPreSplitFrame(preSplit)

	frames := o.aligner.Add(msg.RecordingID, msg.Payload)

	// Stamped once the bytes have entered the aligner and never mutated
	// again (spec.md §4 edge cases: "Pre-split-frame metadata is never
	// mutated after DT_FRAME_SPLIT_INTO_100_MS_FRAMES is stamped").
	splitAt := time.Now()
	preSplit.DTFrameSplitInto100MSFrames = &splitAt
	o.persistPreSplitFrame(ctx, preSplit)

	for _, fr := range frames {
		sf := o.buildSplitFrame(cfg, fr.FrameNo, fr.Bytes)
		o.store.PutSplitFrame(sf)
		o.logStep("FRAME_SPLIT", "processFrame", "scanner_frame.go", msg.RecordingID, fr.FrameNo, fr.FrameNo)
	}
}

// buildPreSplitFrame records the client-sized payload as a live
// pre-split-frame entity and stages it to the recording's working
// directory (spec.md §6: "pre-split frame files, one per pre-split-frame
// number, zero-padded 8-digit name").
func (o *Orchestrator) buildPreSplitFrame(cfg *state.RecordingConfig, msg *state.Message) *state.PreSplitFrame {
	frameMS := int64(o.settings.Audio.FrameMS)
	startMS := msg.AudioFrameNo * frameMS
	endMS := startMS + frameMS - 1

	received := msg.DTMessageReceived
	paired := time.Now()
	sum := sha256.Sum256(msg.Payload)

	pf := &state.PreSplitFrame{
		RecordingID:                         msg.RecordingID,
		AudioFrameNo:                        msg.AudioFrameNo,
		StartMS:                             startMS,
		EndMS:                               endMS,
		DTFrameReceived:                     &received,
		DTFramePairedWithWebsocketsMetadata: &paired,
		AudioFrameSizeBytes:                 len(msg.Payload),
		AudioFrameEncoding:                  "raw",
		AudioFrameSHA256Hex:                 hex.EncodeToString(sum[:]),
		WebsocketConnectionID:               cfg.WebsocketConnectionID,
		AudioFrameBytes:                     msg.Payload,
	}

	if err := o.writePreSplitFrameFile(msg.RecordingID, msg.AudioFrameNo, msg.Payload); err != nil {
		logging.Warn("orchestrator: failed to write pre-split frame file", "recording_id", msg.RecordingID, "frame_no", msg.AudioFrameNo, "error", err)
	}

	return pf
}

// persistPreSplitFrame writes the pre-split frame's durable metadata row.
func (o *Orchestrator) persistPreSplitFrame(ctx context.Context, pf *state.PreSplitFrame) {
	row := datastore.PreSplitAudioFrameRow{
		RecordingID:                         pf.RecordingID,
		AudioFrameNo:                        pf.AudioFrameNo,
		StartMS:                             pf.StartMS,
		EndMS:                               pf.EndMS,
		DTFrameReceived:                     pf.DTFrameReceived,
		DTFramePairedWithWebsocketsMetadata: pf.DTFramePairedWithWebsocketsMetadata,
		AudioFrameSizeBytes:                 pf.AudioFrameSizeBytes,
		AudioFrameEncoding:                  pf.AudioFrameEncoding,
		AudioFrameSHA256Hex:                 pf.AudioFrameSHA256Hex,
		WebsocketConnectionID:               pf.WebsocketConnectionID,
		PreSplitAudioFrameDurationInMS:      pf.EndMS - pf.StartMS + 1,
		DTFrameSplitInto100MSFrames:         pf.DTFrameSplitInto100MSFrames,
	}
	o.persist(ctx, []datastore.PreSplitAudioFrameRow{row}, "ENGINE_DB_LOG_PRE_SPLIT_AUDIO_FRAME")
}

// writePreSplitFrameFile stages one pre-split frame's raw bytes under the
// recording's working directory, named with a zero-padded 8-digit frame
// number (spec.md §6).
func (o *Orchestrator) writePreSplitFrameFile(recordingID, frameNo int64, payload []byte) error {
	dir := filepath.Join(o.settings.WorkDir, strconv.FormatInt(recordingID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("%08d", frameNo))
	return os.WriteFile(path, payload, 0o644)
}
