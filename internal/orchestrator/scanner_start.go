package orchestrator

import (
	"context"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

// scan3AStart is Scanner 3A: it drains queued START messages and loads
// each recording's configuration from the downstream database, seeding
// the live state store before any frame can be processed.
func (o *Orchestrator) scan3AStart(ctx context.Context) {
	for _, msg := range o.store.PendingUnqueued(state.MessageStart) {
		o.store.MarkQueued(msg.MessageID, time.Now())
		msg := msg
		o.dispatchLongRunning(func() { o.processStart(ctx, msg) })
	}
}

func (o *Orchestrator) processStart(ctx context.Context, msg *state.Message) {
	o.store.MarkStarted(msg.MessageID, time.Now())
	defer o.store.RemoveMessage(msg.MessageID)

	var row datastore.RecordingConfigRow
	if err := o.ds.CallProcedureSingleRow(ctx, datastore.SPAllRecordingParametersGet, &row, msg.RecordingID); err != nil {
		logging.Warn("orchestrator: loading recording config failed", "recording_id", msg.RecordingID, "error", err)
		return
	}

	now := time.Now()
	cfg := &state.RecordingConfig{
		RecordingID:                        msg.RecordingID,
		DTRecordingStart:                   &now,
		ComposePlayOrPractice:              row.ComposePlayOrPractice,
		ViolinistID:                        row.ViolinistID,
		AudioStreamFileName:                row.AudioStreamFileName,
		ComposeYNRunFFT:                    row.ComposeYNRunFFT,
		WebsocketConnectionID:              msg.SessionID,
		DTProcessWebsocketStartMessageDone: &now,
		ChunkPlan:                          o.loadChunkPlan(ctx, msg.RecordingID, row.ComposePlayOrPractice),
	}
	o.store.PutConfig(cfg)
	o.logStep("START", "processStart", "scanner_start.go", msg.RecordingID, 0, 0)
}

// loadChunkPlan calls the mode-specific chunk-plan stored procedure —
// COMPOSE reads the song's composed chunk layout, PLAY/PRACTICE reads the
// learner's prior progress — per spec.md §6's "load parameters at start"
// call point.
func (o *Orchestrator) loadChunkPlan(ctx context.Context, recordingID int64, mode string) []state.ChunkPlanEntry {
	spName := datastore.SPSongAudioChunkForPlayAndPracticeGet
	if mode == "COMPOSE" {
		spName = datastore.SPSongAudioChunkForComposeGet
	}

	var rows []datastore.ChunkPlanRow
	if err := o.ds.CallProcedureMultipleRows(ctx, spName, &rows, recordingID); err != nil {
		logging.Warn("orchestrator: loading chunk plan failed", "recording_id", recordingID, "mode", mode, "error", err)
		return nil
	}

	plan := make([]state.ChunkPlanEntry, len(rows))
	for i, r := range rows {
		plan[i] = state.ChunkPlanEntry{AudioChunkNo: r.AudioChunkNo, StartMS: r.StartMS, EndMS: r.EndMS}
	}
	return plan
}
