// Package metalog is the process-wide pipeline milestone logger (C13): a
// non-blocking, buffered-channel fan-in writing StepLogRow entries via
// bulk insert. Distinct from internal/events, which carries error events
// for the error-reporting bus — this carries routine step milestones
// (frame received, analyzer started/ended, finalize) for operational
// observability.
package metalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
)

// DefaultBufferSize bounds how many pending step entries can queue before
// Log starts silently dropping them rather than blocking the caller.
const DefaultBufferSize = 10000

// DefaultFlushInterval is how often buffered rows are bulk-inserted.
const DefaultFlushInterval = 500 * time.Millisecond

// DefaultBatchSize caps how many rows one flush will insert.
const DefaultBatchSize = 500

// inserter is the subset of *datastore.DataStore this package needs,
// kept narrow so tests can supply a fake.
type inserter interface {
	BulkInsert(ctx context.Context, rows interface{}, statementName string) error
}

// entry is one queued step before its call-time is stamped — stamped at
// enqueue time rather than at flush time so the row reflects when the
// step actually happened, not when it was persisted.
type entry struct {
	StepName     string
	FunctionName string
	FileName     string
	RecordingID  int64
	AudioChunkNo int64
	FrameNo      int64
	At           time.Time
}

// Logger owns the buffered channel and flush worker. One Logger per
// process, started at boot and stopped at shutdown.
type Logger struct {
	ds    inserter
	ch    chan entry
	batch int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	dropped atomic.Int64
}

// New creates a Logger with the given buffer/batch sizing and starts its
// background flush worker immediately.
func New(ds inserter, bufferSize, batchSize int, flushInterval time.Duration) *Logger {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Logger{
		ds:     ds,
		ch:     make(chan entry, bufferSize),
		batch:  batchSize,
		ctx:    ctx,
		cancel: cancel,
	}

	l.wg.Add(1)
	go l.run(flushInterval)
	return l
}

// Log enqueues one pipeline milestone. Never blocks: if the buffer is
// full the entry is dropped and counted, not awaited.
func (l *Logger) Log(stepName, functionName, fileName string, recordingID, chunkNo, frameNo int64) {
	e := entry{
		StepName:     stepName,
		FunctionName: functionName,
		FileName:     fileName,
		RecordingID:  recordingID,
		AudioChunkNo: chunkNo,
		FrameNo:      frameNo,
		At:           time.Now(),
	}
	select {
	case l.ch <- e:
	default:
		l.dropped.Add(1)
	}
}

// DroppedCount returns how many log entries have been dropped for lack
// of buffer space since this Logger was created.
func (l *Logger) DroppedCount() int64 {
	return l.dropped.Load()
}

func (l *Logger) run(flushInterval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	pending := make([]entry, 0, l.batch)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		rows := make([]datastore.StepLogRow, len(pending))
		for i, e := range pending {
			rows[i] = datastore.StepLogRow{
				StepName:     e.StepName,
				FunctionName: e.FunctionName,
				FileName:     e.FileName,
				RecordingID:  e.RecordingID,
				AudioChunkNo: e.AudioChunkNo,
				FrameNo:      e.FrameNo,
				DTStepCalled: e.At,
			}
		}
		if err := l.ds.BulkInsert(context.Background(), rows, "ENGINE_DB_LOG_STEPS"); err != nil {
			logging.Warn("metalog: flush failed, rows dropped", "count", len(rows), "error", err)
		}
		pending = pending[:0]
	}

	for {
		select {
		case <-l.ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case e := <-l.ch:
					pending = append(pending, e)
					if len(pending) >= l.batch {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case e := <-l.ch:
			pending = append(pending, e)
			if len(pending) >= l.batch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Shutdown stops the flush worker after draining any queued entries.
func (l *Logger) Shutdown() {
	l.cancel()
	l.wg.Wait()
}
