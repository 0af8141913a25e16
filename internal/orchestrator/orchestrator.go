// Package orchestrator is the Orchestrator (C11): a single tick loop that
// dispatches five non-blocking scanners over the recording state store,
// fanning work out onto a CPU-bound analyzer pool and a long-running
// (I/O-bound) pool. Modeled on the donor's internal/analysis/jobqueue
// dispatch loop (tick, find due work, hand off to a goroutine bounded by
// a worker pool) generalized from per-job retry scheduling to per-tick
// scanner discovery.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/aligner"
	"github.com/diamondadamsteven/violin-engine/internal/analyzer/onset"
	"github.com/diamondadamsteven/violin-engine/internal/analyzer/pitchb"
	"github.com/diamondadamsteven/violin-engine/internal/conf"
	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/diamondadamsteven/violin-engine/internal/finalizer"
	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/metalog"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

// datastoreClient is the subset of *datastore.DataStore the orchestrator
// needs, kept narrow so tests can supply a fake instead of a live
// database connection.
type datastoreClient interface {
	CallProcedureSingleRow(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	CallProcedureMultipleRows(ctx context.Context, name string, dest interface{}, args ...interface{}) error
	CallProcedureNoResult(ctx context.Context, name string, args ...interface{}) error
	BulkInsert(ctx context.Context, rows interface{}, statementName string) error
}

// onsetClient is the onset/note HTTP analyzer's contract.
type onsetClient interface {
	Analyze(ctx context.Context, recordingID, frameNo int64, baseStartMS int64, wavPath string) []datastore.NoteRow
}

// pitchModel is the neural pitch analyzer's contract.
type pitchModel interface {
	Analyze(recordingID, frameNo int64, baseStartMS int64, buf []float32) []datastore.PitchRow
}

// stepLogger is the process-wide milestone logger's contract.
type stepLogger interface {
	Log(stepName, functionName, fileName string, recordingID, chunkNo, frameNo int64)
}

// finalizerRunner is the finalizer's contract.
type finalizerRunner interface {
	Finalize(ctx context.Context, recordingID int64) error
}

// Orchestrator owns the tick loop and the two worker pools every scanner
// dispatches onto.
type Orchestrator struct {
	store    *state.Store
	ds       datastoreClient
	settings *conf.Settings
	aligner  *aligner.Manager

	onset      onsetClient
	pitchModel pitchModel
	metalog    stepLogger
	finalizer  finalizerRunner

	cpuSem  chan struct{}
	longSem chan struct{}
	wg      sync.WaitGroup

	stopCh chan struct{}
}

// New builds an Orchestrator. onsetClient/pitchModel/metalog/finalizer
// accept nil in tests that don't exercise the scanner touching them.
func New(store *state.Store, ds datastoreClient, settings *conf.Settings, alignerMgr *aligner.Manager, onsetCli onsetClient, pitchModel pitchModel, logger stepLogger, fin finalizerRunner) *Orchestrator {
	return &Orchestrator{
		store:      store,
		ds:         ds,
		settings:   settings,
		aligner:    alignerMgr,
		onset:      onsetCli,
		pitchModel: pitchModel,
		metalog:    logger,
		finalizer:  fin,
		cpuSem:     make(chan struct{}, settings.AnalyzerWorkerCount()),
		longSem:    make(chan struct{}, settings.Orchestrator.LongRunningWorkers),
		stopCh:     make(chan struct{}),
	}
}

// Run drives the tick loop until ctx is cancelled or Stop is called.
// Each tick invokes the five scanners; scanners only enqueue work, so a
// slow analyzer never stalls the tick thread. If a tick's scan phase
// itself overruns the interval, that overrun is logged and the loop
// proceeds without sleeping to catch up (spec.md §4.11).
func (o *Orchestrator) Run(ctx context.Context) {
	interval := o.settings.Orchestrator.TickInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopCh:
			return
		case <-ticker.C:
			start := time.Now()
			o.tick(ctx)
			if elapsed := time.Since(start); elapsed > interval {
				logging.Warn("orchestrator: tick overran budget", "elapsed", elapsed, "budget", interval)
			}
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	o.scan3AStart(ctx)
	o.scan3BFrame(ctx)
	o.scan3CStop(ctx)
	o.scan6ProcessSplitFrames(ctx)
	o.scan7Finalize(ctx)
}

// Stop signals Run to exit and waits for in-flight dispatched handlers to
// finish.
func (o *Orchestrator) Stop() {
	close(o.stopCh)
	o.wg.Wait()
}

// dispatchCPU spawns fn on the CPU-bound analyzer pool without blocking
// the caller — the goroutine itself blocks on the semaphore, not the
// tick thread.
func (o *Orchestrator) dispatchCPU(fn func()) {
	o.dispatch(o.cpuSem, fn)
}

// dispatchLongRunning spawns fn on the I/O-bound pool (HTTP calls, WAV
// file work) without blocking the caller.
func (o *Orchestrator) dispatchLongRunning(fn func()) {
	o.dispatch(o.longSem, fn)
}

func (o *Orchestrator) dispatch(sem chan struct{}, fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()
		fn()
	}()
}

func (o *Orchestrator) logStep(stepName, functionName string, recordingID, chunkNo, frameNo int64) {
	if o.metalog == nil {
		return
	}
	o.metalog.Log(stepName, functionName, "orchestrator", recordingID, chunkNo, frameNo)
}

var _ onsetClient = (*onset.Client)(nil)
var _ pitchModel = (*pitchb.Model)(nil)
var _ finalizerRunner = (*finalizer.Finalizer)(nil)
var _ stepLogger = (*metalog.Logger)(nil)
var _ datastoreClient = (*datastore.DataStore)(nil)
