package metalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diamondadamsteven/violin-engine/internal/datastore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInserter struct {
	mu   sync.Mutex
	rows []datastore.StepLogRow
}

func (f *fakeInserter) BulkInsert(ctx context.Context, rows interface{}, statementName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := rows.([]datastore.StepLogRow)
	f.rows = append(f.rows, r...)
	return nil
}

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func TestLogFlushesOnInterval(t *testing.T) {
	fake := &fakeInserter{}
	l := New(fake, 100, 50, 20*time.Millisecond)
	defer l.Shutdown()

	l.Log("STEP_START", "handleStart", "orchestrator.go", 1, 0, 0)

	require.Eventually(t, func() bool {
		return fake.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLogFlushesOnBatchSize(t *testing.T) {
	fake := &fakeInserter{}
	l := New(fake, 100, 3, time.Hour)
	defer l.Shutdown()

	for i := 0; i < 3; i++ {
		l.Log("STEP", "fn", "file.go", int64(i), 0, 0)
	}

	require.Eventually(t, func() bool {
		return fake.count() == 3
	}, time.Second, 5*time.Millisecond)
}

func TestLogNeverBlocksWithTinyBuffer(t *testing.T) {
	fake := &fakeInserter{}
	// Tiny buffer; the worker still drains it into its pending batch, so how
	// many entries are dropped depends on scheduling.
	l := New(fake, 1, 10000, time.Hour)
	defer l.Shutdown()

	for i := 0; i < 10; i++ {
		l.Log("STEP", "fn", "file.go", int64(i), 0, 0)
	}

	assert.GreaterOrEqual(t, l.DroppedCount(), int64(0))
}

func TestShutdownDrainsQueuedEntries(t *testing.T) {
	fake := &fakeInserter{}
	l := New(fake, 100, 1000, time.Hour)
	l.Log("STEP", "fn", "file.go", 1, 0, 0)
	l.Shutdown()
	assert.Equal(t, 1, fake.count())
}
