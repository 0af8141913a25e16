package events

import (
	"context"
	"log/slog"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeErrorEvent struct {
	component string
	category  string
	message   string
	ts        time.Time
	reported  atomic.Bool
}

func (e *fakeErrorEvent) GetComponent() string               { return e.component }
func (e *fakeErrorEvent) GetCategory() string                { return e.category }
func (e *fakeErrorEvent) GetContext() map[string]interface{} { return nil }
func (e *fakeErrorEvent) GetTimestamp() time.Time            { return e.ts }
func (e *fakeErrorEvent) GetError() error                    { return nil }
func (e *fakeErrorEvent) GetMessage() string                 { return e.message }
func (e *fakeErrorEvent) IsReported() bool                   { return e.reported.Load() }
func (e *fakeErrorEvent) MarkReported()                      { e.reported.Store(true) }

type recordingConsumer struct {
	name      string
	batching  bool
	mu        sync.Mutex
	processed []ErrorEvent
}

func (c *recordingConsumer) Name() string { return c.name }

func (c *recordingConsumer) ProcessEvent(event ErrorEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed = append(c.processed, event)
	return nil
}

func (c *recordingConsumer) ProcessBatch(events []ErrorEvent) error {
	for _, e := range events {
		if err := c.ProcessEvent(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *recordingConsumer) SupportsBatching() bool { return c.batching }

func (c *recordingConsumer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processed)
}

type panicConsumer struct{}

func (panicConsumer) Name() string                          { return "panics" }
func (panicConsumer) ProcessEvent(event ErrorEvent) error    { panic("boom") }
func (panicConsumer) ProcessBatch(events []ErrorEvent) error { panic("boom") }
func (panicConsumer) SupportsBatching() bool                 { return false }

func newTestBus(t *testing.T, bufferSize, workers int) *EventBus {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		eventChan:  make(chan ErrorEvent, bufferSize),
		bufferSize: bufferSize,
		workers:    workers,
		consumers:  make([]EventConsumer, 0),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:        ctx,
		cancel:     cancel,
	}
	eb.initialized.Store(true)
	t.Cleanup(func() { _ = eb.Shutdown(time.Second) })
	return eb
}

func TestEventBus_PublishWithoutConsumersIsDropped(t *testing.T) {
	eb := newTestBus(t, 4, 1)
	ok := eb.TryPublish(&fakeErrorEvent{component: "aligner", category: "integrity", ts: time.Now()})
	assert.False(t, ok, "no consumers registered yet, publish should be rejected")
}

func TestEventBus_RegisterConsumerStartsWorkers(t *testing.T) {
	eb := newTestBus(t, 16, 2)
	consumer := &recordingConsumer{name: "metalog"}
	require.NoError(t, eb.RegisterConsumer(consumer))

	for i := 0; i < 5; i++ {
		ok := eb.TryPublish(&fakeErrorEvent{component: "orchestrator", category: "protocol", ts: time.Now()})
		assert.True(t, ok)
	}

	assert.Eventually(t, func() bool { return consumer.count() == 5 }, time.Second, 5*time.Millisecond)
}

func TestEventBus_DuplicateConsumerNameRejected(t *testing.T) {
	eb := newTestBus(t, 16, 1)
	require.NoError(t, eb.RegisterConsumer(&recordingConsumer{name: "metalog"}))
	err := eb.RegisterConsumer(&recordingConsumer{name: "metalog"})
	assert.Error(t, err)
}

func TestEventBus_FullBufferDropsRatherThanBlocks(t *testing.T) {
	eb := newTestBus(t, 1, 0) // zero workers: nothing drains the channel
	eb.consumers = append(eb.consumers, &recordingConsumer{name: "slow"})
	eb.running.Store(true)

	assert.True(t, eb.TryPublish(&fakeErrorEvent{component: "a", ts: time.Now()}))
	assert.False(t, eb.TryPublish(&fakeErrorEvent{component: "b", ts: time.Now()}), "second publish should be dropped once the buffer is full")

	stats := eb.GetStats()
	assert.Equal(t, uint64(1), stats.EventsDropped)
}

func TestEventBus_ConsumerPanicDoesNotCrashWorker(t *testing.T) {
	eb := newTestBus(t, 16, 1)
	require.NoError(t, eb.RegisterConsumer(panicConsumer{}))
	require.NoError(t, eb.RegisterConsumer(&recordingConsumer{name: "survivor"}))

	assert.True(t, eb.TryPublish(&fakeErrorEvent{component: "aligner", ts: time.Now()}))

	assert.Eventually(t, func() bool {
		stats := eb.GetStats()
		return stats.EventsProcessed+stats.ConsumerErrors >= 2
	}, time.Second, 5*time.Millisecond)
}
