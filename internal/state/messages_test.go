package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EnqueueAssignsMonotonicIDs(t *testing.T) {
	s := New()

	id1 := s.Enqueue(&Message{Kind: MessageStart, RecordingID: 1})
	id2 := s.Enqueue(&Message{Kind: MessageFrame, RecordingID: 1})

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestStore_PendingUnqueuedFiltersByKindAndStamp(t *testing.T) {
	s := New()

	startID := s.Enqueue(&Message{Kind: MessageStart, RecordingID: 1})
	s.Enqueue(&Message{Kind: MessageFrame, RecordingID: 1})

	pending := s.PendingUnqueued(MessageStart)
	require.Len(t, pending, 1)
	assert.Equal(t, startID, pending[0].MessageID)

	s.MarkQueued(startID, time.Now())
	assert.Empty(t, s.PendingUnqueued(MessageStart))
}

func TestStore_PendingUnstartedFiltersByStartedStamp(t *testing.T) {
	s := New()
	frameID := s.Enqueue(&Message{Kind: MessageFrame, RecordingID: 1, AudioFrameNo: 1})

	pending := s.PendingUnstarted(MessageFrame)
	require.Len(t, pending, 1)

	s.MarkStarted(frameID, time.Now())
	assert.Empty(t, s.PendingUnstarted(MessageFrame))
}

func TestStore_RemoveMessageDropsItFromQueue(t *testing.T) {
	s := New()
	id := s.Enqueue(&Message{Kind: MessageStop, RecordingID: 1})

	s.RemoveMessage(id)

	assert.Empty(t, s.PendingUnqueued(MessageStop))
}

func TestStore_MessagesScanInReceivedOrder(t *testing.T) {
	s := New()
	s.Enqueue(&Message{Kind: MessageFrame, AudioFrameNo: 1})
	s.Enqueue(&Message{Kind: MessageFrame, AudioFrameNo: 2})
	s.Enqueue(&Message{Kind: MessageFrame, AudioFrameNo: 3})

	pending := s.PendingUnqueued(MessageFrame)
	require.Len(t, pending, 3)
	assert.Equal(t, int64(1), pending[0].AudioFrameNo)
	assert.Equal(t, int64(2), pending[1].AudioFrameNo)
	assert.Equal(t, int64(3), pending[2].AudioFrameNo)
}
