package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diamondadamsteven/violin-engine/internal/state"
)

func TestAdvanceFrameTracking_ContiguousSequenceNoGaps(t *testing.T) {
	m := NewManager(state.New())

	next, missing := m.advanceFrameTracking(1, 1)
	assert.Equal(t, int64(2), next)
	assert.Empty(t, missing)

	next, missing = m.advanceFrameTracking(1, 2)
	assert.Equal(t, int64(3), next)
	assert.Empty(t, missing)
}

func TestAdvanceFrameTracking_GapReportedOnce(t *testing.T) {
	m := NewManager(state.New())

	m.advanceFrameTracking(1, 1)
	next, missing := m.advanceFrameTracking(1, 4)
	assert.Equal(t, int64(5), next)
	assert.Equal(t, []int64{2, 3}, missing)

	// Sending frame 4 again (or any later one) must not re-report 2 and 3.
	_, missingAgain := m.advanceFrameTracking(1, 5)
	assert.Empty(t, missingAgain)
}

func TestAdvanceFrameTracking_SeparateRecordingsTrackedIndependently(t *testing.T) {
	m := NewManager(state.New())

	m.advanceFrameTracking(1, 1)
	next, missing := m.advanceFrameTracking(2, 1)
	assert.Equal(t, int64(2), next)
	assert.Empty(t, missing)
}

func TestDecodeFramePayload_Base64(t *testing.T) {
	msg := &clientMessage{AudioFrameBase64: "AAEC"} // 0x00 0x01 0x02
	b, err := decodeFramePayload(msg)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, b)
}

func TestDecodeFramePayload_Hex(t *testing.T) {
	msg := &clientMessage{AudioFrameHex: "000102"}
	b, err := decodeFramePayload(msg)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, b)
}

func TestDecodeFramePayload_InvalidBase64ReturnsError(t *testing.T) {
	msg := &clientMessage{AudioFrameBase64: "not-valid-base64!!"}
	_, err := decodeFramePayload(msg)
	assert.Error(t, err)
}

func TestManager_EnqueuedStartMessageIsPendingUnqueued(t *testing.T) {
	store := state.New()
	m := NewManager(store)
	sess := store.NewSession("127.0.0.1", "1234", "")

	m.nextExpected[7] = 0 // sanity init, mirrors fresh manager state
	m.store.Enqueue(&state.Message{SessionID: sess.SessionID, RecordingID: 7, Kind: state.MessageStart})

	pending := store.PendingUnqueued(state.MessageStart)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(7), pending[0].RecordingID)
}

func TestInferStopOnDisconnect_EnqueuesStopForUnstoppedRecording(t *testing.T) {
	store := state.New()
	m := NewManager(store)
	sess := store.NewSession("127.0.0.1", "1234", "")

	// Mirrors what handleStart records, without needing a live socket.
	m.sessionRecordings[sess.SessionID] = map[int64]bool{7: true}

	m.inferStopOnDisconnect(sess.SessionID, time.Now())

	pending := store.PendingUnqueued(state.MessageStop)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(7), pending[0].RecordingID)
	assert.Equal(t, sess.SessionID, pending[0].SessionID)
}

func TestInferStopOnDisconnect_NoOpAfterExplicitStop(t *testing.T) {
	store := state.New()
	m := NewManager(store)
	sess := store.NewSession("127.0.0.1", "1234", "")

	m.sessionRecordings[sess.SessionID] = map[int64]bool{7: true}
	m.forgetRecording(sess.SessionID, 7) // mirrors what handleStop does on an explicit STOP

	m.inferStopOnDisconnect(sess.SessionID, time.Now())

	assert.Empty(t, store.PendingUnqueued(state.MessageStop))
}

func TestInferStopOnDisconnect_MultipleRecordingsOnOneSession(t *testing.T) {
	store := state.New()
	m := NewManager(store)
	sess := store.NewSession("127.0.0.1", "1234", "")

	m.sessionRecordings[sess.SessionID] = map[int64]bool{7: true, 8: true}

	m.inferStopOnDisconnect(sess.SessionID, time.Now())

	pending := store.PendingUnqueued(state.MessageStop)
	require.Len(t, pending, 2)
	ids := []int64{pending[0].RecordingID, pending[1].RecordingID}
	assert.ElementsMatch(t, []int64{7, 8}, ids)
}
