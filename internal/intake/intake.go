// Package intake is the Message Intake component: it accepts client
// channels over WebSocket, parses START/FRAME/STOP messages, pairs
// binary audio payloads with their preceding FRAME text message, and
// deposits the result into the recording state store for the
// orchestrator's scanners to pick up.
package intake

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/diamondadamsteven/violin-engine/internal/logging"
	"github.com/diamondadamsteven/violin-engine/internal/state"
)

// clientMessage is the wire shape of a textual inbound message.
type clientMessage struct {
	MessageType      string `json:"MESSAGE_TYPE"`
	RecordingID      int64  `json:"RECORDING_ID"`
	AudioFrameNo     int64  `json:"AUDIO_FRAME_NO"`
	AudioFrameBase64 string `json:"AUDIO_FRAME_BASE64,omitempty"`
	AudioFrameHex    string `json:"AUDIO_FRAME_HEX,omitempty"`
}

// ackMessage is the wire shape of the server's per-frame acknowledgment.
type ackMessage struct {
	Type                 string  `json:"type"`
	RecordingID          int64   `json:"RECORDING_ID"`
	FrameNo              int64   `json:"FRAME_NO"`
	NextExpectedFrameNo  int64   `json:"NEXT_EXPECTED_FRAME_NO"`
	MissingFrames        []int64 `json:"MISSING_FRAMES"`
}

type simpleAck struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// Manager upgrades incoming HTTP connections to WebSocket sessions and
// runs each session's receive loop.
type Manager struct {
	store    *state.Store
	upgrader websocket.Upgrader

	mu sync.Mutex
	// nextExpected tracks, per recording, one past the highest client
	// frame number accepted so far — used to compute MISSING_FRAMES once.
	nextExpected map[int64]int64
	// reportedGaps tracks which frame numbers have already been reported
	// missing for a recording, so a gap is only surfaced once.
	reportedGaps map[int64]map[int64]bool
	// sessionRecordings tracks, per session, the recordings that have been
	// started but not yet explicitly STOPped — used to infer a STOP on
	// disconnect (spec.md §4/§7: "Stopping a recording without a STOP is
	// inferred on disconnect by writing a stop marker").
	sessionRecordings map[int64]map[int64]bool
}

// NewManager creates an intake Manager bound to the shared state store.
func NewManager(store *state.Store) *Manager {
	return &Manager{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		nextExpected:      make(map[int64]int64),
		reportedGaps:      make(map[int64]map[int64]bool),
		sessionRecordings: make(map[int64]map[int64]bool),
	}
}

// RegisterRoutes wires the audio channel endpoint onto an echo instance.
func (m *Manager) RegisterRoutes(e *echo.Echo) {
	e.GET("/stream", m.handleConnect)
}

func (m *Manager) handleConnect(c echo.Context) error {
	ws, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sess := m.store.NewSession(c.RealIP(), "", c.Request().Header.Get("User-Agent"))
	now := time.Now()
	sess.DTConnectionAccepted = &now

	logging.Info("intake: session accepted", "session_id", sess.SessionID, "client_ip", sess.ClientHostIPAddress)

	go m.runSession(ws, sess)
	return nil
}

// runSession drives one session's receive loop until STOP or disconnect.
func (m *Manager) runSession(ws *websocket.Conn, sess *state.Session) {
	defer m.closeSession(ws, sess)

	var pendingFrame *clientMessage

	for {
		msgType, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var msg clientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				m.writeJSON(ws, simpleAck{Type: "ERROR", Error: "malformed message"})
				continue
			}

			switch msg.MessageType {
			case "START":
				m.handleStart(ws, sess, &msg)
			case "FRAME":
				if msg.AudioFrameBase64 != "" || msg.AudioFrameHex != "" {
					m.handleFrame(ws, sess, &msg, nil)
				} else {
					pendingFrame = &msg
				}
			case "STOP":
				m.handleStop(ws, sess, &msg)
				return
			default:
				m.writeJSON(ws, simpleAck{Type: "ERROR", Error: "unknown MESSAGE_TYPE"})
			}

		case websocket.BinaryMessage:
			if pendingFrame == nil {
				// Binary frame with no preceding FRAME text message; drop.
				continue
			}
			m.handleFrame(ws, sess, pendingFrame, payload)
			pendingFrame = nil
		}
	}
}

func (m *Manager) handleStart(ws *websocket.Conn, sess *state.Session, msg *clientMessage) {
	m.store.Enqueue(&state.Message{
		SessionID:         sess.SessionID,
		RecordingID:       msg.RecordingID,
		Kind:              state.MessageStart,
		DTMessageReceived: time.Now(),
	})

	m.mu.Lock()
	m.nextExpected[msg.RecordingID] = 1
	recs, ok := m.sessionRecordings[sess.SessionID]
	if !ok {
		recs = make(map[int64]bool)
		m.sessionRecordings[sess.SessionID] = recs
	}
	recs[msg.RecordingID] = true
	m.mu.Unlock()

	logging.Debug("intake: START received", "recording_id", msg.RecordingID, "session_id", sess.SessionID)
	m.writeJSON(ws, simpleAck{Type: "START_ACK"})
}

func (m *Manager) handleFrame(ws *websocket.Conn, sess *state.Session, msg *clientMessage, binary []byte) {
	if msg.AudioFrameNo <= 0 {
		// Non-positive client frame numbers are acknowledged but not persisted.
		m.mu.Lock()
		next := m.nextExpected[msg.RecordingID]
		m.mu.Unlock()
		m.writeJSON(ws, ackMessage{Type: "ACK", RecordingID: msg.RecordingID, FrameNo: msg.AudioFrameNo, NextExpectedFrameNo: next})
		return
	}

	payload := binary
	if payload == nil {
		var err error
		payload, err = decodeFramePayload(msg)
		if err != nil {
			logging.Warn("intake: failed to decode FRAME payload", "recording_id", msg.RecordingID, "error", err)
			m.writeJSON(ws, simpleAck{Type: "ERROR", Error: "failed to decode audio frame"})
			return
		}
	}

	m.store.Enqueue(&state.Message{
		SessionID:         sess.SessionID,
		RecordingID:       msg.RecordingID,
		Kind:              state.MessageFrame,
		AudioFrameNo:      msg.AudioFrameNo,
		Payload:           payload,
		DTMessageReceived: time.Now(),
	})

	next, missing := m.advanceFrameTracking(msg.RecordingID, msg.AudioFrameNo)
	m.writeJSON(ws, ackMessage{
		Type:                "ACK",
		RecordingID:         msg.RecordingID,
		FrameNo:             msg.AudioFrameNo,
		NextExpectedFrameNo: next,
		MissingFrames:       missing,
	})
}

// advanceFrameTracking advances the per-recording contiguous frame
// counter and returns any newly observed gap, exactly once per missing
// frame number.
func (m *Manager) advanceFrameTracking(recordingID, frameNo int64) (nextExpected int64, newlyMissing []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expected := m.nextExpected[recordingID]
	if expected == 0 {
		expected = 1
	}

	if frameNo > expected {
		gaps, ok := m.reportedGaps[recordingID]
		if !ok {
			gaps = make(map[int64]bool)
			m.reportedGaps[recordingID] = gaps
		}
		for gap := expected; gap < frameNo; gap++ {
			if !gaps[gap] {
				gaps[gap] = true
				newlyMissing = append(newlyMissing, gap)
			}
		}
	}

	if frameNo >= expected {
		m.nextExpected[recordingID] = frameNo + 1
	}
	return m.nextExpected[recordingID], newlyMissing
}

func (m *Manager) handleStop(ws *websocket.Conn, sess *state.Session, msg *clientMessage) {
	m.store.Enqueue(&state.Message{
		SessionID:         sess.SessionID,
		RecordingID:       msg.RecordingID,
		Kind:              state.MessageStop,
		DTMessageReceived: time.Now(),
	})
	m.forgetRecording(sess.SessionID, msg.RecordingID)
	m.writeJSON(ws, simpleAck{Type: "STOP_ACK"})
}

// forgetRecording drops a recording's frame-tracking state and removes it
// from its session's still-open set, once a STOP (explicit or inferred)
// has been recorded for it.
func (m *Manager) forgetRecording(sessionID, recordingID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.nextExpected, recordingID)
	delete(m.reportedGaps, recordingID)
	if recs, ok := m.sessionRecordings[sessionID]; ok {
		delete(recs, recordingID)
		if len(recs) == 0 {
			delete(m.sessionRecordings, sessionID)
		}
	}
}

func (m *Manager) closeSession(ws *websocket.Conn, sess *state.Session) {
	now := time.Now()
	m.inferStopOnDisconnect(sess.SessionID, now)
	m.store.CloseSession(sess.SessionID, now)
	ws.Close()
	logging.Info("intake: session closed", "session_id", sess.SessionID)
}

// inferStopOnDisconnect enqueues a STOP message for every recording this
// session started but never explicitly stopped (spec.md §4/§7: disconnect
// without STOP is inferred as a stop, not silently dropped). Scanner 3C
// (scan3CStop) picks these up exactly as it would a client-sent STOP,
// stamping the recording's end time and flushing its final frame so
// Scanner 7 can finalize it.
func (m *Manager) inferStopOnDisconnect(sessionID int64, t time.Time) {
	m.mu.Lock()
	pending := m.sessionRecordings[sessionID]
	delete(m.sessionRecordings, sessionID)
	for recordingID := range pending {
		delete(m.nextExpected, recordingID)
		delete(m.reportedGaps, recordingID)
	}
	m.mu.Unlock()

	for recordingID := range pending {
		m.store.Enqueue(&state.Message{
			SessionID:         sessionID,
			RecordingID:       recordingID,
			Kind:              state.MessageStop,
			DTMessageReceived: t,
		})
		logging.Info("intake: inferring STOP on disconnect", "session_id", sessionID, "recording_id", recordingID)
	}
}

func (m *Manager) writeJSON(ws *websocket.Conn, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = ws.WriteMessage(websocket.TextMessage, b)
}

func decodeFramePayload(msg *clientMessage) ([]byte, error) {
	if msg.AudioFrameBase64 != "" {
		return base64.StdEncoding.DecodeString(msg.AudioFrameBase64)
	}
	return hex.DecodeString(msg.AudioFrameHex)
}
