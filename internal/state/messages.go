package state

import "time"

// MessageKind discriminates the three inbound client message shapes.
type MessageKind string

const (
	MessageStart MessageKind = "START"
	MessageFrame MessageKind = "FRAME"
	MessageStop  MessageKind = "STOP"
)

// Message is one inbound client datum, queued for a scanner to handle.
type Message struct {
	MessageID             int64
	SessionID             int64
	RecordingID           int64
	Kind                  MessageKind
	AudioFrameNo          int64
	Payload               []byte // decoded raw audio bytes, FRAME only
	DTMessageReceived     time.Time
	DTMessageProcessQueuedToStart *time.Time
	DTMessageProcessStarted       *time.Time
}

// Enqueue assigns a monotonic message id and deposits msg into the
// message store in received order. Scanners drain by kind via
// PendingUnqueued/PendingUnstarted.
func (s *Store) Enqueue(msg *Message) int64 {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	s.nextMsgID++
	msg.MessageID = s.nextMsgID
	s.messages[msg.MessageID] = msg
	s.msgOrder = append(s.msgOrder, msg.MessageID)
	return msg.MessageID
}

// PendingUnqueued returns, in received order, every message of kind
// whose "queued to start" timestamp is still unset.
func (s *Store) PendingUnqueued(kind MessageKind) []*Message {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	var out []*Message
	for _, id := range s.msgOrder {
		m, ok := s.messages[id]
		if !ok || m.Kind != kind || m.DTMessageProcessQueuedToStart != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// PendingUnstarted returns, in received order, every message of kind
// whose "processing started" timestamp is still unset.
func (s *Store) PendingUnstarted(kind MessageKind) []*Message {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	var out []*Message
	for _, id := range s.msgOrder {
		m, ok := s.messages[id]
		if !ok || m.Kind != kind || m.DTMessageProcessStarted != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}

// MarkQueued stamps a message's "queued to start" time.
func (s *Store) MarkQueued(messageID int64, t time.Time) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	if m, ok := s.messages[messageID]; ok {
		m.DTMessageProcessQueuedToStart = &t
	}
}

// MarkStarted stamps a message's "processing started" time.
func (s *Store) MarkStarted(messageID int64, t time.Time) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	if m, ok := s.messages[messageID]; ok {
		m.DTMessageProcessStarted = &t
	}
}

// RemoveMessage drops a message once its handler has finished with it.
func (s *Store) RemoveMessage(messageID int64) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()

	delete(s.messages, messageID)
	for i, id := range s.msgOrder {
		if id == messageID {
			s.msgOrder = append(s.msgOrder[:i], s.msgOrder[i+1:]...)
			break
		}
	}
}
