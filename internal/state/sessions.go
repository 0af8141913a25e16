package state

import "time"

// Session is one accepted client channel.
type Session struct {
	SessionID              int64
	ClientHostIPAddress    string
	ClientPort             string
	ClientHeaders          string
	DTConnectionRequest    time.Time
	DTConnectionAccepted   *time.Time
	DTConnectionClosed     *time.Time
	DTWebsocketDisconnectEvent *time.Time
}

// NewSession allocates a monotonic session id and registers it.
func (s *Store) NewSession(clientIP, clientPort, clientHeaders string) *Session {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	s.nextSessionID++
	sess := &Session{
		SessionID:           s.nextSessionID,
		ClientHostIPAddress: clientIP,
		ClientPort:          clientPort,
		ClientHeaders:       clientHeaders,
		DTConnectionRequest: time.Now(),
	}
	s.sessions[sess.SessionID] = sess
	return sess
}

// Session returns a tracked session, if present.
func (s *Store) Session(sessionID int64) (*Session, bool) {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

// CloseSession stamps a session's closed time. The session entry stays in
// the store until RemoveSession is called for it.
func (s *Store) CloseSession(sessionID int64, t time.Time) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.DTConnectionClosed = &t
	}
}

// RemoveSession releases a session's tracked state.
func (s *Store) RemoveSession(sessionID int64) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	delete(s.sessions, sessionID)
}
