// ABOUTME: Session registry tracking live MCP client sessions in memory.
// ABOUTME: Sessions bind a transport stream to the credential captured at creation.

package mcp

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// streamBuffer is the per-session outbound event buffer size.
const streamBuffer = 16

// Session tracks one live protocol conversation. The credential is the
// one presented at creation; discovery sessions were created without
// any credential and must still authorize before tool calls.
type Session struct {
	ID         string
	Credential string
	Discovery  bool
	CreatedAt  time.Time

	mu           sync.Mutex
	lastActivity time.Time
	stream       chan []byte
	done         chan struct{}
	closed       bool
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the most recent request on the session.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Stream returns the session's outbound event channel for server push.
func (s *Session) Stream() <-chan []byte {
	return s.stream
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Push queues an event for the session's server-push stream.
// Returns false when the session is closed or the buffer is full.
func (s *Session) Push(event []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.stream <- event:
		return true
	default:
		return false
	}
}

// close releases the session's transport. Idempotent.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// SessionRegistry manages live sessions. Operations on distinct
// session IDs never serialize against each other beyond the brief
// map access; nothing long-running happens under the lock.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry(logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		logger:   logger.With("component", "sessions"),
	}
}

// newSessionID generates a cryptographically random session identifier.
func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create registers a new session bound to the given credential.
func (r *SessionRegistry) Create(credential string, discovery bool) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		Credential:   credential,
		Discovery:    discovery,
		CreatedAt:    now,
		lastActivity: now,
		stream:       make(chan []byte, streamBuffer),
		done:         make(chan struct{}),
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	r.logger.Info("session created", "session_id", id, "discovery", discovery)
	return sess, nil
}

// Get looks up a live session by identifier.
func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	return sess, ok
}

// Close tears down a session. Closing an unknown or already-closed
// session is a no-op, not an error.
func (r *SessionRegistry) Close(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		sess.close()
		r.logger.Info("session closed", "session_id", id)
	}
}

// CloseAll tears down every live session, best-effort. Used at shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	if len(sessions) > 0 {
		r.logger.Info("all sessions closed", "count", len(sessions))
	}
}

// Count returns the number of live sessions (for monitoring).
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
