// internal/presence/registry.go

// Package presence tracks which users currently hold a live chat session.
// It is process-local and rebuilt empty on restart: until a user reconnects,
// they are offline as far as live delivery is concerned.
package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session wraps a single user's active WebSocket connection.
type Session struct {
	UserID   uuid.UUID
	Username string
	Cancel   context.CancelFunc // kills the read/write pumps on eviction

	// LastActive is refreshed on every inbound event.
	LastActive time.Time

	mu     sync.Mutex
	out    chan map[string]interface{}
	closed bool
}

// NewSession builds a session with a buffered outbound queue.
func NewSession(userID uuid.UUID, username string, cancel context.CancelFunc) *Session {
	return &Session{
		UserID:     userID,
		Username:   username,
		Cancel:     cancel,
		LastActive: time.Now(),
		out:        make(chan map[string]interface{}, 16),
	}
}

// Out exposes the outbound queue for the session's write pump.
func (s *Session) Out() <-chan map[string]interface{} {
	return s.out
}

// Send pushes an event onto the session's outbound queue without blocking.
// Events for a closed or backed-up session are dropped: fan-out must never
// stall the connection that triggered it.
func (s *Session) Send(msg map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("presence: outbound queue full for user %s, dropped event '%s'", s.UserID, msgType)
	}
}

// SendError is a convenience to push an error event.
func (s *Session) SendError(reason string) {
	s.Send(map[string]interface{}{
		"type":   "message-error",
		"reason": reason,
	})
}

// Close cancels the session's pumps and closes its outbound queue. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
	if s.Cancel != nil {
		s.Cancel()
	}
}

// Registry maps a user to their single active session. Last connection wins:
// registering a user who already has a session replaces the stored one.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Put stores s as the user's active session and returns the session it
// replaced, if any. The caller is responsible for closing the evicted one.
func (r *Registry) Put(userID uuid.UUID, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.sessions[userID]
	r.sessions[userID] = s
	return old
}

// Remove deletes the user's session only if s is still the stored one, so a
// stale connection's teardown cannot evict its replacement. Reports whether
// a removal happened.
func (r *Registry) Remove(userID uuid.UUID, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
		return true
	}
	return false
}

// Get returns the user's active session, or nil if they have none.
func (r *Registry) Get(userID uuid.UUID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// IsOnline reports whether the user currently has a live session.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	return r.Get(userID) != nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
