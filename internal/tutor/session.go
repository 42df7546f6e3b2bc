package tutor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session pairs an agent with its identity and bookkeeping timestamps.
type Session struct {
	ID        string
	Agent     *Agent
	CreatedAt time.Time

	// turnMu gives the in-flight turn exclusive ownership of the agent's
	// conversation context; concurrent turns on one session queue up.
	turnMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
}

// Run processes one turn, serialized against other turns on the same
// session. Distinct sessions run turns concurrently.
func (s *Session) Run(ctx context.Context, in TurnInput) AgentResponse {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.Agent.ProcessTurn(ctx, in)
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen reports the most recent activity timestamp.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionManager tracks live tutoring sessions by id. Safe for concurrent
// use; turns on the sessions it hands out go through [Session.Run], which
// serializes them per session.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session around the given agent and returns it with
// a fresh id.
func (m *SessionManager) Create(agent *Agent) (*Session, error) {
	if agent == nil {
		return nil, fmt.Errorf("tutor: session agent must not be nil")
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Agent:     agent,
		CreatedAt: now,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id, touching its activity
// timestamp, or nil when unknown.
func (m *SessionManager) Get(id string) *Session {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()

	if s != nil {
		s.Touch(m.now())
	}
	return s
}

// End removes the session with the given id. Ending an unknown session is a
// no-op.
func (m *SessionManager) End(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// PruneIdle removes sessions with no activity since the cutoff and reports
// how many were removed.
func (m *SessionManager) PruneIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
