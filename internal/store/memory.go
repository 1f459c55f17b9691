package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-command-backend/internal/session"
)

// MemoryStore keeps recognition sessions in process memory. Sessions idle
// longer than the TTL are dropped on access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return "s_" + uuid.NewString()
}

// Get returns a live session.
func (m *MemoryStore) Get(id string) (*session.Session, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.expired(s) {
		m.mu.Lock()
		if cur, ok := m.sessions[id]; ok && cur == s {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
		return nil, false
	}
	return s, true
}

// GetOrCreate returns the session for id, creating one (with a new id when
// id is empty or unknown). created reports whether a new session was made.
func (m *MemoryStore) GetOrCreate(id string) (s *session.Session, created bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	s = session.New(NewSessionID())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, true
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(s *session.Session) bool {
	if m.ttl <= 0 || s.State().Busy {
		return false
	}
	return m.now().Sub(s.LastSeen()) > m.ttl
}
