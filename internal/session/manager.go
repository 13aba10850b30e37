package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager maps session IDs to sessions, creating them on first use.
// Sessions live for the lifetime of the process; an explicit clear resets a
// session's state but never destroys it.
//
// Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session)}
}

// Get returns the session for id, creating it if absent.
func (m *Manager) Get(id uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = New()
		m.sessions[id] = s
	}
	return s
}

// Len returns the number of known sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
