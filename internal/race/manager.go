package race

import (
	"sync"

	"github.com/google/uuid"
)

// Manager is the registry of live sessions, keyed by race id. Concurrent
// races are independent sessions with no shared mutable state.
type Manager struct {
	settings Settings
	pub      Publisher
	rec      Recorder

	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

func NewManager(settings Settings, pub Publisher, rec Recorder) *Manager {
	return &Manager{
		settings: settings,
		pub:      pub,
		rec:      rec,
		sessions: map[string]*Session{},
		newID:    uuid.NewString,
	}
}

// Create builds and registers a new idle session.
func (m *Manager) Create(specs []ParticipantSpec) (*Session, error) {
	id := m.newID()
	s, err := NewSession(id, specs, m.settings, m.pub, m.rec)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the live session for a race id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrRaceNotFound
	}
	return s, nil
}

// Remove drops a session from the registry, ending it first if still running.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if s != nil {
		_ = s.End(ReasonUserCancelled)
	}
	if s != nil && m.pub != nil {
		m.pub.Drop(id)
	}
}
