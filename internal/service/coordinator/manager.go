package coordinator

import "sync"

// Manager hands out one Coordinator per session.
type Manager struct {
	deps Deps
	opts Options

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

// NewManager returns a manager whose coordinators share deps and opts.
func NewManager(deps Deps, opts Options) *Manager {
	return &Manager{
		deps:         deps,
		opts:         opts,
		coordinators: make(map[string]*Coordinator),
	}
}

// ForSession returns the session's coordinator, creating it on first use.
func (m *Manager) ForSession(sessionID string) *Coordinator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.coordinators[sessionID]; ok {
		return c
	}
	c := New(sessionID, m.deps, m.opts)
	m.coordinators[sessionID] = c
	return c
}

// Mode reports the effective deployment shape.
func (m *Manager) Mode() Mode {
	if m.opts.Mode == ModeDual && m.deps.Image != nil {
		return ModeDual
	}
	return ModeSingle
}
