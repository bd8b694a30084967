package state

import (
	"sync"
	"time"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Session identity
	sessionID string
	startedAt time.Time

	// Session lifecycle
	phase  Phase
	signal HostSignal

	// Current mix
	mixID      string
	mixName    string
	mixStarted *time.Time
}

// New creates a new state manager.
func New(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		startedAt: time.Now(),
		phase:     PhaseIdle,
		signal:    SignalBackground,
	}
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// SetPhase sets the session phase. A terminated session never leaves that phase.
func (m *Manager) SetPhase(p Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == PhaseTerminated {
		return
	}
	m.phase = p
}

// IsTerminated returns true once the session has ended.
func (m *Manager) IsTerminated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase == PhaseTerminated
}

// GetSignal returns the last host signal raised.
func (m *Manager) GetSignal() HostSignal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signal
}

// SwapSignal sets the host signal and returns true if it changed.
func (m *Manager) SwapSignal(s HostSignal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signal == s {
		return false
	}
	m.signal = s
	return true
}

// SetMix records the mix being played.
func (m *Manager) SetMix(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.mixID = id
	m.mixName = name
	m.mixStarted = &now
}

// ClearMix forgets the current mix.
func (m *Manager) ClearMix() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixID = ""
	m.mixName = ""
	m.mixStarted = nil
}

// GetMix returns the current mix ID and name.
func (m *Manager) GetMix() (id, name string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mixID, m.mixName
}

// GetMixStarted returns when the current mix started, or nil.
func (m *Manager) GetMixStarted() *time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mixStarted
}

// GetStartedAt returns when the session was created.
func (m *Manager) GetStartedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startedAt
}
