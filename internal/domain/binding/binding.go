// Package binding provides the Binding domain entity: a client bound to the playback session.
package binding

import "time"

// Binding represents a client bound to the playback session.
type Binding struct {
	ID         string    // UUID
	Name       string    // Client display name
	ClientID   string    // External client ID (optional, re-binding with the same ID reuses the binding)
	BoundAt    time.Time // Bind time
	LastSeenAt time.Time // Last command time
	Commands   int       // Number of commands issued
}

// New creates a new binding.
func New(id, name, clientID string) *Binding {
	now := time.Now()
	return &Binding{
		ID:         id,
		Name:       name,
		ClientID:   clientID,
		BoundAt:    now,
		LastSeenAt: now,
	}
}

// Touch records a command issued by the client.
func (b *Binding) Touch() {
	b.Commands++
	b.LastSeenAt = time.Now()
}
