package registry

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/osa030/sleepmix/internal/domain/binding"
)

var ErrInvalidBinding = errors.New("invalid binding")

// BindingRegistry manages bound clients with thread-safe access.
type BindingRegistry struct {
	mu       sync.RWMutex
	bindings map[string]*binding.Binding
}

// NewBindingRegistry creates a new binding registry.
func NewBindingRegistry() *BindingRegistry {
	return &BindingRegistry{
		bindings: make(map[string]*binding.Binding),
	}
}

// Bind registers a client and returns its binding ID.
// A client ID that is already bound gets its existing binding back.
func (r *BindingRegistry) Bind(name, clientID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clientID != "" {
		for _, b := range r.bindings {
			if b.ClientID == clientID {
				return b.ID
			}
		}
	}

	id := uuid.New().String()
	r.bindings[id] = binding.New(id, name, clientID)
	return id
}

// Unbind removes a binding.
func (r *BindingRegistry) Unbind(bindingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[bindingID]; !ok {
		return ErrInvalidBinding
	}
	delete(r.bindings, bindingID)
	return nil
}

// Get returns a copy of a binding.
func (r *BindingRegistry) Get(bindingID string) (binding.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[bindingID]
	if !ok {
		return binding.Binding{}, ErrInvalidBinding
	}
	return *b, nil
}

// Touch validates a binding and records a command on it.
func (r *BindingRegistry) Touch(bindingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[bindingID]
	if !ok {
		return ErrInvalidBinding
	}
	b.Touch()
	return nil
}

// All returns copies of all bindings.
func (r *BindingRegistry) All() []binding.Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]binding.Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		result = append(result, *b)
	}
	return result
}

// Count returns the number of bindings.
func (r *BindingRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// Clear removes every binding.
func (r *BindingRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = make(map[string]*binding.Binding)
}
