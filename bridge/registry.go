package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler executes one table operation and returns a text payload.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Registry receives handler registrations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Register must reject duplicates rather than overwrite.
type Registry interface {
	Register(name, description string, handler Handler) error
}

// MemoryRegistry is an in-memory Registry with invocation support.
type MemoryRegistry struct {
	mu       sync.RWMutex
	handlers map[string]registration
}

type registration struct {
	description string
	handler     Handler
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{handlers: make(map[string]registration)}
}

var _ Registry = (*MemoryRegistry)(nil)

// Register adds a named handler. Duplicate names are rejected.
func (r *MemoryRegistry) Register(name, description string, handler Handler) error {
	if name == "" || handler == nil {
		return errors.New("bridge: registration needs a name and a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
	}
	r.handlers[name] = registration{description: description, handler: handler}
	return nil
}

// Invoke runs the named handler.
func (r *MemoryRegistry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	reg, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownHandler, name)
	}
	return reg.handler(ctx, args)
}

// Names returns the registered handler names.
func (r *MemoryRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
