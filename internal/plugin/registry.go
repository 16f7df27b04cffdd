package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps plugin names to factories. It is built once at startup and
// read from then on; writes take the exclusive lock so a concurrent host can
// still register safely.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a name. The name is trimmed; empty names,
// nil factories and duplicate names are rejected.
func (r *Registry) Register(name string, factory Factory) error {
	key := strings.TrimSpace(name)
	if key == "" {
		return ErrEmptyName
	}
	if factory == nil {
		return fmt.Errorf("%w: %q", ErrNilFactory, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, key)
	}
	r.factories[key] = factory
	r.order = append(r.order, key)
	return nil
}

// Create builds a fresh instance of a registered plugin. Unknown names fail
// with the known names listed.
func (r *Registry) Create(name string) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q, known: %s", ErrUnknownPlugin, name, r.knownList())
	}
	return factory(), nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) knownList() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return "<none>"
	}
	known := make([]string, len(r.order))
	copy(known, r.order)
	sort.Strings(known)
	return strings.Join(known, ", ")
}
