package archive

import (
	"sort"
	"sync"

	"github.com/cperrin88/modstack/pkg/errutils"
)

// Location ids of the built-in managers.
const (
	LocationIDTar   = "tar"
	LocationIDTarGz = "tar.gz"
)

// Factory builds a Manager for one location id.
type Factory func() Manager

// Registry maps location ids to archive managers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the tar based managers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(LocationIDTar, func() Manager { return NewTarManager(false) })
	r.Register(LocationIDTarGz, func() Manager { return NewTarManager(true) })
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = f
}

// Resolve builds the manager registered for id.
func (r *Registry) Resolve(id string) (Manager, error) {
	r.mu.RLock()
	f, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errutils.ErrUnknownArchiveTypeWithID(id)
	}
	return f(), nil
}

// IDs lists the registered location ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
