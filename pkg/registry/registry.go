// Package registry maps backend family schemes to their factories.
//
// Factories are registered explicitly at process start, usually through
// featurestore.RegisterDefaults. The package-level functions operate on a
// process-wide Default registry; tests call Reset between cases.
package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Registry is a concurrency-safe scheme to factory table.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]types.Factory
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]types.Factory)}
}

// Register adds or replaces the factory for its scheme.
func (r *Registry) Register(f types.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Name()] = f
}

// Unregister removes the factory for scheme, if any.
func (r *Registry) Unregister(scheme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, scheme)
}

// IsRegistered reports whether scheme has a factory.
func (r *Registry) IsRegistered(scheme string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[scheme]
	return ok
}

// FactoryFor returns the factory for scheme. Unknown schemes fail with
// ErrBackendUnknown, which also matches ErrNotFound.
func (r *Registry) FactoryFor(scheme string) (types.Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q: %w", types.ErrBackendUnknown, scheme, types.ErrNotFound)
	}
	return f, nil
}

// Schemes lists registered schemes in order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Reset removes every factory.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]types.Factory)
}

// Default is the process-wide registry.
var Default = New()

func Register(f types.Factory)                        { Default.Register(f) }
func Unregister(scheme string)                        { Default.Unregister(scheme) }
func IsRegistered(scheme string) bool                 { return Default.IsRegistered(scheme) }
func FactoryFor(scheme string) (types.Factory, error) { return Default.FactoryFor(scheme) }
func Schemes() []string                               { return Default.Schemes() }
func Reset()                                          { Default.Reset() }
