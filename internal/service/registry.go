package service

import (
	"sort"
	"sync"

	"github.com/anthanhphan/gosdk/logger"

	"github.com/collectfs/collectfs/internal/port"
)

// Registry holds an application's collections keyed by name. It is owned
// by the app and passed to whoever needs lookups; there is no package
// global. Registering a name twice keeps the latest collection.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

// Ensure Registry implements port.CollectionResolver.
var _ port.CollectionResolver = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{collections: make(map[string]*Collection)}
}

// Register adds a collection under its name, replacing any previous one.
func (r *Registry) Register(collection *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := collection.Name()
	if _, exists := r.collections[name]; exists {
		logger.Warnw("Collection name registered twice, keeping the newest", "collection", name)
	}
	r.collections[name] = collection
}

// Get returns the registered collection with full service surface.
func (r *Registry) Get(name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collection, ok := r.collections[name]
	return collection, ok
}

// Resolve returns the named collection as its inbound-facing interface.
func (r *Registry) Resolve(name string) (port.FileCollection, bool) {
	collection, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return collection, true
}

// Names lists registered collection names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered collection, ordered by name.
func (r *Registry) All() []*Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	sort.Strings(names)

	collections := make([]*Collection, 0, len(names))
	for _, name := range names {
		collections = append(collections, r.collections[name])
	}
	return collections
}
