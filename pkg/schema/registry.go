package schema

import (
	"context"
	"fmt"
	"sync"
)

// Registry caches parsed definitions read from a Store. It is safe for
// concurrent use and is passed to its consumers rather than held globally.
type Registry struct {
	store Store
	opts  []Option

	mu     sync.RWMutex
	listed bool
	names  []string
	cache  map[string]*FormDefinition
}

// NewRegistry builds a registry over store. Loader options apply to every
// parse.
func NewRegistry(store Store, opts ...Option) *Registry {
	return &Registry{
		store: store,
		opts:  opts,
		cache: make(map[string]*FormDefinition),
	}
}

// Names lists the documents in the store. The listing is read once and
// reused until Refresh.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	if r.listed {
		names := append([]string(nil), r.names...)
		r.mu.RUnlock()
		return names, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listed {
		names, err := r.store.List(ctx)
		if err != nil {
			return nil, err
		}
		r.names = names
		r.listed = true
	}
	return append([]string(nil), r.names...), nil
}

// Get returns a copy of the named definition, parsing it on first use.
func (r *Registry) Get(ctx context.Context, name string) (*FormDefinition, error) {
	r.mu.RLock()
	def, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return def.Clone(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if def, ok := r.cache[name]; ok {
		return def.Clone(), nil
	}
	doc, err := r.store.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	def, err = LoadDocument(doc, r.opts...)
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", name, err)
	}
	r.cache[name] = def
	return def.Clone(), nil
}

// Put stores a copy of def under name, replacing any cached entry.
func (r *Registry) Put(name string, def *FormDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[name] = def.Clone()
	for _, existing := range r.names {
		if existing == name {
			return
		}
	}
	if r.listed {
		r.names = append(r.names, name)
	}
}

// Invalidate drops name from the cache.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, name)
}

// Refresh forgets the listing and every cached definition.
func (r *Registry) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listed = false
	r.names = nil
	r.cache = make(map[string]*FormDefinition)
}
