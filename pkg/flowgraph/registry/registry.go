package registry

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// Registry is a thread-safe set of values indexed by key.
type Registry[K cmp.Ordered, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry.
func New[K cmp.Ordered, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds a value. Registering a key twice is an error.
func (r *Registry[K, V]) Register(key K, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("registry: duplicate key %v", key)
	}
	r.entries[key] = value
	return nil
}

// MustRegister is Register that panics on a duplicate key.
func (r *Registry[K, V]) MustRegister(key K, value V) {
	if err := r.Register(key, value); err != nil {
		panic(err)
	}
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Lookup returns the value for a key, or an error naming the known keys.
func (r *Registry[K, V]) Lookup(key K) (V, error) {
	if v, ok := r.Get(key); ok {
		return v, nil
	}
	var zero V
	return zero, fmt.Errorf("unknown %v (known: %v)", key, r.Keys())
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	_, ok := r.Get(key)
	return ok
}

// Keys returns all keys in ascending order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
