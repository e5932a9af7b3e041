package schema

import "sync"

// Registry assigns dense surrogate keys (1, 2, 3, ...) to natural keys in
// first-seen order. Registering a known natural key returns its existing
// surrogate. A Registry lives for one build; the mutex keeps assignment
// single-writer even if callers share it.
type Registry[K comparable] struct {
	mu   sync.Mutex
	name string
	keys map[K]int64
	next int64
}

// NewRegistry returns an empty registry for the named dimension.
func NewRegistry[K comparable](name string) *Registry[K] {
	return &Registry[K]{name: name, keys: make(map[K]int64), next: 1}
}

// Name is the dimension the registry keys.
func (r *Registry[K]) Name() string { return r.name }

// Register returns the surrogate key for k, allocating the next one when k
// is new. created reports whether a key was allocated.
func (r *Registry[K]) Register(k K) (id int64, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.keys[k]; ok {
		return id, false
	}
	id = r.next
	r.next++
	r.keys[k] = id
	return id, true
}

// Lookup returns the surrogate key for k without allocating.
func (r *Registry[K]) Lookup(k K) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.keys[k]
	return id, ok
}

// Len is the number of keys allocated so far.
func (r *Registry[K]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
