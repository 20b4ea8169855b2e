// Package state provides the process-wide key/value store used for caches
// and cross-worker coordination.
//
// The store is deliberately minimal: no TTL, no size bound, no eviction.
// It exists so components can share lazily-initialized values without
// reaching for package-level globals, and so tests can inject a fresh
// instance per case.
package state

import "sync"

// Store is an injectable, thread-safe key/value store.
//
// GetOrInit guarantees exactly-once initialization per key: concurrent
// first readers racing with different defaults all observe the single
// value that won the race, never a mixture.
type Store interface {
	// Set unconditionally overwrites the value for key.
	Set(key string, value any)
	// Get returns the stored value, or (nil, false) when absent.
	Get(key string) (any, bool)
	// GetOrInit returns the stored value for key, storing and returning
	// init when the key has never been seen.
	GetOrInit(key string, init any) any
}

// NewStore returns an empty in-memory Store guarded by a single mutex.
// The lock is held only for the duration of one map operation, never
// across any caller-supplied code or I/O.
func NewStore() Store {
	return &memStore{m: make(map[string]any)}
}

type memStore struct {
	mu sync.Mutex
	m  map[string]any
}

func (s *memStore) Set(key string, value any) {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
}

func (s *memStore) Get(key string) (any, bool) {
	s.mu.Lock()
	v, ok := s.m[key]
	s.mu.Unlock()
	return v, ok
}

func (s *memStore) GetOrInit(key string, init any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	s.m[key] = init
	return init
}
