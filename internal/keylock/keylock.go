// Package keylock provides lazily created per-key mutexes so operations
// on different events never contend with each other.
package keylock

import "sync"

type Map struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Map {
	return &Map{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for key, creating it on first use. Locks are
// never removed; the key space (event ids) is small and bounded.
func (m *Map) Get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}
