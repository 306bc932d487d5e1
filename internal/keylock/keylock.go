// Package keylock provides mutual exclusion per string key.
package keylock

import (
	"sort"
	"sync"
)

// Map hands out one mutex per key. Entries are dropped once nobody holds or
// waits for them.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New returns an empty Map.
func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock acquires every key and returns the function that releases them. Keys are
// deduplicated and taken in sorted order, so callers locking overlapping sets
// cannot deadlock.
func (m *Map) Lock(keys ...string) (unlock func()) {
	keys = normalize(keys)
	held := make([]*entry, 0, len(keys))
	for _, key := range keys {
		m.mu.Lock()
		e, ok := m.locks[key]
		if !ok {
			e = &entry{}
			m.locks[key] = e
		}
		e.refs++
		m.mu.Unlock()

		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				m.release(keys[i], held[i])
			}
		})
	}
}

func (m *Map) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
