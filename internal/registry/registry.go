// Package registry provides the ordered, name-keyed stores behind a
// simulation session. Registration is insert-or-replace: the last write for
// a key wins, and a replaced key keeps its original position so listings
// stay in first-registration order.
package registry

import (
	"sync"
)

// Store is an insertion-ordered map guarded by a RWMutex.
// The zero value is not usable; call New.
type Store[K comparable, V any] struct {
	mu sync.RWMutex

	// entries maps keys to their current value
	entries map[K]V

	// order holds keys in first-registration order
	order []K
}

// New creates an empty store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		entries: make(map[K]V),
	}
}

// Put inserts or replaces the value for key.
// It reports whether an existing value was replaced.
func (s *Store[K, V]) Put(key K, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, replaced := s.entries[key]
	if !replaced {
		s.order = append(s.order, key)
	}
	s.entries[key] = value
	return replaced
}

// Get returns the value stored under key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Store[K, V]) Has(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in registration order.
func (s *Store[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]K, len(s.order))
	copy(keys, s.order)
	return keys
}

// Values returns the values in registration order.
func (s *Store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]V, 0, len(s.order))
	for _, k := range s.order {
		values = append(values, s.entries[k])
	}
	return values
}

// Filter returns, in registration order, the keys whose entries match keep.
// keep runs under the read lock and must not call back into the store.
func (s *Store[K, V]) Filter(keep func(K, V) bool) []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []K
	for _, k := range s.order {
		if keep(k, s.entries[k]) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes every entry.
func (s *Store[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[K]V)
	s.order = nil
}
