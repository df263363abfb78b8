// Package recency provides the ordered key→entry container backing the cache:
// a string-keyed map with a least- to most-recently-used total order over its
// keys. It wraps hashicorp's simplelru, narrowing it to the operations the
// cache engine actually needs so the contract stays small and testable.
package recency

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// EvictFunc is called when the optional max-entry bound removes the
// least-recently-used entry during Put. It runs synchronously inside Put, so
// it must not call back into the Store.
type EvictFunc[V any] func(key string, value V)

// Store is an ordered associative container keyed by string. Get promotes the
// key to most-recently-used; Put inserts (or overwrites) at the most-recent
// position; Keys iterates from least- to most-recently-used.
//
// Store is not safe for concurrent use; the owner provides serialization.
type Store[V any] struct {
	inner *simplelru.LRU[string, V]
}

// New creates a Store bounded to maxEntries entries. A non-positive
// maxEntries means no entry-count bound. onEvict may be nil.
func New[V any](maxEntries int, onEvict EvictFunc[V]) *Store[V] {
	if maxEntries <= 0 {
		maxEntries = math.MaxInt32
	}
	inner, err := simplelru.NewLRU(maxEntries, simplelru.EvictCallback[string, V](onEvict))
	if err != nil {
		// NewLRU only rejects non-positive sizes, which are clamped above.
		panic(err)
	}
	return &Store[V]{inner: inner}
}

// Exists reports whether key is present without updating its recency.
func (s *Store[V]) Exists(key string) bool {
	return s.inner.Contains(key)
}

// Get returns the entry for key and promotes it to most-recently-used.
func (s *Store[V]) Get(key string) (V, bool) {
	return s.inner.Get(key)
}

// Peek returns the entry for key without updating its recency.
func (s *Store[V]) Peek(key string) (V, bool) {
	return s.inner.Peek(key)
}

// Put inserts value at the most-recently-used position, overwriting any
// existing entry for key. It reports whether the max-entry bound evicted the
// least-recently-used entry to make room; the eviction is delivered through
// the EvictFunc before Put returns.
func (s *Store[V]) Put(key string, value V) bool {
	return s.inner.Add(key, value)
}

// Erase removes key from the store, reporting whether it was present. The
// EvictFunc is invoked for the removed entry.
func (s *Store[V]) Erase(key string) bool {
	return s.inner.Remove(key)
}

// Len returns the number of live entries.
func (s *Store[V]) Len() int {
	return s.inner.Len()
}

// Keys returns the live keys ordered from least- to most-recently-used.
func (s *Store[V]) Keys() []string {
	return s.inner.Keys()
}

// Purge removes all entries, invoking the EvictFunc for each.
func (s *Store[V]) Purge() {
	s.inner.Purge()
}
