package ghe

import (
	"maps"
	"sync/atomic"
)

// Memo is a concurrency-safe memoization map for derived values.
//
// Reads never block. A miss computes the value outside any lock and then
// publishes a copy of the map with compare-and-swap; when two callers race on
// the same key both may compute, but only the first stored value is kept and
// every caller receives it. Entries live until Invalidate or Clear.
type Memo[K comparable, V any] struct {
	entries atomic.Pointer[map[K]V]
}

// NewMemo creates an empty memo.
func NewMemo[K comparable, V any]() *Memo[K, V] {
	memo := &Memo[K, V]{}
	empty := make(map[K]V)
	memo.entries.Store(&empty)

	return memo
}

func (m *Memo[K, V]) load() *map[K]V {
	current := m.entries.Load()
	if current != nil {
		return current
	}

	// zero value Memo: install an empty map
	empty := make(map[K]V)
	if m.entries.CompareAndSwap(nil, &empty) {
		return &empty
	}

	return m.entries.Load()
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. compute may run more than once under contention.
func (m *Memo[K, V]) GetOrCompute(key K, compute func(K) V) V {
	var (
		computed  V
		haveValue bool
	)

	for {
		current := m.load()
		if value, ok := (*current)[key]; ok {
			return value
		}

		if !haveValue {
			computed = compute(key)
			haveValue = true
		}

		next := make(map[K]V, len(*current)+1)
		maps.Copy(next, *current)
		next[key] = computed

		if m.entries.CompareAndSwap(current, &next) {
			return computed
		}
	}
}

// Get returns the cached value without computing.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	value, ok := (*m.load())[key]

	return value, ok
}

// Invalidate removes a single key.
func (m *Memo[K, V]) Invalidate(key K) {
	for {
		current := m.load()
		if _, ok := (*current)[key]; !ok {
			return
		}

		next := maps.Clone(*current)
		delete(next, key)

		if m.entries.CompareAndSwap(current, &next) {
			return
		}
	}
}

// Clear drops every entry in a single swap.
func (m *Memo[K, V]) Clear() {
	empty := make(map[K]V)
	m.entries.Store(&empty)
}

// Len returns the number of cached entries.
func (m *Memo[K, V]) Len() int {
	return len(*m.load())
}
