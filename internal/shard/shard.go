// Package shard provides the sharded concurrent outer map shared by all three
// durastore engines: a bytes-keyed map split across a fixed number of
// independently-locked buckets, generalizing the single sync.RWMutex the
// teacher store guarded its whole map with (internal/store/store.go) into one
// lock per shard so unrelated keys don't serialize through a shared lock.
package shard

import (
	"hash/fnv"
	"sync"
)

// Map is a sharded bytes -> V concurrent map. V is the inner container type:
// []byte for the KV store, a set of byte strings for the KeySet store, or an
// ordered container for the KeySortedMap store.
type Map[V any] struct {
	shards []*bucket[V]
	mask   uint32
}

type bucket[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// New creates a Map with shardCount buckets. shardCount is rounded up to the
// next power of two so the shard index can be computed with a mask.
func New[V any](shardCount int) *Map[V] {
	if shardCount < 1 {
		shardCount = 1
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}

	shards := make([]*bucket[V], n)
	for i := range shards {
		shards[i] = &bucket[V]{data: make(map[string]V)}
	}
	return &Map[V]{shards: shards, mask: uint32(n - 1)}
}

func (m *Map[V]) shardFor(key []byte) *bucket[V] {
	h := fnv.New32a()
	h.Write(key)
	return m.shards[h.Sum32()&m.mask]
}

// Get performs a lock-free-with-respect-to-other-shards read of key's value.
func (m *Map[V]) Get(key []byte) (V, bool) {
	b := m.shardFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[string(key)]
	return v, ok
}

// Contains reports whether key has a live entry.
func (m *Map[V]) Contains(key []byte) bool {
	b := m.shardFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[string(key)]
	return ok
}

// Put installs v for key, overwriting any existing value, under an exclusive
// shard lock. before, if non-nil, runs while the lock is held and before the
// map is mutated -- this is where the caller appends the WAL record, so that
// the durable write happens before the mutation becomes visible (I3). If
// before returns an error, the map is left unmodified.
func (m *Map[V]) Put(key []byte, v V, before func() error) error {
	b := m.shardFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if before != nil {
		if err := before(); err != nil {
			return err
		}
	}
	b.data[string(key)] = v
	return nil
}

// Delete removes key under an exclusive shard lock, running before (the WAL
// append) first.
func (m *Map[V]) Delete(key []byte, before func() error) error {
	b := m.shardFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if before != nil {
		if err := before(); err != nil {
			return err
		}
	}
	delete(b.data, string(key))
	return nil
}

// Compute runs fn with the current value for key (the zero V and false if
// absent) under an exclusive shard lock, and installs whatever fn returns.
// If fn reports remove=true, the key is deleted instead (used when a
// mutation empties an inner container, per invariant I1). fn is responsible
// for any WAL append it needs before returning, matching the "shard lock
// held, WAL lock acquired inside it" ordering in the concurrency model.
func (m *Map[V]) Compute(key []byte, fn func(cur V, ok bool) (next V, remove bool, err error)) error {
	b := m.shardFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.data[string(key)]
	next, remove, err := fn(cur, ok)
	if err != nil {
		return err
	}
	if remove {
		delete(b.data, string(key))
		return nil
	}
	b.data[string(key)] = next
	return nil
}

// Len returns the total number of outer keys across all shards.
func (m *Map[V]) Len() int {
	total := 0
	for _, b := range m.shards {
		b.mu.RLock()
		total += len(b.data)
		b.mu.RUnlock()
	}
	return total
}

// LoadAll replays a recovered snapshot into the map without going through the
// WAL (the caller has already replayed the WAL into a fresh log; this just
// installs the resulting in-memory state).
func (m *Map[V]) LoadAll(snapshot map[string]V) {
	for k, v := range snapshot {
		b := m.shardFor([]byte(k))
		b.mu.Lock()
		b.data[k] = v
		b.mu.Unlock()
	}
}
