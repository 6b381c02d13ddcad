package durastore

import (
	"log/slog"
	"path/filepath"

	"github.com/flashdb/durastore/internal/shard"
	"github.com/flashdb/durastore/internal/wal"
	"github.com/flashdb/durastore/searchkey"
)

// SortedMapStore is a durable, concurrent bytes-to-sorted-map map: each outer
// key owns an inner map from searchkey.SearchKey to bytes, ordered by
// SearchKey (invariant I4). An outer key's inner map is created lazily on
// first put and destroyed when its last entry is removed (I1).
type SortedMapStore struct {
	w    *wal.Writer
	data *shard.Map[sortedInner]
	log  *slog.Logger
}

// OpenSortedMapStore opens (recovering if necessary) the sorted-map store
// rooted at dir, using map.wal.dat as its WAL file name.
func OpenSortedMapStore(dir string, opts Options) (*SortedMapStore, error) {
	path := filepath.Join(dir, "map.wal.dat")
	log := opts.logger()

	s := &SortedMapStore{
		data: shard.New[sortedInner](opts.shards()),
		log:  log,
	}

	w, err := wal.Recover(path, wal.ReadForwardSortedMap, func(snapshot map[string]map[string]wal.SortedEntry, w *wal.Writer) error {
		loaded := make(map[string]sortedInner, len(snapshot))
		for key, inner := range snapshot {
			var built sortedInner
			for _, e := range inner {
				if err := w.StorePutToMap([]byte(key), e.SearchKey, e.Value); err != nil {
					return err
				}
				built = built.put(e.SearchKey, e.Value)
			}
			loaded[key] = built
		}
		s.data.LoadAll(loaded)
		return nil
	})
	if err != nil {
		return nil, wrapOpenErr("sorted-map store", err)
	}
	s.w = w
	s.log.Debug("sorted-map store recovered", "path", path, "keys", s.data.Len())
	return s, nil
}

// Put writes a WAL SORTED_PUT record and inserts (searchKey, value) into
// key's inner map, overwriting any existing entry at searchKey.
func (s *SortedMapStore) Put(key []byte, sk searchkey.SearchKey, value []byte) error {
	return s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		if err := s.w.StorePutToMap(key, sk, value); err != nil {
			return nil, false, err
		}
		return cur.put(sk, value), false, nil
	})
}

// GetElement returns the value stored at (key, searchKey).
func (s *SortedMapStore) GetElement(key []byte, sk searchkey.SearchKey) ([]byte, bool) {
	inner, ok := s.data.Get(key)
	if !ok {
		return nil, false
	}
	return inner.get(sk)
}

// ContainsInMap reports whether (key, searchKey) has an entry. Alias for the
// boolean form of GetElement, kept distinct for call-site clarity.
func (s *SortedMapStore) ContainsInMap(key []byte, sk searchkey.SearchKey) bool {
	_, ok := s.GetElement(key, sk)
	return ok
}

// ContainsSearchKey reports whether searchKey appears under key, same as
// ContainsInMap.
func (s *SortedMapStore) ContainsSearchKey(key []byte, sk searchkey.SearchKey) bool {
	return s.ContainsInMap(key, sk)
}

// SortedMapSize returns the number of entries in key's inner map (0 if key
// is absent).
func (s *SortedMapStore) SortedMapSize(key []byte) int {
	inner, ok := s.data.Get(key)
	if !ok {
		return 0
	}
	return len(inner)
}

// GetSortedMap returns a sorted snapshot copy of key's entries.
func (s *SortedMapStore) GetSortedMap(key []byte) []SortedEntry {
	inner, ok := s.data.Get(key)
	if !ok {
		return nil
	}
	out := make([]SortedEntry, len(inner))
	copy(out, inner)
	return out
}

// RangeEntries returns the entries under key with SearchKey between lo and
// hi (each bound inclusive, exclusive or unbounded per its Kind), in
// ascending order.
func (s *SortedMapStore) RangeEntries(key []byte, lo, hi searchkey.Bound) []SortedEntry {
	inner, ok := s.data.Get(key)
	if !ok {
		return nil
	}
	return inner.rangeEntries(lo, hi)
}

// First returns key's minimum entry.
func (s *SortedMapStore) First(key []byte) (searchkey.SearchKey, []byte, bool) {
	inner, ok := s.data.Get(key)
	if !ok {
		return nil, nil, false
	}
	e, ok := inner.first()
	if !ok {
		return nil, nil, false
	}
	return e.SearchKey, e.Value, true
}

// Last returns key's maximum entry.
func (s *SortedMapStore) Last(key []byte) (searchkey.SearchKey, []byte, bool) {
	inner, ok := s.data.Get(key)
	if !ok {
		return nil, nil, false
	}
	e, ok := inner.last()
	if !ok {
		return nil, nil, false
	}
	return e.SearchKey, e.Value, true
}

// PopFirst removes and returns key's minimum entry, writing a WAL
// SORTED_REMOVE (and a DELETE if the inner map becomes empty).
func (s *SortedMapStore) PopFirst(key []byte) (searchkey.SearchKey, []byte, bool, error) {
	return s.pop(key, sortedInner.first)
}

// PopLast removes and returns key's maximum entry, writing a WAL
// SORTED_REMOVE (and a DELETE if the inner map becomes empty).
func (s *SortedMapStore) PopLast(key []byte) (searchkey.SearchKey, []byte, bool, error) {
	return s.pop(key, sortedInner.last)
}

func (s *SortedMapStore) pop(key []byte, pick func(sortedInner) (SortedEntry, bool)) (searchkey.SearchKey, []byte, bool, error) {
	var popped SortedEntry
	found := false

	err := s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		if !ok {
			return cur, true, nil
		}
		e, has := pick(cur)
		if !has {
			return cur, false, nil
		}
		found = true
		popped = e

		if err := s.w.StoreRemoveFromSortedMap(key, e.SearchKey); err != nil {
			return nil, false, err
		}
		next, _ := cur.remove(e.SearchKey)
		if len(next) == 0 {
			if err := s.w.StoreDelete(key); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		}
		return next, false, nil
	})
	if err != nil || !found {
		return nil, nil, false, err
	}
	return popped.SearchKey, popped.Value, true, nil
}

// RemoveFromSortedMap removes searchKey's entry under key, writing a WAL
// SORTED_REMOVE (and a DELETE if the inner map becomes empty, per I1).
func (s *SortedMapStore) RemoveFromSortedMap(key []byte, sk searchkey.SearchKey) error {
	return s.RemoveFromSortedMapCallback(key, sk, nil)
}

// RemoveFromSortedMapCallback behaves like RemoveFromSortedMap, additionally
// invoking onEmptied (if non-nil) iff the outer key was removed as a
// consequence, passing the value of the last entry removed.
func (s *SortedMapStore) RemoveFromSortedMapCallback(key []byte, sk searchkey.SearchKey, onEmptied func(lastValue []byte)) error {
	var lastValue []byte
	emptied := false

	err := s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		if !ok {
			return cur, true, nil
		}
		next, had := cur.remove(sk)
		if !had {
			return cur, false, nil
		}
		if v, _ := cur.get(sk); v != nil {
			lastValue = v
		}
		if err := s.w.StoreRemoveFromSortedMap(key, sk); err != nil {
			return nil, false, err
		}
		if len(next) == 0 {
			if err := s.w.StoreDelete(key); err != nil {
				return nil, false, err
			}
			emptied = true
			return nil, true, nil
		}
		return next, false, nil
	})
	if err == nil && emptied && onEmptied != nil {
		onEmptied(lastValue)
	}
	return err
}

// AppendOrderedElement inserts value at the next position of an
// append-only ordered queue keyed by monotonic integers: if key's inner map's
// current largest SearchKey is a single-component platform-unsigned integer
// n, the new element lands at n+1; otherwise (empty, or a non-numeric
// largest key) it lands at 0.
func (s *SortedMapStore) AppendOrderedElement(key []byte, value []byte) (searchkey.SearchKey, error) {
	var assigned searchkey.SearchKey

	err := s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		next := nextOrderedIndex(cur)
		assigned = searchkey.Uint(next)

		if err := s.w.StorePutToMap(key, assigned, value); err != nil {
			return nil, false, err
		}
		return cur.put(assigned, value), false, nil
	})
	return assigned, err
}

func nextOrderedIndex(cur sortedInner) uint64 {
	e, ok := cur.last()
	if !ok {
		return 0
	}
	c, ok := e.SearchKey.First()
	if !ok || len(e.SearchKey) != 1 {
		return 0
	}
	n, ok := c.Uintptr()
	if !ok {
		return 0
	}
	return n + 1
}

// Compute runs fn under an exclusive shard lock with key's current inner
// entries (nil if absent), installing whatever fn returns. It does not
// itself write to the WAL; callers needing durability for a Compute-driven
// mutation must follow it with an explicit Put/RemoveFromSortedMap.
func (s *SortedMapStore) Compute(key []byte, fn func(cur []SortedEntry, ok bool) []SortedEntry) error {
	return s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		next := fn(append([]SortedEntry(nil), cur...), ok)
		if next == nil {
			return nil, true, nil
		}
		return sortedInner(next), false, nil
	})
}

// ComputeIfPresent runs fn only if key already has an inner map.
func (s *SortedMapStore) ComputeIfPresent(key []byte, fn func(cur []SortedEntry) []SortedEntry) error {
	return s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		if !ok {
			return cur, true, nil
		}
		next := fn(append([]SortedEntry(nil), cur...))
		if next == nil {
			return nil, true, nil
		}
		return sortedInner(next), false, nil
	})
}

// ComputeIfAbsent runs fn only if key has no inner map yet.
func (s *SortedMapStore) ComputeIfAbsent(key []byte, fn func() []SortedEntry) error {
	return s.data.Compute(key, func(cur sortedInner, ok bool) (sortedInner, bool, error) {
		if ok {
			return cur, false, nil
		}
		return sortedInner(fn()), false, nil
	})
}

// Close flushes and closes the store's WAL file.
func (s *SortedMapStore) Close() error {
	return s.w.Close()
}
