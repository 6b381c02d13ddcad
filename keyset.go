package durastore

import (
	"log/slog"
	"path/filepath"

	"github.com/flashdb/durastore/internal/shard"
	"github.com/flashdb/durastore/internal/wal"
)

// SetStore is a durable, concurrent bytes-to-set-of-bytes map. An outer key's
// set is created lazily on first append and destroyed when its last member is
// removed (invariant I1).
type SetStore struct {
	w    *wal.Writer
	data *shard.Map[map[string]struct{}]
	log  *slog.Logger
}

// OpenSetStore opens (recovering if necessary) the set store rooted at dir,
// using set.wal.dat as its WAL file name.
func OpenSetStore(dir string, opts Options) (*SetStore, error) {
	path := filepath.Join(dir, "set.wal.dat")
	log := opts.logger()

	s := &SetStore{
		data: shard.New[map[string]struct{}](opts.shards()),
		log:  log,
	}

	w, err := wal.Recover(path, wal.ReadForwardSet, func(snapshot map[string]map[string]struct{}, w *wal.Writer) error {
		for key, set := range snapshot {
			for elem := range set {
				if err := w.StoreAppendToSet([]byte(key), []byte(elem)); err != nil {
					return err
				}
			}
		}
		s.data.LoadAll(snapshot)
		return nil
	})
	if err != nil {
		return nil, wrapOpenErr("set store", err)
	}
	s.w = w
	s.log.Debug("set store recovered", "path", path, "keys", s.data.Len())
	return s, nil
}

// Append writes a WAL SET_APPEND record and adds elem to key's set, creating
// the set if this is the first element under key.
func (s *SetStore) Append(key, elem []byte) error {
	return s.data.Compute(key, func(cur map[string]struct{}, ok bool) (map[string]struct{}, bool, error) {
		if err := s.w.StoreAppendToSet(key, elem); err != nil {
			return nil, false, err
		}
		if !ok {
			cur = make(map[string]struct{})
		}
		cur[string(elem)] = struct{}{}
		return cur, false, nil
	})
}

// RemoveFromSet writes a WAL SET_REMOVE record and removes elem from key's
// set. If the set becomes empty, the WAL also records a DELETE and the outer
// key is dropped (I1).
func (s *SetStore) RemoveFromSet(key, elem []byte) error {
	return s.RemoveFromSetCallback(key, elem, nil)
}

// RemoveFromSetCallback behaves like RemoveFromSet, additionally invoking
// onEmptied (if non-nil) iff the outer key was removed as a consequence,
// passing the last element removed.
func (s *SetStore) RemoveFromSetCallback(key, elem []byte, onEmptied func(lastElem []byte)) error {
	emptied := false
	err := s.data.Compute(key, func(cur map[string]struct{}, ok bool) (map[string]struct{}, bool, error) {
		if !ok {
			return cur, true, nil
		}
		if _, present := cur[string(elem)]; !present {
			return cur, false, nil
		}
		if err := s.w.StoreRemoveFromSet(key, elem); err != nil {
			return nil, false, err
		}
		delete(cur, string(elem))
		if len(cur) == 0 {
			if err := s.w.StoreDelete(key); err != nil {
				return nil, false, err
			}
			emptied = true
			return nil, true, nil
		}
		return cur, false, nil
	})
	if err == nil && emptied && onEmptied != nil {
		onEmptied(elem)
	}
	return err
}

// ContainsInSet reports whether elem is a member of key's set.
func (s *SetStore) ContainsInSet(key, elem []byte) bool {
	set, ok := s.data.Get(key)
	if !ok {
		return false
	}
	_, ok = set[string(elem)]
	return ok
}

// GetHashSet returns a copy of key's set, or nil if key is absent.
func (s *SetStore) GetHashSet(key []byte) map[string]struct{} {
	set, ok := s.data.Get(key)
	if !ok {
		return nil
	}
	out := make(map[string]struct{}, len(set))
	for k := range set {
		out[k] = struct{}{}
	}
	return out
}

// RemoveKey drops key's entire set (if present) without emitting individual
// SET_REMOVE records, writing a single WAL DELETE instead.
func (s *SetStore) RemoveKey(key []byte) error {
	return s.data.Delete(key, func() error {
		return s.w.StoreDelete(key)
	})
}

// Size returns the number of live outer keys.
func (s *SetStore) Size() int {
	return s.data.Len()
}

// Compute runs fn under an exclusive shard lock with key's current set
// (nil if absent), installing whatever fn returns. It does not itself write
// to the WAL; callers needing durability for a Compute-driven mutation must
// follow it with an explicit Append/RemoveFromSet.
func (s *SetStore) Compute(key []byte, fn func(cur map[string]struct{}, ok bool) map[string]struct{}) error {
	return s.data.Compute(key, func(cur map[string]struct{}, ok bool) (map[string]struct{}, bool, error) {
		next := fn(cur, ok)
		return next, next == nil, nil
	})
}

// ComputeIfPresent runs fn only if key already has a set, under an exclusive
// shard lock. Like Compute, it does not write to the WAL.
func (s *SetStore) ComputeIfPresent(key []byte, fn func(cur map[string]struct{}) map[string]struct{}) error {
	return s.data.Compute(key, func(cur map[string]struct{}, ok bool) (map[string]struct{}, bool, error) {
		if !ok {
			return cur, true, nil
		}
		next := fn(cur)
		return next, next == nil, nil
	})
}

// ComputeIfAbsent runs fn only if key has no set yet, under an exclusive
// shard lock, installing the set fn returns. Like Compute, it does not write
// to the WAL.
func (s *SetStore) ComputeIfAbsent(key []byte, fn func() map[string]struct{}) error {
	return s.data.Compute(key, func(cur map[string]struct{}, ok bool) (map[string]struct{}, bool, error) {
		if ok {
			return cur, false, nil
		}
		return fn(), false, nil
	})
}

// Close flushes and closes the store's WAL file.
func (s *SetStore) Close() error {
	return s.w.Close()
}
