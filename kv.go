package durastore

import (
	"encoding/binary"
	"log/slog"
	"path/filepath"

	"github.com/flashdb/durastore/internal/shard"
	"github.com/flashdb/durastore/internal/wal"
)

// KVStore is a durable, concurrent bytes-to-bytes map. Every mutation is
// appended to its WAL before becoming visible to subsequent reads.
type KVStore struct {
	w    *wal.Writer
	data *shard.Map[[]byte]
	log  *slog.Logger
}

// OpenKVStore opens (recovering if necessary) the KV store rooted at dir,
// using kv.wal.dat as its WAL file name.
func OpenKVStore(dir string, opts Options) (*KVStore, error) {
	path := filepath.Join(dir, "kv.wal.dat")
	log := opts.logger()

	s := &KVStore{
		data: shard.New[[]byte](opts.shards()),
		log:  log,
	}

	w, err := wal.Recover(path, collectKV(log), func(snapshot map[string][]byte, w *wal.Writer) error {
		for k, v := range snapshot {
			if err := w.StorePut([]byte(k), v); err != nil {
				return err
			}
		}
		s.data.LoadAll(snapshot)
		return nil
	})
	if err != nil {
		return nil, wrapOpenErr("KV store", err)
	}
	s.w = w
	s.log.Debug("kv store recovered", "path", path, "keys", s.data.Len())
	return s, nil
}

// collectKV returns the parse func passed to wal.Recover: it tries backward
// scan first (logging the fallback) and falls back to forward scan.
func collectKV(log *slog.Logger) func([]byte) (map[string][]byte, error) {
	return func(data []byte) (map[string][]byte, error) {
		if m, err := wal.ReadBackwardKV(data); err == nil {
			return m, nil
		} else {
			log.Warn("kv store: backward recovery failed, falling back to forward scan", "error", err)
		}
		return wal.ReadForwardKV(data)
	}
}

// Get performs a lock-free-with-respect-to-other-shards read.
func (s *KVStore) Get(key []byte) ([]byte, bool) {
	return s.data.Get(key)
}

// Contains reports whether key has a live value.
func (s *KVStore) Contains(key []byte) bool {
	return s.data.Contains(key)
}

// Size returns the number of live keys.
func (s *KVStore) Size() int {
	return s.data.Len()
}

// Put writes a WAL PUT record, then installs value for key, overwriting any
// existing value.
func (s *KVStore) Put(key, value []byte) error {
	return s.data.Put(key, value, func() error {
		return s.w.StorePut(key, value)
	})
}

// Remove writes a WAL DELETE record, then removes key.
func (s *KVStore) Remove(key []byte) error {
	return s.data.Delete(key, func() error {
		return s.w.StoreDelete(key)
	})
}

// Compute reads the current value for key (nil if absent) under an exclusive
// shard lock, calls fn to produce the new value, appends a WAL PUT, and
// installs the result. fn must be side-effect-free on durable state.
func (s *KVStore) Compute(key []byte, fn func(cur []byte, ok bool) []byte) error {
	return s.data.Compute(key, func(cur []byte, ok bool) ([]byte, bool, error) {
		next := fn(cur, ok)
		if err := s.w.StorePut(key, next); err != nil {
			return nil, false, err
		}
		return next, false, nil
	})
}

// IncrementOrInit interprets the current value as a little-endian uint64
// (0 if absent), adds delta, and writes the result back. It returns
// ErrBadEncoding if the current value exists but is not exactly 8 bytes.
func (s *KVStore) IncrementOrInit(key []byte, delta uint64) (uint64, error) {
	var result uint64

	err := s.data.Compute(key, func(cur []byte, ok bool) ([]byte, bool, error) {
		var n uint64
		if ok {
			if len(cur) != 8 {
				return nil, false, ErrBadEncoding
			}
			n = binary.LittleEndian.Uint64(cur)
		}
		n += delta
		result = n

		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, n)
		if err := s.w.StorePut(key, buf); err != nil {
			return nil, false, err
		}
		return buf, false, nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Decrement interprets the current value as a little-endian uint64, subtracts
// delta saturating at 0, and writes the result back. ok is false if key is
// absent.
func (s *KVStore) Decrement(key []byte, delta uint64) (result uint64, ok bool, err error) {
	found := false
	err = s.data.Compute(key, func(cur []byte, has bool) ([]byte, bool, error) {
		if !has {
			return cur, true, nil
		}
		found = true
		if len(cur) != 8 {
			return nil, false, ErrBadEncoding
		}
		n := binary.LittleEndian.Uint64(cur)
		if delta > n {
			n = 0
		} else {
			n -= delta
		}
		result = n

		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, n)
		if werr := s.w.StorePut(key, buf); werr != nil {
			return nil, false, werr
		}
		return buf, false, nil
	})
	return result, found, err
}

// ReadNumber decodes key's current value as a little-endian uint64.
func (s *KVStore) ReadNumber(key []byte) (uint64, bool, error) {
	v, ok := s.data.Get(key)
	if !ok {
		return 0, false, nil
	}
	if len(v) != 8 {
		return 0, true, ErrBadEncoding
	}
	return binary.LittleEndian.Uint64(v), true, nil
}

// SetNumber encodes n as a little-endian uint64, writes a WAL PUT, and
// installs it for key.
func (s *KVStore) SetNumber(key []byte, n uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, n)
	return s.Put(key, buf)
}

// Close flushes and closes the store's WAL file.
func (s *KVStore) Close() error {
	return s.w.Close()
}
