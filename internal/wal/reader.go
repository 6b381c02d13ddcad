package wal

import (
	"fmt"

	"github.com/flashdb/durastore/internal/record"
	"github.com/flashdb/durastore/searchkey"
)

// SortedEntry is one inner-map entry recovered for the KeySortedMap engine.
type SortedEntry struct {
	SearchKey searchkey.SearchKey
	Value     []byte
}

// ReadForwardKV walks data from offset 0 to the end, applying PUT and DELETE
// records in log order. A CRC mismatch or truncated record aborts recovery.
func ReadForwardKV(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)

	err := forEachRecord(data, func(rec record.Record) error {
		switch rec.Action {
		case record.Delete:
			delete(result, string(rec.Data))
		case record.Put:
			kv, err := record.DecodeKeyValue(rec.Data)
			if err != nil {
				return fmt.Errorf("wal: decode PUT payload: %w", err)
			}
			result[string(kv.Key)] = kv.Value
		default:
			return fmt.Errorf("wal: unexpected action %s in KV log", rec.Action)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReadBackwardKV reconstructs the same map as ReadForwardKV by walking from
// the tail using each record's back-link, applying first-seen-wins semantics
// so superseded writes are never even parsed as live data. It returns
// record.ErrCorrupt (wrapped) if any record it must visit fails to parse or
// fails its CRC check; the caller should fall back to ReadForwardKV.
func ReadBackwardKV(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	removed := make(map[string]struct{})

	if len(data) == 0 {
		return result, nil
	}

	offset, err := record.BackLink(data, len(data))
	if err != nil {
		return nil, err
	}

	for {
		if int(offset) >= len(data) {
			return nil, record.ErrCorrupt
		}
		rec, _, err := record.Decode(data[offset:])
		if err != nil {
			return nil, err
		}

		switch rec.Action {
		case record.Delete:
			key := string(rec.Data)
			if _, ok := result[key]; !ok {
				removed[key] = struct{}{}
			}
		case record.Put:
			kv, err := record.DecodeKeyValue(rec.Data)
			if err != nil {
				return nil, err
			}
			key := string(kv.Key)
			_, haveResult := result[key]
			_, haveRemoved := removed[key]
			if !haveResult && !haveRemoved {
				result[key] = kv.Value
			}
		default:
			return nil, fmt.Errorf("wal: unexpected action %s in KV log", rec.Action)
		}

		if rec.StartOffset == 0 {
			return result, nil
		}
		offset, err = record.BackLink(data, int(rec.StartOffset))
		if err != nil {
			return nil, err
		}
	}
}

// CollectKV tries ReadBackwardKV first (the fast path: most keys' final
// value lives near the tail, so last-writer-wins resolves without replaying
// superseded writes) and falls back to ReadForwardKV on any error.
func CollectKV(data []byte) (map[string][]byte, error) {
	if m, err := ReadBackwardKV(data); err == nil {
		return m, nil
	}
	return ReadForwardKV(data)
}

// ReadForwardSet walks data applying SET_APPEND/SET_REMOVE/DELETE in log
// order, and drops any outer key whose set ends up empty so the result
// already satisfies invariant I1 even if an engine bug ever let a
// last-member removal escape without its paired DELETE record.
func ReadForwardSet(data []byte) (map[string]map[string]struct{}, error) {
	result := make(map[string]map[string]struct{})

	err := forEachRecord(data, func(rec record.Record) error {
		switch rec.Action {
		case record.Delete:
			delete(result, string(rec.Data))
		case record.SetAppend:
			kv, err := record.DecodeKeyValue(rec.Data)
			if err != nil {
				return fmt.Errorf("wal: decode SET_APPEND payload: %w", err)
			}
			key := string(kv.Key)
			set, ok := result[key]
			if !ok {
				set = make(map[string]struct{})
				result[key] = set
			}
			set[string(kv.Value)] = struct{}{}
		case record.SetRemove:
			kv, err := record.DecodeKeyValue(rec.Data)
			if err != nil {
				return fmt.Errorf("wal: decode SET_REMOVE payload: %w", err)
			}
			key := string(kv.Key)
			if set, ok := result[key]; ok {
				delete(set, string(kv.Value))
				if len(set) == 0 {
					delete(result, key)
				}
			}
		default:
			return fmt.Errorf("wal: unexpected action %s in set log", rec.Action)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReadForwardSortedMap walks data applying SORTED_PUT/SORTED_REMOVE/DELETE in
// log order. The inner result is keyed by the SearchKey's canonical encoding
// so repeated puts at the same SearchKey correctly overwrite. Like
// ReadForwardSet, outer keys that end up empty are dropped (I1).
func ReadForwardSortedMap(data []byte) (map[string]map[string]SortedEntry, error) {
	result := make(map[string]map[string]SortedEntry)

	err := forEachRecord(data, func(rec record.Record) error {
		switch rec.Action {
		case record.Delete:
			delete(result, string(rec.Data))
		case record.SortedPut:
			e, err := record.DecodeSortedMapEntry(rec.Data)
			if err != nil {
				return fmt.Errorf("wal: decode SORTED_PUT payload: %w", err)
			}
			key := string(e.Key)
			inner, ok := result[key]
			if !ok {
				inner = make(map[string]SortedEntry)
				result[key] = inner
			}
			inner[string(searchkey.Encode(nil, e.SearchKey))] = SortedEntry{SearchKey: e.SearchKey, Value: e.Value}
		case record.SortedRemove:
			k, err := record.DecodeSortedMapKey(rec.Data)
			if err != nil {
				return fmt.Errorf("wal: decode SORTED_REMOVE payload: %w", err)
			}
			key := string(k.Key)
			if inner, ok := result[key]; ok {
				delete(inner, string(searchkey.Encode(nil, k.SearchKey)))
				if len(inner) == 0 {
					delete(result, key)
				}
			}
		default:
			return fmt.Errorf("wal: unexpected action %s in sorted-map log", rec.Action)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// forEachRecord walks data from offset 0, calling fn with each decoded
// record in order. It stops and returns an error (wrapping record.ErrCorrupt
// for CRC/length failures) at the first record it cannot decode.
func forEachRecord(data []byte, fn func(record.Record) error) error {
	offset := 0
	for offset < len(data) {
		rec, n, err := record.Decode(data[offset:])
		if err != nil {
			return fmt.Errorf("wal: decode record at offset %d: %w", offset, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
		offset += n
	}
	return nil
}
