package durastore

import (
	"sort"

	"github.com/flashdb/durastore/searchkey"
)

// SortedEntry is one (SearchKey, value) pair returned by the SortedMapStore
// snapshot and range-query operations.
type SortedEntry struct {
	SearchKey searchkey.SearchKey
	Value     []byte
}

// sortedInner is an inner container for the KeySortedMap engine: a slice of
// entries kept sorted by SearchKey at all times. Every mutation returns a new
// slice (copy-on-write) rather than mutating in place, so a slice handed back
// by Get/GetSortedMap remains a stable snapshot even if the outer map is
// mutated concurrently on other shards.
type sortedInner []SortedEntry

func (s sortedInner) search(sk searchkey.SearchKey) (int, bool) {
	i := sort.Search(len(s), func(i int) bool {
		return searchkey.Compare(s[i].SearchKey, sk) >= 0
	})
	if i < len(s) && searchkey.Equal(s[i].SearchKey, sk) {
		return i, true
	}
	return i, false
}

func (s sortedInner) get(sk searchkey.SearchKey) ([]byte, bool) {
	i, found := s.search(sk)
	if !found {
		return nil, false
	}
	return s[i].Value, true
}

// put returns a new sortedInner with (sk, value) inserted, overwriting any
// existing entry at sk.
func (s sortedInner) put(sk searchkey.SearchKey, value []byte) sortedInner {
	i, found := s.search(sk)
	if found {
		out := make(sortedInner, len(s))
		copy(out, s)
		out[i] = SortedEntry{SearchKey: sk, Value: value}
		return out
	}
	out := make(sortedInner, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, SortedEntry{SearchKey: sk, Value: value})
	out = append(out, s[i:]...)
	return out
}

// remove returns a new sortedInner with sk's entry removed, and whether it
// was present.
func (s sortedInner) remove(sk searchkey.SearchKey) (sortedInner, bool) {
	i, found := s.search(sk)
	if !found {
		return s, false
	}
	out := make(sortedInner, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out, true
}

func (s sortedInner) first() (SortedEntry, bool) {
	if len(s) == 0 {
		return SortedEntry{}, false
	}
	return s[0], true
}

func (s sortedInner) last() (SortedEntry, bool) {
	if len(s) == 0 {
		return SortedEntry{}, false
	}
	return s[len(s)-1], true
}

// rangeEntries returns the entries with SearchKey between lo and hi (each
// bound inclusive, exclusive or unbounded per its Kind), in ascending order.
func (s sortedInner) rangeEntries(lo, hi searchkey.Bound) []SortedEntry {
	var out []SortedEntry
	for _, e := range s {
		if searchkey.InRange(e.SearchKey, lo, hi) {
			out = append(out, e)
		}
	}
	return out
}
