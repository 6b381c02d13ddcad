package record

import (
	"encoding/binary"
	"fmt"

	"github.com/flashdb/durastore/searchkey"
)

// KeyValue is the payload of a PUT, SET_APPEND, or SET_REMOVE record.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// EncodeKeyValue appends the canonical encoding of kv to dst: an 8-byte
// little-endian key length, the key, an 8-byte little-endian value length,
// and the value.
func EncodeKeyValue(dst []byte, kv KeyValue) []byte {
	dst = appendLenPrefixed(dst, kv.Key)
	dst = appendLenPrefixed(dst, kv.Value)
	return dst
}

// DecodeKeyValue parses a KeyValue from src as written by EncodeKeyValue.
func DecodeKeyValue(src []byte) (KeyValue, error) {
	key, rest, err := readLenPrefixed(src)
	if err != nil {
		return KeyValue{}, err
	}
	value, rest, err := readLenPrefixed(rest)
	if err != nil {
		return KeyValue{}, err
	}
	if len(rest) != 0 {
		return KeyValue{}, fmt.Errorf("record: %d trailing bytes in KeyValue payload", len(rest))
	}
	return KeyValue{Key: key, Value: value}, nil
}

// SortedMapEntry is the payload of a SORTED_PUT record.
type SortedMapEntry struct {
	Key       []byte
	SearchKey searchkey.SearchKey
	Value     []byte
}

// EncodeSortedMapEntry appends the canonical encoding of e to dst.
func EncodeSortedMapEntry(dst []byte, e SortedMapEntry) []byte {
	dst = appendLenPrefixed(dst, e.Key)
	dst = searchkey.Encode(dst, e.SearchKey)
	dst = appendLenPrefixed(dst, e.Value)
	return dst
}

// DecodeSortedMapEntry parses a SortedMapEntry from src.
func DecodeSortedMapEntry(src []byte) (SortedMapEntry, error) {
	key, rest, err := readLenPrefixed(src)
	if err != nil {
		return SortedMapEntry{}, err
	}
	sk, n, err := searchkey.Decode(rest)
	if err != nil {
		return SortedMapEntry{}, err
	}
	rest = rest[n:]
	value, rest, err := readLenPrefixed(rest)
	if err != nil {
		return SortedMapEntry{}, err
	}
	if len(rest) != 0 {
		return SortedMapEntry{}, fmt.Errorf("record: %d trailing bytes in SortedMapEntry payload", len(rest))
	}
	return SortedMapEntry{Key: key, SearchKey: sk, Value: value}, nil
}

// SortedMapKey is the payload of a SORTED_REMOVE record.
type SortedMapKey struct {
	Key       []byte
	SearchKey searchkey.SearchKey
}

// EncodeSortedMapKey appends the canonical encoding of k to dst.
func EncodeSortedMapKey(dst []byte, k SortedMapKey) []byte {
	dst = appendLenPrefixed(dst, k.Key)
	dst = searchkey.Encode(dst, k.SearchKey)
	return dst
}

// DecodeSortedMapKey parses a SortedMapKey from src.
func DecodeSortedMapKey(src []byte) (SortedMapKey, error) {
	key, rest, err := readLenPrefixed(src)
	if err != nil {
		return SortedMapKey{}, err
	}
	sk, n, err := searchkey.Decode(rest)
	if err != nil {
		return SortedMapKey{}, err
	}
	rest = rest[n:]
	if len(rest) != 0 {
		return SortedMapKey{}, fmt.Errorf("record: %d trailing bytes in SortedMapKey payload", len(rest))
	}
	return SortedMapKey{Key: key, SearchKey: sk}, nil
}

func appendLenPrefixed(dst []byte, b []byte) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(b)))
	dst = append(dst, buf[:]...)
	dst = append(dst, b...)
	return dst
}

func readLenPrefixed(src []byte) (value []byte, rest []byte, err error) {
	if len(src) < 8 {
		return nil, nil, fmt.Errorf("record: truncated length prefix")
	}
	n := binary.LittleEndian.Uint64(src)
	src = src[8:]
	if uint64(len(src)) < n {
		return nil, nil, fmt.Errorf("record: truncated payload, want %d bytes have %d", n, len(src))
	}
	return src[:n], src[n:], nil
}
