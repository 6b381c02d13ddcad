package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/durastore/searchkey"
)

func TestKeyValue_RoundTrip(t *testing.T) {
	kv := KeyValue{Key: []byte("k"), Value: []byte("v-value")}
	encoded := EncodeKeyValue(nil, kv)
	decoded, err := DecodeKeyValue(encoded)
	require.NoError(t, err)
	assert.Equal(t, kv, decoded)
}

func TestKeyValue_EmptyValue(t *testing.T) {
	kv := KeyValue{Key: []byte("k"), Value: nil}
	encoded := EncodeKeyValue(nil, kv)
	decoded, err := DecodeKeyValue(encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte("k"), decoded.Key)
	assert.Empty(t, decoded.Value)
}

func TestSortedMapEntry_RoundTrip(t *testing.T) {
	e := SortedMapEntry{
		Key:       []byte("outer"),
		SearchKey: searchkey.SearchKey{searchkey.U64Val(42), searchkey.StringVal("tie")},
		Value:     []byte("val"),
	}
	encoded := EncodeSortedMapEntry(nil, e)
	decoded, err := DecodeSortedMapEntry(encoded)
	require.NoError(t, err)
	assert.Equal(t, e.Key, decoded.Key)
	assert.Equal(t, e.Value, decoded.Value)
	assert.True(t, searchkey.Equal(e.SearchKey, decoded.SearchKey))
}

func TestSortedMapKey_RoundTrip(t *testing.T) {
	k := SortedMapKey{Key: []byte("outer"), SearchKey: searchkey.SearchKey{searchkey.Uint(7)[0]}}
	encoded := EncodeSortedMapKey(nil, k)
	decoded, err := DecodeSortedMapKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, k.Key, decoded.Key)
	assert.True(t, searchkey.Equal(k.SearchKey, decoded.SearchKey))
}

func TestDecodeKeyValue_Truncated(t *testing.T) {
	kv := KeyValue{Key: []byte("k"), Value: []byte("value")}
	encoded := EncodeKeyValue(nil, kv)
	_, err := DecodeKeyValue(encoded[:len(encoded)-2])
	assert.Error(t, err)
}
