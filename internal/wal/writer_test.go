package wal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/durastore/searchkey"
)

func TestWriter_StorePutAndOffsetAdvances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.wal.dat")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, uint32(0), w.Offset())
	require.NoError(t, w.StorePut([]byte("a"), []byte("1")))
	first := w.Offset()
	assert.Greater(t, first, uint32(0))

	require.NoError(t, w.StorePut([]byte("b"), []byte("2")))
	assert.Greater(t, w.Offset(), first)
}

func TestWriter_OpenExistingPathFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.wal.dat")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	defer w.Close()

	_, err = OpenWriter(path)
	assert.Error(t, err)
}

func TestWriter_RoundTripThroughForwardRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.wal.dat")
	w, err := OpenWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.StorePut([]byte("a"), []byte("1")))
	require.NoError(t, w.StorePut([]byte("b"), []byte("2")))
	require.NoError(t, w.StoreDelete([]byte("b")))
	require.NoError(t, w.Close())

	data := readFile(t, path)
	result, err := ReadForwardKV(data)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, result)
}

func TestWriter_SortedMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.wal.dat")
	w, err := OpenWriter(path)
	require.NoError(t, err)

	sk := searchkey.Uint(7)
	require.NoError(t, w.StorePutToMap([]byte("k"), sk, []byte("v")))
	require.NoError(t, w.Close())

	data := readFile(t, path)
	snapshot, err := ReadForwardSortedMap(data)
	require.NoError(t, err)
	inner, ok := snapshot["k"]
	require.True(t, ok)
	entry, ok := inner[string(searchkey.Encode(nil, sk))]
	require.True(t, ok)
	assert.Equal(t, "v", string(entry.Value))
}
