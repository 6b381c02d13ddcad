package durastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStore_AppendRemoveEmptyDropsKeyAndRestart(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSetStore(dir, DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, s.Append([]byte("x"), []byte("p")))
	require.NoError(t, s.Append([]byte("x"), []byte("q")))
	require.NoError(t, s.Append([]byte("y"), []byte("r")))
	require.NoError(t, s.RemoveFromSet([]byte("x"), []byte("p")))
	require.NoError(t, s.RemoveFromSet([]byte("x"), []byte("q")))

	assert.False(t, s.ContainsInSet([]byte("x"), []byte("p")))
	assert.Nil(t, s.GetHashSet([]byte("x")))
	assert.Equal(t, 1, s.Size())
	require.NoError(t, s.Close())

	s2, err := OpenSetStore(dir, DefaultOptions())
	require.NoError(t, err)
	defer s2.Close()

	assert.Nil(t, s2.GetHashSet([]byte("x")))
	assert.True(t, s2.ContainsInSet([]byte("y"), []byte("r")))
	assert.Equal(t, 1, s2.Size())
}

func TestSetStore_RemoveFromSetCallback(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSetStore(dir, DefaultOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append([]byte("k"), []byte("only")))

	var lastElem []byte
	require.NoError(t, s.RemoveFromSetCallback([]byte("k"), []byte("only"), func(e []byte) {
		lastElem = e
	}))
	assert.Equal(t, "only", string(lastElem))
	assert.False(t, s.ContainsInSet([]byte("k"), []byte("only")))
}

func TestSetStore_RemoveFromSetCallback_NotEmptiedDoesNotInvoke(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSetStore(dir, DefaultOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append([]byte("k"), []byte("a")))
	require.NoError(t, s.Append([]byte("k"), []byte("b")))

	invoked := false
	require.NoError(t, s.RemoveFromSetCallback([]byte("k"), []byte("a"), func([]byte) {
		invoked = true
	}))
	assert.False(t, invoked)
	assert.True(t, s.ContainsInSet([]byte("k"), []byte("b")))
}

func TestSetStore_GetHashSetIsACopy(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSetStore(dir, DefaultOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append([]byte("k"), []byte("a")))
	snap := s.GetHashSet([]byte("k"))
	snap["b"] = struct{}{}

	assert.False(t, s.ContainsInSet([]byte("k"), []byte("b")))
}

func TestSetStore_ComputeIfAbsentAndIfPresent(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSetStore(dir, DefaultOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ComputeIfAbsent([]byte("k"), func() map[string]struct{} {
		return map[string]struct{}{"seed": {}}
	}))
	assert.True(t, s.ContainsInSet([]byte("k"), []byte("seed")))

	require.NoError(t, s.ComputeIfAbsent([]byte("k"), func() map[string]struct{} {
		t.Fatal("should not be called: key already present")
		return nil
	}))

	require.NoError(t, s.ComputeIfPresent([]byte("k"), func(cur map[string]struct{}) map[string]struct{} {
		cur["more"] = struct{}{}
		return cur
	}))
	assert.True(t, s.ContainsInSet([]byte("k"), []byte("more")))

	require.NoError(t, s.ComputeIfPresent([]byte("absent"), func(cur map[string]struct{}) map[string]struct{} {
		t.Fatal("should not be called: key absent")
		return nil
	}))
}
