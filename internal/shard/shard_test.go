package shard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PutGetDelete(t *testing.T) {
	m := New[[]byte](8)

	require.NoError(t, m.Put([]byte("a"), []byte("1"), nil))
	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	require.NoError(t, m.Delete([]byte("a"), nil))
	_, ok = m.Get([]byte("a"))
	assert.False(t, ok)
}

func TestMap_PutRunsBeforeHookFirst(t *testing.T) {
	m := New[int](4)
	order := []string{}

	err := m.Put([]byte("k"), 1, func() error {
		order = append(order, "before")
		return nil
	})
	require.NoError(t, err)
	order = append(order, "after")
	assert.Equal(t, []string{"before", "after"}, order)
}

func TestMap_PutAbortsOnBeforeError(t *testing.T) {
	m := New[int](4)
	sentinel := assert.AnError

	err := m.Put([]byte("k"), 1, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	_, ok := m.Get([]byte("k"))
	assert.False(t, ok)
}

func TestMap_ComputeInstallsOrRemoves(t *testing.T) {
	m := New[int](4)

	err := m.Compute([]byte("k"), func(cur int, ok bool) (int, bool, error) {
		assert.False(t, ok)
		return 5, false, nil
	})
	require.NoError(t, err)
	v, ok := m.Get([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, 5, v)

	err = m.Compute([]byte("k"), func(cur int, ok bool) (int, bool, error) {
		assert.True(t, ok)
		assert.Equal(t, 5, cur)
		return 0, true, nil
	})
	require.NoError(t, err)
	_, ok = m.Get([]byte("k"))
	assert.False(t, ok)
}

func TestMap_LenAcrossShards(t *testing.T) {
	m := New[int](16)
	for i := 0; i < 50; i++ {
		require.NoError(t, m.Put([]byte{byte(i)}, i, nil))
	}
	assert.Equal(t, 50, m.Len())
}

func TestMap_ConcurrentDifferentKeysDoNotDeadlock(t *testing.T) {
	m := New[int](16)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []byte{byte(i), byte(i >> 8)}
			require.NoError(t, m.Put(key, i, nil))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, m.Len())
}

func TestMap_LoadAll(t *testing.T) {
	m := New[[]byte](8)
	m.LoadAll(map[string][]byte{"a": []byte("1"), "b": []byte("2")})

	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, "1", string(v))
	assert.Equal(t, 2, m.Len())
}

func TestMap_ShardCountRoundsUpToPowerOfTwo(t *testing.T) {
	m := New[int](5)
	assert.Equal(t, 8, len(m.shards))
}
