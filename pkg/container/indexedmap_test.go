package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesoft/agdb-go/pkg/storage"
)

func newTestIndexedMap(t *testing.T) (*storage.Storage, *IndexedBidirectionalMap[string, int64]) {
	t.Helper()
	s := openTestStorage(t)
	m, err := NewIndexedBidirectionalMap[string, int64](s, StringCodec(s), I64Codec, HashString, HashI64)
	require.NoError(t, err)
	return s, m
}

func TestIndexedMapInsert(t *testing.T) {
	_, m := newTestIndexedMap(t)

	require.NoError(t, m.Insert("alias", 1))

	value, ok, err := m.Value("alias")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), value)

	key, ok, err := m.Key(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alias", key)
}

func TestIndexedMapIter(t *testing.T) {
	_, m := newTestIndexedMap(t)
	require.NoError(t, m.Insert("alias1", 1))
	require.NoError(t, m.Insert("alias2", 2))
	require.NoError(t, m.Insert("alias3", 3))

	seen := map[string]int64{}
	require.NoError(t, m.Iter(func(k string, v int64) bool {
		seen[k] = v
		return true
	}))
	assert.Equal(t, map[string]int64{"alias1": 1, "alias2": 2, "alias3": 3}, seen)
}

func TestIndexedMapReplaceByKey(t *testing.T) {
	_, m := newTestIndexedMap(t)
	require.NoError(t, m.Insert("alias", 1))
	require.NoError(t, m.Insert("alias", 2))

	value, ok, err := m.Value("alias")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), value)

	key, ok, err := m.Key(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alias", key)

	_, ok, err = m.Key(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexedMapReplaceByValue(t *testing.T) {
	_, m := newTestIndexedMap(t)
	require.NoError(t, m.Insert("alias", 1))
	require.NoError(t, m.Insert("new_alias", 1))

	_, ok, err := m.Value("alias")
	require.NoError(t, err)
	assert.False(t, ok)

	value, ok, err := m.Value("new_alias")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), value)

	key, ok, err := m.Key(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new_alias", key)
}

func TestIndexedMapRemoveKey(t *testing.T) {
	_, m := newTestIndexedMap(t)
	require.NoError(t, m.Insert("alias", 1))

	require.NoError(t, m.RemoveKey("alias"))
	require.NoError(t, m.RemoveKey("alias"))

	_, ok, err := m.Value("alias")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.Key(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexedMapRemoveValue(t *testing.T) {
	_, m := newTestIndexedMap(t)
	require.NoError(t, m.Insert("alias", 1))

	require.NoError(t, m.RemoveValue(1))
	require.NoError(t, m.RemoveValue(1))

	_, ok, err := m.Value("alias")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.Key(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexedMapFromStorage(t *testing.T) {
	s, m := newTestIndexedMap(t)
	require.NoError(t, m.Insert("alias", 1))
	indices := m.StorageIndices()

	reopened, err := OpenIndexedBidirectionalMap[string, int64](
		s,
		indices[0], indices[1], indices[2], indices[3],
		indices[4], indices[5], indices[6], indices[7],
		StringCodec(s), I64Codec, HashString, HashI64,
	)
	require.NoError(t, err)

	value, ok, err := reopened.Value("alias")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), value)
}
