package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMultiMap(t *testing.T) *MultiMap[int64, int64] {
	t.Helper()
	m, err := NewMultiMap[int64, int64](openTestStorage(t), I64Codec, I64Codec, HashI64)
	require.NoError(t, err)
	return m
}

func TestMultiMapNewIsEmpty(t *testing.T) {
	m := newTestMultiMap(t)
	assert.True(t, m.IsEmpty())
	assert.Equal(t, uint64(0), m.Len())
	assert.Equal(t, uint64(0), m.Capacity())
}

func TestMultiMapInsertAllowsDuplicateKeys(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))
	require.NoError(t, m.Insert(1, 30))

	values, err := m.Values(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 20, 30}, values)

	count, err := m.ValuesCount(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestMultiMapIterKey(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))
	require.NoError(t, m.Insert(2, 99))

	var seen []int64
	require.NoError(t, m.IterKey(1, func(v int64) bool {
		seen = append(seen, v)
		return true
	}))
	assert.ElementsMatch(t, []int64{10, 20}, seen)
}

func TestMultiMapContainsAndContainsValue(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))

	contains, err := m.Contains(1)
	require.NoError(t, err)
	assert.True(t, contains)

	contains, err = m.Contains(2)
	require.NoError(t, err)
	assert.False(t, contains)

	hasValue, err := m.ContainsValue(1, 10)
	require.NoError(t, err)
	assert.True(t, hasValue)

	hasValue, err = m.ContainsValue(1, 99)
	require.NoError(t, err)
	assert.False(t, hasValue)
}

func TestMultiMapRemoveValueOnEmptyMapIsNoOp(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.RemoveValue(1, 10))
}

func TestMultiMapRemoveMissingValueIsNoOp(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.RemoveValue(1, 99))

	values, err := m.Values(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, values)
}

func TestMultiMapRemoveValueShrinksCapacity(t *testing.T) {
	m := newTestMultiMap(t)
	for i := int64(0); i < 100; i++ {
		require.NoError(t, m.Insert(i, i*10))
	}
	grownCapacity := m.Capacity()
	assert.Greater(t, grownCapacity, uint64(minTableCapacity))

	for i := int64(0); i < 100; i++ {
		require.NoError(t, m.RemoveValue(i, i*10))
	}

	assert.Less(t, m.Capacity(), grownCapacity)
	assert.Equal(t, uint64(0), m.Len())
}

func TestMultiMapRemoveKeyRemovesEveryValue(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))
	require.NoError(t, m.Insert(2, 99))

	require.NoError(t, m.RemoveKey(1))

	values, err := m.Values(1)
	require.NoError(t, err)
	assert.Empty(t, values)

	count, err := m.ValuesCount(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestMultiMapInsertOrReplaceOnEmptyMap(t *testing.T) {
	m := newTestMultiMap(t)
	old, existed, err := m.InsertOrReplace(1, 10, func(int64) bool { return true })
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, int64(0), old)
}

func TestMultiMapInsertOrReplaceMissingAppends(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))

	old, existed, err := m.InsertOrReplace(1, 20, func(v int64) bool { return v == 999 })
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, int64(0), old)

	count, err := m.ValuesCount(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestMultiMapInsertOrReplaceDeletedSlotReused(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.RemoveValue(1, 10))

	old, existed, err := m.InsertOrReplace(1, 20, func(int64) bool { return true })
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, int64(0), old)

	values, err := m.Values(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, values)
}

func TestMultiMapValuesCount(t *testing.T) {
	m := newTestMultiMap(t)
	require.NoError(t, m.Insert(1, 1))
	require.NoError(t, m.Insert(1, 2))
	require.NoError(t, m.Insert(1, 3))
	require.NoError(t, m.Insert(2, 4))

	count, err := m.ValuesCount(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	count, err = m.ValuesCount(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestMultiMapOpenFromStorage(t *testing.T) {
	s := openTestStorage(t)
	m, err := NewMultiMap[int64, int64](s, I64Codec, I64Codec, HashI64)
	require.NoError(t, err)
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))

	reopened, err := OpenMultiMap[int64, int64](s, m.StateIndex(), m.KeyIndex(), m.ValueIndex(), m.LenIndex(), I64Codec, I64Codec, HashI64)
	require.NoError(t, err)

	values, err := reopened.Values(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 20}, values)
}

func TestMultiMapRehashPreservesAllEntries(t *testing.T) {
	m := newTestMultiMap(t)
	const n = 500
	for i := int64(0); i < n; i++ {
		require.NoError(t, m.Insert(i%50, i))
	}

	total := uint64(0)
	require.NoError(t, m.Iter(func(int64, int64) bool {
		total++
		return true
	}))
	assert.Equal(t, uint64(n), total)

	for k := int64(0); k < 50; k++ {
		count, err := m.ValuesCount(k)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), count)
	}
}
