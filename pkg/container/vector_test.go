package container

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesoft/agdb-go/pkg/dberr"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

func openTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "db.agdb"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestVector(t *testing.T) *Vector[int64] {
	t.Helper()
	v, err := NewVector[int64](openTestStorage(t), I64Codec)
	require.NoError(t, err)
	return v
}

func TestVectorPushAndIter(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(3))
	require.NoError(t, v.Push(5))

	values, err := v.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, values)
}

func TestVectorIsEmpty(t *testing.T) {
	v := newTestVector(t)
	assert.True(t, v.IsEmpty())
	require.NoError(t, v.Push(1))
	assert.False(t, v.IsEmpty())
}

func TestVectorLen(t *testing.T) {
	v := newTestVector(t)
	assert.Equal(t, uint64(0), v.Len())
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(2))
	require.NoError(t, v.Push(3))
	assert.Equal(t, uint64(3), v.Len())
}

func TestVectorMinCapacity(t *testing.T) {
	v := newTestVector(t)
	assert.Equal(t, uint64(0), v.Capacity())
	require.NoError(t, v.Push(1))
	assert.Equal(t, uint64(minVectorCapacity), v.Capacity())
}

func TestVectorRemove(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(3))
	require.NoError(t, v.Push(5))

	require.NoError(t, v.Remove(1))

	values, err := v.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, values)
}

func TestVectorRemoveAtEnd(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(3))
	require.NoError(t, v.Push(5))

	require.NoError(t, v.Remove(2))

	values, err := v.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, values)
}

func TestVectorRemoveIndexOutOfBounds(t *testing.T) {
	v := newTestVector(t)
	err := v.Remove(0)
	assert.True(t, errors.Is(err, dberr.IndexOutOfBounds))
}

func TestVectorRemoveUpdatesLen(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(3))
	require.NoError(t, v.Remove(0))
	assert.Equal(t, uint64(1), v.Len())
}

func TestVectorReserveLarger(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Reserve(100))
	assert.Equal(t, uint64(100), v.Capacity())
}

func TestVectorReserveSmallerIsNoOp(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Reserve(100))
	require.NoError(t, v.Reserve(10))
	assert.Equal(t, uint64(100), v.Capacity())
}

func TestVectorResizeLarger(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Resize(3))
	assert.Equal(t, uint64(3), v.Len())

	values, err := v.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0, 0}, values)
}

func TestVectorResizeOverCapacity(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Resize(100))
	assert.Equal(t, uint64(100), v.Len())
	assert.GreaterOrEqual(t, v.Capacity(), uint64(100))
}

func TestVectorResizeSame(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Resize(1))
	assert.Equal(t, uint64(1), v.Len())
}

func TestVectorResizeSmaller(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(2))
	require.NoError(t, v.Push(3))
	require.NoError(t, v.Resize(1))

	values, err := v.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, values)
}

func TestVectorSetValue(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.SetValue(0, 10))

	value, err := v.Value(0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), value)
}

func TestVectorSetValueOutOfBounds(t *testing.T) {
	v := newTestVector(t)
	err := v.SetValue(0, 10)
	assert.True(t, errors.Is(err, dberr.IndexOutOfBounds))
}

func TestVectorShrinkToFit(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.Push(1))
	assert.Equal(t, uint64(minVectorCapacity), v.Capacity())

	require.NoError(t, v.ShrinkToFit())
	assert.Equal(t, uint64(1), v.Capacity())
}

func TestVectorShrinkToFitEmpty(t *testing.T) {
	v := newTestVector(t)
	require.NoError(t, v.ShrinkToFit())
	assert.Equal(t, uint64(0), v.Capacity())
}

func TestVectorToSliceEmpty(t *testing.T) {
	v := newTestVector(t)
	values, err := v.ToSlice()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestVectorOpenFromStorage(t *testing.T) {
	s := openTestStorage(t)
	v, err := NewVector[int64](s, I64Codec)
	require.NoError(t, err)
	require.NoError(t, v.Push(1))
	require.NoError(t, v.Push(2))

	reopened, err := OpenVector[int64](s, v.Index(), I64Codec)
	require.NoError(t, err)

	values, err := reopened.ToSlice()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, values)
}

func TestVectorValueOutOfBounds(t *testing.T) {
	v := newTestVector(t)
	_, err := v.Value(0)
	assert.True(t, errors.Is(err, dberr.IndexOutOfBounds))
}
