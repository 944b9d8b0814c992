package wal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "db.agdb")
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, filepath.Join("var", "lib", ".db.agdb"), DeriveName(filepath.Join("var", "lib", "db.agdb")))
}

func TestOpenEmptyWal(t *testing.T) {
	w, err := Open(dbPath(t))
	require.NoError(t, err)
	defer w.Close()
	assert.True(t, w.Empty())
	assert.Empty(t, w.Records())
}

func TestInsertAndRecordsOrder(t *testing.T) {
	w, err := Open(dbPath(t))
	require.NoError(t, err)
	defer w.Close()

	id1, err := w.Insert(1, 16, []byte{1, 2, 3})
	require.NoError(t, err)
	id2, err := w.Insert(2, 64, []byte{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)

	records := w.Records()
	require.Len(t, records, 2)
	assert.Equal(t, uint64(16), records[0].Position)
	assert.Equal(t, []byte{1, 2, 3}, records[0].Prev)
	assert.Equal(t, uint64(1), records[0].RecordIndex)
	assert.Equal(t, uint64(64), records[1].Position)
	assert.Equal(t, uint64(2), records[1].RecordIndex)
}

func TestClearEmptiesLog(t *testing.T) {
	w, err := Open(dbPath(t))
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Insert(1, 0, []byte{9, 9})
	require.NoError(t, err)
	require.False(t, w.Empty())

	require.NoError(t, w.Clear())
	assert.True(t, w.Empty())
	assert.Empty(t, w.Records())
}

func TestReopenLoadsUnclearedEntries(t *testing.T) {
	path := dbPath(t)
	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.Insert(7, 128, []byte{5, 6, 7, 8})
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	w2, err := Open(path)
	require.NoError(t, err)
	defer w2.Close()

	records := w2.Records()
	require.Len(t, records, 1)
	assert.Equal(t, uint64(128), records[0].Position)
	assert.Equal(t, []byte{5, 6, 7, 8}, records[0].Prev)
	assert.Equal(t, uint64(7), records[0].RecordIndex)
}

func TestReopenAfterClearIsEmpty(t *testing.T) {
	path := dbPath(t)
	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.Insert(1, 0, []byte{1})
	require.NoError(t, err)
	require.NoError(t, w.Clear())
	require.NoError(t, w.Close())

	w2, err := Open(path)
	require.NoError(t, err)
	defer w2.Close()
	assert.True(t, w2.Empty())
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.agdb")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Insert(1, 0, []byte{1})
	require.NoError(t, err)

	newPath := filepath.Join(dir, "b.agdb")
	require.NoError(t, w.Rename(newPath))

	records := w.Records()
	require.Len(t, records, 1)
}
