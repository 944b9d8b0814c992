package bytestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opener func(name string) (Backing, error)

func openers(t *testing.T) map[string]opener {
	t.Helper()
	return map[string]opener{
		"File": func(name string) (Backing, error) { return OpenFile(name) },
		"Mirror": func(name string) (Backing, error) { return OpenMirror(name) },
	}
}

func tempName(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "db.agdb")
}

func TestBackingWriteReadRoundTrip(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			b, err := open(tempName(t))
			require.NoError(t, err)
			defer b.Close()

			require.NoError(t, b.Write(0, []byte("hello")))
			got, err := b.Read(0, 5)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), got)
			assert.Equal(t, uint64(5), b.Len())
		})
	}
}

func TestBackingWriteGrowsAndZeroFillsGap(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			b, err := open(tempName(t))
			require.NoError(t, err)
			defer b.Close()

			require.NoError(t, b.Write(10, []byte("x")))
			got, err := b.Read(0, 11)
			require.NoError(t, err)
			assert.Equal(t, make([]byte, 10), got[:10])
			assert.Equal(t, byte('x'), got[10])
		})
	}
}

func TestBackingReadOutOfBounds(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			b, err := open(tempName(t))
			require.NoError(t, err)
			defer b.Close()

			_, err = b.Read(0, 1)
			require.Error(t, err)
		})
	}
}

func TestBackingResizeShrinkAndGrow(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			b, err := open(tempName(t))
			require.NoError(t, err)
			defer b.Close()

			require.NoError(t, b.Write(0, []byte("0123456789")))
			require.NoError(t, b.Resize(4))
			assert.Equal(t, uint64(4), b.Len())
			got, err := b.Read(0, 4)
			require.NoError(t, err)
			assert.Equal(t, []byte("0123"), got)

			require.NoError(t, b.Resize(8))
			assert.Equal(t, uint64(8), b.Len())
			got, err = b.Read(4, 4)
			require.NoError(t, err)
			assert.Equal(t, make([]byte, 4), got)
		})
	}
}

func TestBackingFlushPersistsAcrossReopen(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			path := tempName(t)
			b, err := open(path)
			require.NoError(t, err)
			require.NoError(t, b.Write(0, []byte("persisted")))
			require.NoError(t, b.Flush())
			require.NoError(t, b.Close())

			b2, err := open(path)
			require.NoError(t, err)
			defer b2.Close()
			got, err := b2.Read(0, 9)
			require.NoError(t, err)
			assert.Equal(t, []byte("persisted"), got)
		})
	}
}

func TestBackingRename(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "a.agdb")
			b, err := open(path)
			require.NoError(t, err)
			defer b.Close()

			require.NoError(t, b.Write(0, []byte("data")))
			require.NoError(t, b.Flush())

			newPath := filepath.Join(dir, "b.agdb")
			require.NoError(t, b.Rename(newPath))
			assert.Equal(t, newPath, b.Name())

			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))

			got, err := b.Read(0, 4)
			require.NoError(t, err)
			assert.Equal(t, []byte("data"), got)
		})
	}
}

func TestBackingBackup(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "a.agdb")
			b, err := open(path)
			require.NoError(t, err)
			defer b.Close()

			require.NoError(t, b.Write(0, []byte("backup-me")))
			require.NoError(t, b.Flush())

			backupPath := filepath.Join(dir, "a.agdb.bak")
			require.NoError(t, b.Backup(backupPath))

			content, err := os.ReadFile(backupPath)
			require.NoError(t, err)
			assert.Equal(t, []byte("backup-me"), content)
		})
	}
}
