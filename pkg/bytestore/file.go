package bytestore

import (
	"io"
	"os"

	"github.com/natefinch/atomic"

	"github.com/agnesoft/agdb-go/pkg/dberr"
)

// File is the file-only Backing: every read and write goes straight to the
// underlying *os.File, keeping process memory at O(1) regardless of
// database size.
type File struct {
	f    *os.File
	name string
	size uint64
}

// OpenFile opens (creating if necessary) the file at name as a File
// backing.
func OpenFile(name string) (*File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.WrapIo("cannot open file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.WrapIo("cannot stat file", err)
	}
	return &File{f: f, name: name, size: uint64(info.Size())}, nil
}

func (b *File) Read(pos, length uint64) ([]byte, error) {
	if pos+length > b.size {
		return nil, dberr.WrapDeserialization("read out of bounds", nil)
	}
	out := make([]byte, length)
	if length == 0 {
		return out, nil
	}
	if _, err := b.f.ReadAt(out, int64(pos)); err != nil {
		return nil, dberr.WrapIo("read failed", err)
	}
	return out, nil
}

func (b *File) Write(pos uint64, data []byte) error {
	end := pos + uint64(len(data))
	if end > b.size {
		if err := b.growTo(end); err != nil {
			return err
		}
	}
	if len(data) == 0 {
		return nil
	}
	if _, err := b.f.WriteAt(data, int64(pos)); err != nil {
		return dberr.WrapIo("write failed", err)
	}
	return nil
}

func (b *File) growTo(length uint64) error {
	if err := b.f.Truncate(int64(length)); err != nil {
		return dberr.WrapIo("truncate failed", err)
	}
	b.size = length
	return nil
}

func (b *File) Resize(length uint64) error { return b.growTo(length) }

func (b *File) Flush() error {
	if err := b.f.Sync(); err != nil {
		return dberr.WrapIo("sync failed", err)
	}
	return nil
}

func (b *File) Rename(name string) error {
	if err := b.f.Close(); err != nil {
		return dberr.WrapIo("close before rename failed", err)
	}
	if err := os.Rename(b.name, name); err != nil {
		return dberr.WrapIo("rename failed", err)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.WrapIo("reopen after rename failed", err)
	}
	b.f = f
	b.name = name
	return nil
}

func (b *File) Backup(name string) error {
	if _, err := b.f.Seek(0, io.SeekStart); err != nil {
		return dberr.WrapIo("seek before backup failed", err)
	}
	r := io.NewSectionReader(b.f, 0, int64(b.size))
	if err := atomic.WriteFile(name, r); err != nil {
		return dberr.WrapIo("backup failed", err)
	}
	return nil
}

func (b *File) Len() uint64  { return b.size }
func (b *File) Name() string { return b.name }
func (b *File) Close() error { return b.f.Close() }

var _ Backing = (*File)(nil)
