package bytestore

import (
	"bytes"
	"io"
	"os"

	"github.com/natefinch/atomic"

	"github.com/agnesoft/agdb-go/pkg/dberr"
)

// Mirror is the file+mirror Backing: the file's full content is read into
// an in-memory buffer once at open time. Reads are served from the buffer
// (no syscall per read); writes go to both the buffer and the file. This
// trades O(n) memory for read latency, which is the right trade for
// databases that comfortably fit in RAM.
type Mirror struct {
	f    *os.File
	name string
	buf  []byte
}

// OpenMirror opens (creating if necessary) the file at name and reads its
// full content into memory.
func OpenMirror(name string) (*Mirror, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.WrapIo("cannot open file", err)
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, dberr.WrapIo("cannot read file", err)
	}
	return &Mirror{f: f, name: name, buf: buf}, nil
}

func (b *Mirror) Read(pos, length uint64) ([]byte, error) {
	if pos+length > uint64(len(b.buf)) {
		return nil, dberr.WrapDeserialization("read out of bounds", nil)
	}
	out := make([]byte, length)
	copy(out, b.buf[pos:pos+length])
	return out, nil
}

func (b *Mirror) Write(pos uint64, data []byte) error {
	end := pos + uint64(len(data))
	if end > uint64(len(b.buf)) {
		b.growBufTo(end)
	}
	copy(b.buf[pos:end], data)
	if len(data) == 0 {
		return nil
	}
	if _, err := b.f.WriteAt(data, int64(pos)); err != nil {
		return dberr.WrapIo("write failed", err)
	}
	return nil
}

func (b *Mirror) growBufTo(length uint64) {
	if uint64(len(b.buf)) >= length {
		return
	}
	grown := make([]byte, length)
	copy(grown, b.buf)
	b.buf = grown
}

func (b *Mirror) Resize(length uint64) error {
	if length <= uint64(len(b.buf)) {
		b.buf = b.buf[:length]
	} else {
		b.growBufTo(length)
	}
	if err := b.f.Truncate(int64(length)); err != nil {
		return dberr.WrapIo("truncate failed", err)
	}
	return nil
}

func (b *Mirror) Flush() error {
	if err := b.f.Sync(); err != nil {
		return dberr.WrapIo("sync failed", err)
	}
	return nil
}

func (b *Mirror) Rename(name string) error {
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

func (b *Mirror) Backup(name string) error {
	if err := atomic.WriteFile(name, bytes.NewReader(b.buf)); err != nil {
		return dberr.WrapIo("backup failed", err)
	}
	return nil
}

func (b *Mirror) Len() uint64  { return uint64(len(b.buf)) }
func (b *Mirror) Name() string { return b.name }
func (b *Mirror) Close() error { return b.f.Close() }

var _ Backing = (*Mirror)(nil)
