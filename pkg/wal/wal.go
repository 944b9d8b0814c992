/*
Package wal implements the write-ahead log described in spec §4.2: a
durable before-image journal written to a sibling, dot-prefixed file next
to the primary database. One Entry is appended before each mutation to the
primary file; entries are replayed in reverse order by the storage layer
on open to undo an interrupted transaction, then the log is truncated.

Grounded on other_examples' novusdb storage/wal.go for the Go shape of a
sequential append-only journal (header-less here, framed records, a mutex
around the single writer) adapted to the spec's exact entry framing from
§6: [u64 position][u64 prev_len][prev_len bytes][u64 record_index_or_zero].
*/
package wal

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/agnesoft/agdb-go/pkg/dberr"
)

// Entry is one before-image journal record.
type Entry struct {
	// RecordIndex is the blob-storage record this write belongs to, or 0
	// if the write is not tied to a single record (e.g. a header write).
	RecordIndex uint64
	// Position is the absolute byte offset in the primary file where the
	// write occurred.
	Position uint64
	// Prev holds the bytes that occupied [Position, Position+len(Prev))
	// before the write being journaled.
	Prev []byte
}

// Wal is a write-ahead log backed by a single sibling file.
type Wal struct {
	mu      sync.Mutex
	f       *os.File
	name    string
	entries []Entry
}

// DeriveName returns the dot-prefixed WAL path for a primary database file
// path, e.g. "/var/lib/db.agdb" -> "/var/lib/.db.agdb".
func DeriveName(primaryName string) string {
	dir, base := filepath.Split(primaryName)
	return filepath.Join(dir, "."+base)
}

// Open opens (creating if necessary) the WAL sibling of primaryName and
// loads any entries already present, so the caller can replay them before
// treating the database as open.
func Open(primaryName string) (*Wal, error) {
	name := DeriveName(primaryName)
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberr.WrapIo("cannot open wal file", err)
	}
	w := &Wal{f: f, name: name}
	if err := w.load(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Wal) load() error {
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return dberr.WrapIo("wal seek failed", err)
	}
	data, err := io.ReadAll(w.f)
	if err != nil {
		return dberr.WrapIo("wal read failed", err)
	}
	entries, err := decodeEntries(data)
	if err != nil {
		return err
	}
	w.entries = entries
	return nil
}

func decodeEntries(data []byte) ([]Entry, error) {
	var entries []Entry
	for len(data) > 0 {
		if len(data) < 16 {
			return nil, dberr.WrapDeserialization("wal entry header truncated", nil)
		}
		position := binary.LittleEndian.Uint64(data[0:8])
		prevLen := binary.LittleEndian.Uint64(data[8:16])
		data = data[16:]
		if uint64(len(data)) < prevLen+8 {
			return nil, dberr.WrapDeserialization("wal entry body truncated", nil)
		}
		prev := make([]byte, prevLen)
		copy(prev, data[:prevLen])
		data = data[prevLen:]
		recordIndex := binary.LittleEndian.Uint64(data[:8])
		data = data[8:]
		entries = append(entries, Entry{RecordIndex: recordIndex, Position: position, Prev: prev})
	}
	return entries, nil
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, 0, 24+len(e.Prev))
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], e.Position)
	buf = append(buf, b[:]...)
	binary.LittleEndian.PutUint64(b[:], uint64(len(e.Prev)))
	buf = append(buf, b[:]...)
	buf = append(buf, e.Prev...)
	binary.LittleEndian.PutUint64(b[:], e.RecordIndex)
	buf = append(buf, b[:]...)
	return buf
}

// Insert appends a before-image entry and returns its 1-based entry id.
func (w *Wal) Insert(recordIndex, pos uint64, prev []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := Entry{RecordIndex: recordIndex, Position: pos, Prev: append([]byte(nil), prev...)}
	raw := encodeEntry(entry)
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return 0, dberr.WrapIo("wal seek failed", err)
	}
	if _, err := w.f.Write(raw); err != nil {
		return 0, dberr.WrapIo("wal append failed", err)
	}
	w.entries = append(w.entries, entry)
	return uint64(len(w.entries)), nil
}

// Records returns a snapshot of the entries appended since the log was
// last cleared, in append order.
func (w *Wal) Records() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Clear truncates the log to empty. Callers must have already restored or
// committed the bytes the log describes.
func (w *Wal) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Truncate(0); err != nil {
		return dberr.WrapIo("wal truncate failed", err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return dberr.WrapIo("wal seek failed", err)
	}
	w.entries = nil
	return nil
}

// Flush durably persists the log file. Commit orders this before the
// primary file's own flush so a crash between the two never loses the
// before-images needed to undo a partial transaction.
func (w *Wal) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Sync(); err != nil {
		return dberr.WrapIo("wal sync failed", err)
	}
	return nil
}

// Rename moves the WAL to the sibling of a newly-renamed primary file.
func (w *Wal) Rename(newPrimaryName string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	newName := DeriveName(newPrimaryName)
	if err := w.f.Close(); err != nil {
		return dberr.WrapIo("wal close before rename failed", err)
	}
	if err := os.Rename(w.name, newName); err != nil {
		return dberr.WrapIo("wal rename failed", err)
	}
	f, err := os.OpenFile(newName, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return dberr.WrapIo("wal reopen after rename failed", err)
	}
	w.f = f
	w.name = newName
	return nil
}

// Empty reports whether the log currently holds no entries.
func (w *Wal) Empty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries) == 0
}

// Close releases the WAL file descriptor without clearing its content.
func (w *Wal) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
