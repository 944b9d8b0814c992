package storage

import (
	"sort"
	"sync"

	"github.com/agnesoft/agdb-go/pkg/bytestore"
	"github.com/agnesoft/agdb-go/pkg/dberr"
	"github.com/agnesoft/agdb-go/pkg/log"
	"github.com/agnesoft/agdb-go/pkg/serialize"
	"github.com/agnesoft/agdb-go/pkg/wal"
)

const (
	headerSize   = 3 * serialize.SizeU64 // index, size, position
	fileMetaSize = 4 * serialize.SizeU64 // freeListHead, nextIndex, catalogCap, catalogPos
	freeBit      = uint64(1) << 63

	initialCatalogCapacity = 64

	// RootIndex is the reserved record every freshly created database
	// carries from first open (spec §3 "index 1 is the reserved root
	// record"). Higher layers (pkg/agdb) grow it to hold their own
	// fixed-size descriptor.
	RootIndex = 1
)

// Storage is the blob storage engine: a single primary file of
// variable-length records addressed by a stable index, journaled
// through a write-ahead log.
type Storage struct {
	mu sync.Mutex

	backing bytestore.Backing
	wal     *wal.Wal

	freeListHead uint64
	nextIndex    uint64
	catalogCap   uint64
	catalogPos   uint64
	catalog      []uint64 // 1-indexed; catalog[0] unused

	txStack []uint64
	txNext  uint64
}

// Open opens or creates the primary file at name, recovering from the
// sibling write-ahead log if it holds unreplayed entries.
func Open(name string, mirror bool) (*Storage, error) {
	var backing bytestore.Backing
	var err error
	if mirror {
		backing, err = bytestore.OpenMirror(name)
	} else {
		backing, err = bytestore.OpenFile(name)
	}
	if err != nil {
		return nil, err
	}

	w, err := wal.Open(name)
	if err != nil {
		backing.Close()
		return nil, err
	}

	s := &Storage{backing: backing, wal: w}

	if !w.Empty() {
		if err := s.recover(); err != nil {
			return nil, err
		}
		log.Info("storage: recovered from write-ahead log")
	}

	if backing.Len() == 0 {
		if err := s.initFresh(); err != nil {
			return nil, err
		}
	} else if err := s.loadMeta(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) recover() error {
	entries := s.wal.Records()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := s.backing.Write(e.Position, e.Prev); err != nil {
			return err
		}
	}
	if err := s.backing.Flush(); err != nil {
		return err
	}
	return s.wal.Clear()
}

func (s *Storage) initFresh() error {
	s.freeListHead = 0
	s.nextIndex = RootIndex + 1
	s.catalogCap = initialCatalogCapacity
	s.catalogPos = fileMetaSize
	s.catalog = make([]uint64, s.catalogCap+1)

	if err := s.backing.Write(0, s.encodeMeta()); err != nil {
		return err
	}
	if err := s.backing.Write(s.catalogPos, make([]byte, s.catalogCap*serialize.SizeU64)); err != nil {
		return err
	}

	rootPos := s.catalogPos + s.catalogCap*serialize.SizeU64
	header := encodeHeader(RootIndex, 0, rootPos)
	if err := s.backing.Write(rootPos, header); err != nil {
		return err
	}
	s.catalog[RootIndex] = rootPos
	return s.writeCatalogEntry(RootIndex)
}

func (s *Storage) loadMeta() error {
	data, err := s.backing.Read(0, fileMetaSize)
	if err != nil {
		return dberr.WrapIo("cannot read storage file meta", err)
	}
	var err2 error
	s.freeListHead, err2 = serialize.U64(data[0:8])
	if err2 != nil {
		return dberr.WrapDeserialization("corrupt free list head", err2)
	}
	s.nextIndex, err2 = serialize.U64(data[8:16])
	if err2 != nil {
		return dberr.WrapDeserialization("corrupt next index", err2)
	}
	s.catalogCap, err2 = serialize.U64(data[16:24])
	if err2 != nil {
		return dberr.WrapDeserialization("corrupt catalog capacity", err2)
	}
	s.catalogPos, err2 = serialize.U64(data[24:32])
	if err2 != nil {
		return dberr.WrapDeserialization("corrupt catalog position", err2)
	}

	raw, err := s.backing.Read(s.catalogPos, s.catalogCap*serialize.SizeU64)
	if err != nil {
		return dberr.WrapIo("cannot read storage catalog", err)
	}
	s.catalog = make([]uint64, s.catalogCap+1)
	for i := uint64(1); i <= s.catalogCap; i++ {
		v, err := serialize.U64(raw[(i-1)*serialize.SizeU64:])
		if err != nil {
			return dberr.WrapDeserialization("corrupt catalog entry", err)
		}
		s.catalog[i] = v
	}
	return nil
}

func (s *Storage) encodeMeta() []byte {
	buf := make([]byte, 0, fileMetaSize)
	buf = serialize.PutU64(buf, s.freeListHead)
	buf = serialize.PutU64(buf, s.nextIndex)
	buf = serialize.PutU64(buf, s.catalogCap)
	buf = serialize.PutU64(buf, s.catalogPos)
	return buf
}

func encodeHeader(index, size, position uint64) []byte {
	buf := make([]byte, 0, headerSize)
	buf = serialize.PutU64(buf, index)
	buf = serialize.PutU64(buf, size)
	buf = serialize.PutU64(buf, position)
	return buf
}

func decodeHeader(data []byte) (index, size, position uint64, err error) {
	if len(data) < headerSize {
		return 0, 0, 0, dberr.WrapDeserialization("corrupt record header", nil)
	}
	index, err = serialize.U64(data[0:8])
	if err != nil {
		return 0, 0, 0, dberr.WrapDeserialization("corrupt record header", err)
	}
	size, err = serialize.U64(data[8:16])
	if err != nil {
		return 0, 0, 0, dberr.WrapDeserialization("corrupt record header", err)
	}
	position, err = serialize.U64(data[16:24])
	if err != nil {
		return 0, 0, 0, dberr.WrapDeserialization("corrupt record header", err)
	}
	return index, size, position, nil
}

// journalWrite records the bytes currently at [pos, pos+len(data)) to the
// write-ahead log, then performs the write.
func (s *Storage) journalWrite(recordIndex, pos uint64, data []byte) error {
	prevLen := uint64(len(data))
	var prev []byte
	if pos < s.backing.Len() {
		avail := s.backing.Len() - pos
		if avail < prevLen {
			prevLen = avail
		}
		var err error
		prev, err = s.backing.Read(pos, prevLen)
		if err != nil {
			return err
		}
	}
	if _, err := s.wal.Insert(recordIndex, pos, prev); err != nil {
		return err
	}
	return s.backing.Write(pos, data)
}

func (s *Storage) writeCatalogEntry(index uint64) error {
	pos := s.catalogPos + (index-1)*serialize.SizeU64
	return s.journalWrite(0, pos, serialize.PutU64(nil, s.catalog[index]))
}

func (s *Storage) writeMeta() error {
	return s.journalWrite(0, 0, s.encodeMeta())
}

func (s *Storage) growCatalog() error {
	newCap := s.catalogCap * 2
	newPos := s.backing.Len()

	buf := make([]byte, newCap*serialize.SizeU64)
	for i := uint64(1); i <= s.catalogCap; i++ {
		copy(buf[(i-1)*serialize.SizeU64:], serialize.PutU64(nil, s.catalog[i]))
	}
	if err := s.journalWrite(0, newPos, buf); err != nil {
		return err
	}

	newCatalog := make([]uint64, newCap+1)
	copy(newCatalog, s.catalog)
	s.catalog = newCatalog
	s.catalogCap = newCap
	s.catalogPos = newPos
	return s.writeMeta()
}

func (s *Storage) allocateIndex() (uint64, error) {
	if s.freeListHead != 0 {
		idx := s.freeListHead
		next := s.catalog[idx] &^ freeBit
		s.freeListHead = next
		if err := s.writeMeta(); err != nil {
			return 0, err
		}
		return idx, nil
	}

	idx := s.nextIndex
	s.nextIndex++
	if idx >= s.catalogCap {
		if err := s.growCatalog(); err != nil {
			return 0, err
		}
	}
	if err := s.writeMeta(); err != nil {
		return 0, err
	}
	return idx, nil
}

func (s *Storage) setCatalog(index, position uint64) error {
	s.catalog[index] = position
	return s.writeCatalogEntry(index)
}

func (s *Storage) positionOf(index uint64) (uint64, error) {
	if index == 0 || index >= uint64(len(s.catalog)) {
		return 0, dberr.NewNotFound("no such record")
	}
	pos := s.catalog[index]
	if pos == 0 || pos&freeBit != 0 {
		return 0, dberr.NewNotFound("no such record")
	}
	return pos, nil
}

// Insert allocates a new record holding data and returns its index.
func (s *Storage) Insert(data []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.allocateIndex()
	if err != nil {
		return 0, err
	}
	pos := s.backing.Len()
	header := encodeHeader(idx, uint64(len(data)), pos)
	if err := s.journalWrite(idx, pos, append(header, data...)); err != nil {
		return 0, err
	}
	if err := s.setCatalog(idx, pos); err != nil {
		return 0, err
	}
	return idx, nil
}

// ValueSize returns the current payload size of a record.
func (s *Storage) ValueSize(index uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, err := s.positionOf(index)
	if err != nil {
		return 0, err
	}
	header, err := s.backing.Read(pos, headerSize)
	if err != nil {
		return 0, dberr.WrapIo("cannot read record header", err)
	}
	_, size, _, err := decodeHeader(header)
	return size, err
}

// Value returns the full payload of a record.
func (s *Storage) Value(index uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value(index)
}

func (s *Storage) value(index uint64) ([]byte, error) {
	pos, err := s.positionOf(index)
	if err != nil {
		return nil, err
	}
	header, err := s.backing.Read(pos, headerSize)
	if err != nil {
		return nil, dberr.WrapIo("cannot read record header", err)
	}
	_, size, _, err := decodeHeader(header)
	if err != nil {
		return nil, err
	}
	return s.backing.Read(pos+headerSize, size)
}

// ValueAt returns `size` bytes of a record's payload starting at offset.
func (s *Storage) ValueAt(index, offset, size uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, err := s.positionOf(index)
	if err != nil {
		return nil, err
	}
	header, err := s.backing.Read(pos, headerSize)
	if err != nil {
		return nil, dberr.WrapIo("cannot read record header", err)
	}
	_, payloadSize, _, err := decodeHeader(header)
	if err != nil {
		return nil, err
	}
	if offset+size > payloadSize {
		return nil, dberr.NewOutOfRange("value_at out of range")
	}
	return s.backing.Read(pos+headerSize+offset, size)
}

// relocate moves a record's payload to the tail of the file, growing it
// to newSize and preserving the first min(oldSize,newSize) bytes.
func (s *Storage) relocate(index uint64, oldPos, oldSize, newSize uint64) (uint64, error) {
	keep := oldSize
	if newSize < keep {
		keep = newSize
	}
	old, err := s.backing.Read(oldPos+headerSize, keep)
	if err != nil {
		return 0, dberr.WrapIo("cannot read record for relocation", err)
	}
	buf := make([]byte, newSize)
	copy(buf, old)

	newPos := s.backing.Len()
	header := encodeHeader(index, newSize, newPos)
	if err := s.journalWrite(index, newPos, append(header, buf...)); err != nil {
		return 0, err
	}
	if err := s.setCatalog(index, newPos); err != nil {
		return 0, err
	}
	return newPos, nil
}

// InsertAt writes data into an existing record starting at offset,
// growing (and possibly relocating) the record if the write extends
// past its current size. Returns the number of bytes written.
func (s *Storage) InsertAt(index, offset uint64, data []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.positionOf(index)
	if err != nil {
		return 0, err
	}
	header, err := s.backing.Read(pos, headerSize)
	if err != nil {
		return 0, dberr.WrapIo("cannot read record header", err)
	}
	_, size, _, err := decodeHeader(header)
	if err != nil {
		return 0, err
	}

	needed := offset + uint64(len(data))
	if needed > size {
		isLast := pos+headerSize+size == s.backing.Len()
		if isLast {
			if offset > size {
				gap := make([]byte, offset-size)
				if err := s.journalWrite(index, pos+headerSize+size, gap); err != nil {
					return 0, err
				}
			}
			if err := s.journalWrite(index, pos, encodeHeader(index, needed, pos)); err != nil {
				return 0, err
			}
			size = needed
		} else {
			newPos, err := s.relocate(index, pos, size, needed)
			if err != nil {
				return 0, err
			}
			pos = newPos
			size = needed
		}
	}

	if err := s.journalWrite(index, pos+headerSize+offset, data); err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}

// MoveAt performs an intra-record move of `size` bytes from fromOff to
// toOff, growing the record (zero-filling any gap) if toOff plus size
// extends past the current end. The source range is not extended: if
// fromOff plus size extends past the current end, MoveAt returns an
// OutOfRange error and moves nothing.
func (s *Storage) MoveAt(index, fromOff, toOff, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.positionOf(index)
	if err != nil {
		return err
	}
	header, err := s.backing.Read(pos, headerSize)
	if err != nil {
		return dberr.WrapIo("cannot read record header", err)
	}
	_, curSize, _, err := decodeHeader(header)
	if err != nil {
		return err
	}
	if fromOff+size > curSize {
		return dberr.NewOutOfRange("move_at source out of range")
	}

	data, err := s.backing.Read(pos+headerSize+fromOff, size)
	if err != nil {
		return dberr.WrapIo("cannot read move_at source", err)
	}

	needed := toOff + size
	if needed > curSize {
		isLast := pos+headerSize+curSize == s.backing.Len()
		if isLast {
			if toOff > curSize {
				gap := make([]byte, toOff-curSize)
				if err := s.journalWrite(index, pos+headerSize+curSize, gap); err != nil {
					return err
				}
			}
			if err := s.journalWrite(index, pos, encodeHeader(index, needed, pos)); err != nil {
				return err
			}
		} else {
			newPos, err := s.relocate(index, pos, curSize, needed)
			if err != nil {
				return err
			}
			pos = newPos
		}
	}

	return s.journalWrite(index, pos+headerSize+toOff, data)
}

// ResizeValue changes a record's payload size, relocating it to the
// tail of the file if it is not already the last record and must grow.
func (s *Storage) ResizeValue(index, newSize uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.positionOf(index)
	if err != nil {
		return err
	}
	header, err := s.backing.Read(pos, headerSize)
	if err != nil {
		return dberr.WrapIo("cannot read record header", err)
	}
	_, size, _, err := decodeHeader(header)
	if err != nil {
		return err
	}
	if newSize == size {
		return nil
	}

	if newSize < size {
		return s.journalWrite(index, pos, encodeHeader(index, newSize, pos))
	}

	isLast := pos+headerSize+size == s.backing.Len()
	if isLast {
		gap := make([]byte, newSize-size)
		if err := s.journalWrite(index, pos+headerSize+size, gap); err != nil {
			return err
		}
		return s.journalWrite(index, pos, encodeHeader(index, newSize, pos))
	}

	_, err = s.relocate(index, pos, size, newSize)
	return err
}

// Remove links a record's catalog slot into the free list. The caller
// is responsible for removing any sub-records referenced by its payload.
func (s *Storage) Remove(index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.positionOf(index); err != nil {
		return err
	}
	s.catalog[index] = freeBit | s.freeListHead
	if err := s.writeCatalogEntry(index); err != nil {
		return err
	}
	s.freeListHead = index
	return s.writeMeta()
}

// Len returns the primary file's current length in bytes.
func (s *Storage) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backing.Len()
}

// Transaction begins a (possibly nested) transaction and returns its id.
func (s *Storage) Transaction() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txNext++
	id := s.txNext
	s.txStack = append(s.txStack, id)
	return id
}

// Commit closes the transaction identified by id. Nested transactions
// must be committed in LIFO order; only the outermost commit flushes
// and truncates the write-ahead log.
func (s *Storage) Commit(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.txStack) == 0 {
		return dberr.NewTransactionMismatch(0, id)
	}
	if top := s.txStack[len(s.txStack)-1]; top != id {
		return dberr.NewTransactionMismatch(top, id)
	}
	s.txStack = s.txStack[:len(s.txStack)-1]
	if len(s.txStack) > 0 {
		return nil
	}

	if err := s.wal.Flush(); err != nil {
		return err
	}
	if err := s.backing.Flush(); err != nil {
		return err
	}
	return s.wal.Clear()
}

// ShrinkToFit compacts the primary file by sliding records together in
// ascending position order and truncating the trailing slack. It is a
// no-op while a transaction is open.
func (s *Storage) ShrinkToFit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.txStack) > 0 {
		return nil
	}

	type liveRecord struct {
		index, size, oldPos uint64
	}
	var live []liveRecord
	for idx := uint64(1); idx < s.nextIndex; idx++ {
		pos := s.catalog[idx]
		if pos == 0 || pos&freeBit != 0 {
			continue
		}
		header, err := s.backing.Read(pos, headerSize)
		if err != nil {
			return dberr.WrapIo("cannot read record header during shrink_to_fit", err)
		}
		_, size, _, err := decodeHeader(header)
		if err != nil {
			return err
		}
		live = append(live, liveRecord{idx, size, pos})
	}
	sort.Slice(live, func(i, j int) bool { return live[i].oldPos < live[j].oldPos })

	// The catalog is not a record: compaction steps over its current
	// region wherever it sits and never truncates it.
	catalogEnd := s.catalogPos + s.catalogCap*serialize.SizeU64
	cursor := uint64(fileMetaSize)
	for _, rec := range live {
		if cursor < catalogEnd && cursor+headerSize+rec.size > s.catalogPos {
			cursor = catalogEnd
		}
		if rec.oldPos == cursor {
			cursor += headerSize + rec.size
			continue
		}
		payload, err := s.backing.Read(rec.oldPos+headerSize, rec.size)
		if err != nil {
			return dberr.WrapIo("cannot read record during shrink_to_fit", err)
		}
		header := encodeHeader(rec.index, rec.size, cursor)
		if err := s.backing.Write(cursor, append(header, payload...)); err != nil {
			return err
		}
		s.catalog[rec.index] = cursor
		if err := s.writeCatalogEntryNoJournal(rec.index); err != nil {
			return err
		}
		cursor += headerSize + rec.size
	}
	if cursor < catalogEnd {
		cursor = catalogEnd
	}

	if err := s.backing.Resize(cursor); err != nil {
		return err
	}
	return s.backing.Flush()
}

// writeCatalogEntryNoJournal is used by shrink_to_fit, which only ever
// runs between transactions (WAL is already empty), so there is nothing
// to journal against.
func (s *Storage) writeCatalogEntryNoJournal(index uint64) error {
	pos := s.catalogPos + (index-1)*serialize.SizeU64
	return s.backing.Write(pos, serialize.PutU64(nil, s.catalog[index]))
}

// Backup copies the flushed primary file to name.
func (s *Storage) Backup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backing.Flush(); err != nil {
		return err
	}
	return s.backing.Backup(name)
}

// Close releases the underlying file handles without altering content.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.wal.Close(); err != nil {
		return err
	}
	return s.backing.Close()
}

// RecordCount returns the number of record indices ever allocated,
// including ones now on the free list (catalog slots 1..nextIndex-1).
func (s *Storage) RecordCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIndex - 1
}

// FreeRecordCount returns the number of record indices currently on the
// free list, available for reuse by the next Insert.
func (s *Storage) FreeRecordCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := uint64(0)
	for idx := s.freeListHead; idx != 0; count++ {
		idx = s.catalog[idx] &^ freeBit
	}
	return count
}

// WalEntryCount returns the number of before-image entries currently
// held in the write-ahead log.
func (s *Storage) WalEntryCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.wal.Records()))
}
