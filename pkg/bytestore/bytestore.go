/*
Package bytestore implements the byte backing contract (spec §4.1): a raw,
contiguous, resizable address space that the WAL and blob storage layer
read and write by absolute position. Two implementations satisfy the same
Backing interface:

	File   - every Read/Write goes straight to the *os.File; O(1) memory.
	Mirror - the file's bytes are fully buffered in memory at Open time;
	         reads are served from the buffer, writes go to both the
	         buffer and the file.

Both are grounded on the teacher's "single owner of bytes" pattern
(warren's BoltStore owns one *bolt.DB per process) generalized to a raw
byte range instead of a B-tree, and on the two storage backends the
original agdb implementation ships (a buffered "memory mapped" variant and
a plain file variant) referenced in DESIGN.md.
*/
package bytestore

// Backing is the raw, contiguous, resizable address space a database file
// presents to the WAL and blob storage layers above it.
type Backing interface {
	// Read returns a copy of length bytes starting at pos. Reading beyond
	// the current length is an error.
	Read(pos, length uint64) ([]byte, error)
	// Write overwrites data at pos, growing the backing if pos+len(data)
	// exceeds the current length. Any gap between the old length and pos
	// is zero-filled.
	Write(pos uint64, data []byte) error
	// Resize grows or shrinks the backing to exactly length bytes. Growing
	// zero-fills the new tail; shrinking discards the truncated tail.
	Resize(length uint64) error
	// Flush durably persists all writes issued so far.
	Flush() error
	// Rename moves the backing to a new name, preserving content.
	Rename(name string) error
	// Backup copies the backing's current content, unflushed writes
	// included, to name. The destination has no WAL of its own.
	Backup(name string) error
	// Len reports the current length of the backing.
	Len() uint64
	// Name reports the current path of the backing.
	Name() string
	// Close releases any OS resources (file descriptors). It does not
	// flush; callers must Flush before Close if durability is required.
	Close() error
}
