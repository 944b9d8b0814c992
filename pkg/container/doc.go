/*
Package container implements the storage-backed collections spec §4.5-§4.7
build on top of pkg/storage: a growable Vector[T], an open-addressed
HashMap[K,V] and MultiMap[K,V], and an IndexedBidirectionalMap pairing two
HashMaps.

Vector mirrors the original implementation's StorageVec: a single storage
record holding an 8-byte length prefix followed by `capacity` fixed-size
elements, growing to max(capacity*2, 64) on overflow and shifting elements
down in-place on removal via storage.MoveAt. Types are (de)serialized
through a Codec supplied by the caller rather than a language-level trait
bound, since Go generics carry no such constraint.

HashMap and MultiMap both sit on top of a shared open-addressed probe
table (three parallel Vectors: state, key, value) using linear probing
with wraparound, grounded on the original multi_map.rs: load factor grows
at 15/16 capacity and shrinks at 7/16, minimum capacity 64, and a rehash
walks the old table in slot order relocating each valid entry to its
probed position in the new table. Keys are hashed with xxhash.Sum64 over
their encoded bytes, giving a deterministic hash the way the original's
StableHash trait requires (Go's builtin map hashing is randomized per
process and unsuitable here). Rehash tracks which new-table slots are
still empty with a roaring.Bitmap rather than a bool slice, the same
information in less memory for large tables.

IndexedBidirectionalMap composes two HashMaps (keys_to_values and
values_to_keys enforcing uniqueness via an always-replace predicate) so
that inserting a pair atomically displaces whichever pair previously held
either side of it, per original_source's indexed_map.rs.
*/
package container
