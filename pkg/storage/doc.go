/*
Package storage implements the blob storage engine described in spec
§4.3: a single primary file of variable-length records addressed by a
stable 64-bit index, a free list for index reuse, in-place or
relocating resize, nested counted transactions, and WAL-backed crash
recovery.

# Layout

	┌──────────────── PRIMARY FILE ─────────────────────┐
	│ [0:32)   file meta: freeListHead, nextIndex,      │
	│                     catalogCap, catalogPos        │
	│ [32:..)  catalog: one u64 file-offset per index,  │
	│          relocated to the tail and doubled when   │
	│          it outgrows its reserved region           │
	│ [..:..)  records: [index u64][size u64][pos u64]  │
	│          header followed by `size` payload bytes  │
	└────────────────────────────────────────────────────┘

The catalog is this port's stand-in for the free list "threaded
through the header position fields" described in the spec: a free
index's catalog slot holds the next free index (tagged with the top
bit) instead of a file offset, so the catalog doubles as both the
index→position map and the free list without a second on-disk
structure.

Every mutating primitive first records the bytes it is about to
overwrite to the write-ahead log (pkg/wal) before touching the primary
file, so Open can reverse-replay an interrupted transaction. Commit
orders WAL flush, then primary flush, then WAL truncate, matching
spec §4.2.

Grounded on original_source/src/agdb/old_storage/storage_file.rs's
test suite for the edge cases (insert beyond current end, move_at
overlap, resize relocating to the tail, shrink_to_fit as a no-op
inside an open transaction, nested transaction commit ordering).

ShrinkToFit compacts records in ascending position order and truncates
the trailing slack. The catalog is not itself a record and ShrinkToFit
never moves it: compaction steps over the catalog's current region
wherever it sits, and the space a previous, outgrown copy of the
catalog occupied is filled with records like any other gap, since no
catalog entry ever points into it.
*/
package storage
