/*
Package agdb is the database facade of spec §4.10: it owns one
pkg/storage.Storage, one pkg/graph.Graph, an alias index (a string<->id
bidirectional map) and a value multi-map, and composes them into atomic,
undo-logged operations — insert_node, insert_edge, insert_alias,
insert_key_value, remove, search_from, and the rest of spec §6's public
surface.

Storage index 1 (storage.RootIndex) holds a fixed descriptor record
pointing at the storage indices of those four components. On first open
(an empty record 1) the descriptor and its components are created; on a
later open the descriptor is read back and the components reattached;
if record 1 cannot be decoded and the file is not empty, Open reports
DataIntegrity. See SPEC_FULL.md's "Facade descriptor layout" for why
this port's descriptor holds 13 u64 values rather than the original's
four.

Every mutating operation pushes the inverse of what it did onto an
in-memory undo stack. TransactionMut clears the stack, runs a closure,
and on error replays the stack in reverse before returning; on success
it simply clears it (the per-call storage transactions already
committed). This is the "compose primitives into atomic operations"
front-end named in the OVERVIEW's module table.
*/
package agdb
