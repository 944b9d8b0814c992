/*
Package graph implements the directed multigraph spec §4.8: nodes and
edges share one signed index space (positive for a node, negative for
an edge, zero invalid) addressing four parallel storage-backed
container.Vector[int64] columns — from, to, from_meta, to_meta.

Each column slot is reinterpreted depending on whether the owning index
is a node or an edge, exactly as the original implementation overloads
it: a node's from/to slot holds the negated head of its outgoing/
incoming edge list (or 0 if empty) and its from_meta/to_meta slot holds
that list's length; an edge's from/to slot holds the negated index of
its source/target node and its from_meta/to_meta slot holds the next
edge in that node's list (a singly linked, head-inserted list — removal
unlinks by walking from the head, and new edges become the new head, so
iteration order is most-recently-inserted-first).

Removed slots are threaded onto a LIFO free list through from_meta[0]:
it holds the negated most recently freed slot, each freed slot's
from_meta holds the next link, and math.MinInt64 (the initial value)
ends the list, both before any slot was freed and once every freed slot
has been reused. A removed slot's from_meta is therefore always
negative. Index 0 itself is reserved and never freed; it also stores
the node count in to_meta[0]. InsertNode/InsertEdge pop the
free list before growing all four columns by one slot.
*/
package graph
