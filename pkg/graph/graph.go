package graph

import (
	"math"

	"github.com/agnesoft/agdb-go/pkg/container"
	"github.com/agnesoft/agdb-go/pkg/dberr"
	"github.com/agnesoft/agdb-go/pkg/serialize"
	"github.com/agnesoft/agdb-go/pkg/storage"
)

// Index addresses a node (positive), an edge (negative) or neither
// (zero) within a Graph.
type Index int64

// IsEdge reports whether the index addresses an edge.
func (i Index) IsEdge() bool { return i < 0 }

// IsNode reports whether the index addresses a node.
func (i Index) IsNode() bool { return i > 0 }

// IsValid reports whether the index addresses anything at all.
func (i Index) IsValid() bool { return i != 0 }

// AsU64 returns the absolute value of the index, the slot it
// addresses in the four backing columns.
func (i Index) AsU64() uint64 {
	if i < 0 {
		return uint64(-i)
	}
	return uint64(i)
}

// Graph is a directed multigraph over four parallel storage-backed
// int64 vectors, addressed by a single signed Index space.
type Graph struct {
	storage  *storage.Storage
	from     *container.Vector[int64]
	to       *container.Vector[int64]
	fromMeta *container.Vector[int64]
	toMeta   *container.Vector[int64]
	index    uint64
}

// New creates an empty graph with its own descriptor record.
func New(s *storage.Storage) (*Graph, error) {
	tx := s.Transaction()

	from, err := container.NewVector[int64](s, container.I64Codec)
	if err != nil {
		return nil, err
	}
	if err := from.Push(0); err != nil {
		return nil, err
	}
	to, err := container.NewVector[int64](s, container.I64Codec)
	if err != nil {
		return nil, err
	}
	if err := to.Push(0); err != nil {
		return nil, err
	}
	fromMeta, err := container.NewVector[int64](s, container.I64Codec)
	if err != nil {
		return nil, err
	}
	if err := fromMeta.Push(math.MinInt64); err != nil {
		return nil, err
	}
	toMeta, err := container.NewVector[int64](s, container.I64Codec)
	if err != nil {
		return nil, err
	}
	if err := toMeta.Push(0); err != nil {
		return nil, err
	}

	descriptor := serialize.PutU64(nil, from.Index())
	descriptor = serialize.PutU64(descriptor, to.Index())
	descriptor = serialize.PutU64(descriptor, fromMeta.Index())
	descriptor = serialize.PutU64(descriptor, toMeta.Index())
	index, err := s.Insert(descriptor)
	if err != nil {
		return nil, err
	}

	if err := s.Commit(tx); err != nil {
		return nil, err
	}

	return &Graph{storage: s, from: from, to: to, fromMeta: fromMeta, toMeta: toMeta, index: index}, nil
}

// Open reopens a graph from a descriptor record previously created by
// New.
func Open(s *storage.Storage, descriptorIndex uint64) (*Graph, error) {
	raw, err := s.Value(descriptorIndex)
	if err != nil {
		return nil, err
	}
	fromIdx, err := serialize.U64(raw[0:8])
	if err != nil {
		return nil, err
	}
	toIdx, err := serialize.U64(raw[8:16])
	if err != nil {
		return nil, err
	}
	fromMetaIdx, err := serialize.U64(raw[16:24])
	if err != nil {
		return nil, err
	}
	toMetaIdx, err := serialize.U64(raw[24:32])
	if err != nil {
		return nil, err
	}

	from, err := container.OpenVector[int64](s, fromIdx, container.I64Codec)
	if err != nil {
		return nil, err
	}
	to, err := container.OpenVector[int64](s, toIdx, container.I64Codec)
	if err != nil {
		return nil, err
	}
	fromMeta, err := container.OpenVector[int64](s, fromMetaIdx, container.I64Codec)
	if err != nil {
		return nil, err
	}
	toMeta, err := container.OpenVector[int64](s, toMetaIdx, container.I64Codec)
	if err != nil {
		return nil, err
	}

	return &Graph{storage: s, from: from, to: to, fromMeta: fromMeta, toMeta: toMeta, index: descriptorIndex}, nil
}

// Index returns the storage index of this graph's descriptor record.
func (g *Graph) Index() uint64 { return g.index }

func (g *Graph) capacity() uint64 { return g.from.Len() }

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() (uint64, error) {
	n, err := g.toMeta.Value(0)
	return uint64(n), err
}

func (g *Graph) setNodeCount(n uint64) error { return g.toMeta.SetValue(0, int64(n)) }

// EdgeCount returns the total number of live edges, the sum of every
// live node's outgoing edge count (each edge contributes to exactly
// one node's out-list).
func (g *Graph) EdgeCount() (uint64, error) {
	var total uint64
	var iterErr error
	if err := g.NodeIter(func(n Node) bool {
		c, err := n.EdgeCountFrom()
		if err != nil {
			iterErr = err
			return false
		}
		total += uint64(c)
		return true
	}); err != nil {
		return 0, err
	}
	return total, iterErr
}

// InsertNode creates a new node, reusing a removed node's slot if one
// is free.
func (g *Graph) InsertNode() (Index, error) {
	tx := g.storage.Transaction()

	raw, err := g.getFreeIndex()
	if err != nil {
		return 0, err
	}
	index := Index(raw)

	count, err := g.NodeCount()
	if err != nil {
		return 0, err
	}
	if err := g.setNodeCount(count + 1); err != nil {
		return 0, err
	}

	if err := g.storage.Commit(tx); err != nil {
		return 0, err
	}
	return index, nil
}

// InsertEdge creates a new directed edge from `from` to `to`, reusing
// a removed edge's slot if one is free. Both endpoints must already be
// live nodes.
func (g *Graph) InsertEdge(from, to Index) (Index, error) {
	if err := g.validateNode(from); err != nil {
		return 0, err
	}
	if err := g.validateNode(to); err != nil {
		return 0, err
	}

	tx := g.storage.Transaction()

	raw, err := g.getFreeIndex()
	if err != nil {
		return 0, err
	}
	index := Index(-raw)

	if err := g.setEdge(index, from, to); err != nil {
		return 0, err
	}
	if err := g.storage.Commit(tx); err != nil {
		return 0, err
	}
	return index, nil
}

// RemoveNode removes index and every edge attached to it, a no-op if
// index does not address a live node.
func (g *Graph) RemoveNode(index Index) error {
	if err := g.validateNode(index); err != nil {
		return nil
	}

	tx := g.storage.Transaction()

	if err := g.removeFromEdges(index); err != nil {
		return err
	}
	if err := g.removeToEdges(index); err != nil {
		return err
	}
	if err := g.freeIndex(index); err != nil {
		return err
	}

	count, err := g.NodeCount()
	if err != nil {
		return err
	}
	if err := g.setNodeCount(count - 1); err != nil {
		return err
	}

	return g.storage.Commit(tx)
}

// RemoveEdge removes index, a no-op if it does not address a live
// edge.
func (g *Graph) RemoveEdge(index Index) error {
	if err := g.validateEdge(index); err != nil {
		return nil
	}

	tx := g.storage.Transaction()

	if err := g.removeFromEdge(index); err != nil {
		return err
	}
	if err := g.removeToEdge(index); err != nil {
		return err
	}
	if err := g.freeIndex(Index(-int64(index))); err != nil {
		return err
	}

	return g.storage.Commit(tx)
}

// Node returns the node addressed by index, or an error if index does
// not address a live node.
func (g *Graph) Node(index Index) (Node, error) {
	if err := g.validateNode(index); err != nil {
		return Node{}, err
	}
	return Node{graph: g, index: index}, nil
}

// Edge returns the edge addressed by index, or an error if index does
// not address a live edge.
func (g *Graph) Edge(index Index) (Edge, error) {
	if err := g.validateEdge(index); err != nil {
		return Edge{}, err
	}
	return Edge{graph: g, index: index}, nil
}

// NodeIter visits every live node in ascending index order, stopping
// early if fn returns false.
func (g *Graph) NodeIter(fn func(Node) bool) error {
	capacity := g.capacity()
	for i := uint64(1); i < capacity; i++ {
		index := Index(i)
		valid, err := g.isValidNode(index)
		if err != nil {
			return err
		}
		if !valid {
			continue
		}
		removed, err := g.isRemovedIndex(index)
		if err != nil {
			return err
		}
		if removed {
			continue
		}
		if !fn(Node{graph: g, index: index}) {
			return nil
		}
	}
	return nil
}

func (g *Graph) invalidIndex(index Index) error { return dberr.NewInvalidGraphIndex(int64(index)) }

func (g *Graph) isRemovedIndex(index Index) (bool, error) {
	v, err := g.fromMeta.Value(index.AsU64())
	return v < 0, err
}

func (g *Graph) isValidIndex(index Index) (bool, error) {
	if !index.IsValid() || index.AsU64() >= g.capacity() {
		return false, nil
	}
	return func() (bool, error) {
		removed, err := g.isRemovedIndex(index)
		return !removed, err
	}()
}

func (g *Graph) isValidEdge(index Index) (bool, error) {
	valid, err := g.isValidIndex(index)
	if err != nil || !valid {
		return false, err
	}
	v, err := g.from.Value(index.AsU64())
	return v < 0, err
}

func (g *Graph) isValidNode(index Index) (bool, error) {
	valid, err := g.isValidIndex(index)
	if err != nil || !valid {
		return false, err
	}
	v, err := g.from.Value(index.AsU64())
	return v >= 0, err
}

func (g *Graph) validateNode(index Index) error {
	valid, err := g.isValidNode(index)
	if err != nil {
		return err
	}
	if !valid {
		return g.invalidIndex(index)
	}
	return nil
}

func (g *Graph) validateEdge(index Index) error {
	valid, err := g.isValidEdge(index)
	if err != nil {
		return err
	}
	if !valid {
		return g.invalidIndex(index)
	}
	return nil
}

func (g *Graph) firstEdgeFrom(index Index) (Index, error) {
	v, err := g.from.Value(index.AsU64())
	return Index(-v), err
}

func (g *Graph) firstEdgeTo(index Index) (Index, error) {
	v, err := g.to.Value(index.AsU64())
	return Index(-v), err
}

func (g *Graph) nextEdgeFrom(index Index) (Index, error) {
	v, err := g.fromMeta.Value(index.AsU64())
	return Index(-v), err
}

func (g *Graph) nextEdgeTo(index Index) (Index, error) {
	v, err := g.toMeta.Value(index.AsU64())
	return Index(-v), err
}

func (g *Graph) edgeCountFrom(index Index) (int64, error) { return g.fromMeta.Value(index.AsU64()) }
func (g *Graph) edgeCountTo(index Index) (int64, error)   { return g.toMeta.Value(index.AsU64()) }

func (g *Graph) edgeFrom(index Index) (Index, error) {
	v, err := g.from.Value(index.AsU64())
	return Index(-v), err
}

func (g *Graph) edgeTo(index Index) (Index, error) {
	v, err := g.to.Value(index.AsU64())
	return Index(-v), err
}

func (g *Graph) freeIndex(index Index) error {
	nextFree, err := g.fromMeta.Value(0)
	if err != nil {
		return err
	}
	if err := g.fromMeta.SetValue(index.AsU64(), nextFree); err != nil {
		return err
	}
	if err := g.fromMeta.SetValue(0, -int64(index)); err != nil {
		return err
	}
	if err := g.from.SetValue(index.AsU64(), 0); err != nil {
		return err
	}
	if err := g.to.SetValue(index.AsU64(), 0); err != nil {
		return err
	}
	return g.toMeta.SetValue(index.AsU64(), 0)
}

func (g *Graph) getFreeIndex() (int64, error) {
	head, err := g.fromMeta.Value(0)
	if err != nil {
		return 0, err
	}

	if head == math.MinInt64 {
		newIndex := int64(g.capacity())
		if err := g.grow(); err != nil {
			return 0, err
		}
		return newIndex, nil
	}

	freed := Index(-head)
	next, err := g.fromMeta.Value(freed.AsU64())
	if err != nil {
		return 0, err
	}
	if err := g.fromMeta.SetValue(0, next); err != nil {
		return 0, err
	}
	if err := g.fromMeta.SetValue(freed.AsU64(), 0); err != nil {
		return 0, err
	}
	return -head, nil
}

func (g *Graph) grow() error {
	if err := g.from.Push(0); err != nil {
		return err
	}
	if err := g.to.Push(0); err != nil {
		return err
	}
	if err := g.fromMeta.Push(0); err != nil {
		return err
	}
	return g.toMeta.Push(0)
}

func (g *Graph) setEdge(index, from, to Index) error {
	if err := g.from.SetValue(index.AsU64(), -int64(from)); err != nil {
		return err
	}
	if err := g.to.SetValue(index.AsU64(), -int64(to)); err != nil {
		return err
	}
	if err := g.updateFromEdge(from, index); err != nil {
		return err
	}
	return g.updateToEdge(to, index)
}

func (g *Graph) updateFromEdge(node, edge Index) error {
	next, err := g.from.Value(node.AsU64())
	if err != nil {
		return err
	}
	if err := g.fromMeta.SetValue(edge.AsU64(), next); err != nil {
		return err
	}
	if err := g.from.SetValue(node.AsU64(), -int64(edge)); err != nil {
		return err
	}
	count, err := g.fromMeta.Value(node.AsU64())
	if err != nil {
		return err
	}
	return g.fromMeta.SetValue(node.AsU64(), count+1)
}

func (g *Graph) updateToEdge(node, edge Index) error {
	next, err := g.to.Value(node.AsU64())
	if err != nil {
		return err
	}
	if err := g.toMeta.SetValue(edge.AsU64(), next); err != nil {
		return err
	}
	if err := g.to.SetValue(node.AsU64(), -int64(edge)); err != nil {
		return err
	}
	count, err := g.toMeta.Value(node.AsU64())
	if err != nil {
		return err
	}
	return g.toMeta.SetValue(node.AsU64(), count+1)
}

func (g *Graph) removeFromEdge(index Index) error {
	fromVal, err := g.from.Value(index.AsU64())
	if err != nil {
		return err
	}
	nodeIndex := Index(-fromVal)

	nodeFromVal, err := g.from.Value(nodeIndex.AsU64())
	if err != nil {
		return err
	}
	firstIndex := Index(-nodeFromVal)

	next, err := g.fromMeta.Value(index.AsU64())
	if err != nil {
		return err
	}

	if firstIndex == index {
		if err := g.from.SetValue(nodeIndex.AsU64(), next); err != nil {
			return err
		}
	} else {
		previous := firstIndex
		for {
			v, err := g.fromMeta.Value(previous.AsU64())
			if err != nil {
				return err
			}
			if v == -int64(index) {
				break
			}
			previous = Index(v)
		}
		if err := g.fromMeta.SetValue(previous.AsU64(), next); err != nil {
			return err
		}
	}

	count, err := g.fromMeta.Value(nodeIndex.AsU64())
	if err != nil {
		return err
	}
	return g.fromMeta.SetValue(nodeIndex.AsU64(), count-1)
}

func (g *Graph) removeToEdge(index Index) error {
	toVal, err := g.to.Value(index.AsU64())
	if err != nil {
		return err
	}
	nodeIndex := Index(-toVal)

	nodeToVal, err := g.to.Value(nodeIndex.AsU64())
	if err != nil {
		return err
	}
	firstIndex := Index(-nodeToVal)

	next, err := g.toMeta.Value(index.AsU64())
	if err != nil {
		return err
	}

	if firstIndex == index {
		if err := g.to.SetValue(nodeIndex.AsU64(), next); err != nil {
			return err
		}
	} else {
		previous := firstIndex
		for {
			v, err := g.toMeta.Value(previous.AsU64())
			if err != nil {
				return err
			}
			if v == -int64(index) {
				break
			}
			previous = Index(v)
		}
		if err := g.toMeta.SetValue(previous.AsU64(), next); err != nil {
			return err
		}
	}

	count, err := g.toMeta.Value(nodeIndex.AsU64())
	if err != nil {
		return err
	}
	return g.toMeta.SetValue(nodeIndex.AsU64(), count-1)
}

func (g *Graph) removeFromEdges(index Index) error {
	first, err := g.from.Value(index.AsU64())
	if err != nil {
		return err
	}
	edge := Index(-first)

	for edge.IsValid() {
		if err := g.removeToEdge(edge); err != nil {
			return err
		}
		current := -int64(edge)
		next, err := g.fromMeta.Value(edge.AsU64())
		if err != nil {
			return err
		}
		edge = Index(-next)
		if err := g.freeIndex(Index(current)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) removeToEdges(index Index) error {
	first, err := g.to.Value(index.AsU64())
	if err != nil {
		return err
	}
	edge := Index(-first)

	for edge.IsValid() {
		if err := g.removeFromEdge(edge); err != nil {
			return err
		}
		current := -int64(edge)
		next, err := g.toMeta.Value(edge.AsU64())
		if err != nil {
			return err
		}
		edge = Index(-next)
		if err := g.freeIndex(Index(current)); err != nil {
			return err
		}
	}
	return nil
}
