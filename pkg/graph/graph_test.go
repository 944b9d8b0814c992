package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnesoft/agdb-go/pkg/storage"
)

func openTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "db.agdb"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := New(openTestStorage(t))
	require.NoError(t, err)
	return g
}

func TestEdgeFromIndex(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index, err := g.InsertEdge(from, to)
	require.NoError(t, err)

	edge, err := g.Edge(index)
	require.NoError(t, err)
	assert.Equal(t, index, edge.Index())
}

func TestEdgeFromIndexMissing(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Edge(Index(-3))
	assert.Error(t, err)
}

func TestEdgeIteration(t *testing.T) {
	g := newTestGraph(t)
	node1, err := g.InsertNode()
	require.NoError(t, err)
	node2, err := g.InsertNode()
	require.NoError(t, err)

	edge1, err := g.InsertEdge(node1, node2)
	require.NoError(t, err)
	edge2, err := g.InsertEdge(node1, node2)
	require.NoError(t, err)
	edge3, err := g.InsertEdge(node1, node2)
	require.NoError(t, err)

	node, err := g.Node(node1)
	require.NoError(t, err)

	var actual []Index
	require.NoError(t, node.EdgeIterFrom(func(e Edge) bool {
		actual = append(actual, e.Index())
		return true
	}))
	assert.Equal(t, []Index{edge3, edge2, edge1}, actual)
}

func TestInsertEdge(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)

	index, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	assert.Equal(t, Index(-3), index)

	fromNode, err := g.Node(from)
	require.NoError(t, err)
	count, err := fromNode.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	countFrom, err := fromNode.EdgeCountFrom()
	require.NoError(t, err)
	assert.Equal(t, int64(1), countFrom)
	countTo, err := fromNode.EdgeCountTo()
	require.NoError(t, err)
	assert.Equal(t, int64(0), countTo)

	toNode, err := g.Node(to)
	require.NoError(t, err)
	count, err = toNode.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	countFrom, err = toNode.EdgeCountFrom()
	require.NoError(t, err)
	assert.Equal(t, int64(0), countFrom)
	countTo, err = toNode.EdgeCountTo()
	require.NoError(t, err)
	assert.Equal(t, int64(1), countTo)
}

func TestInsertEdgeAfterRemoved(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index, err := g.InsertEdge(from, to)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index))

	reused, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	assert.Equal(t, index, reused)
}

func TestInsertEdgeAfterSeveralRemoved(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index1, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index2, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	_, err = g.InsertEdge(from, to)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index1))
	require.NoError(t, g.RemoveEdge(index2))

	reused, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	assert.Equal(t, index2, reused)
}

func TestInsertEdgeInvalidFrom(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.InsertEdge(Index(1), Index(2))
	assert.Error(t, err)
}

func TestInsertEdgeInvalidTo(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	_, err = g.InsertEdge(from, Index(2))
	assert.Error(t, err)
}

func TestInsertNode(t *testing.T) {
	g := newTestGraph(t)
	index, err := g.InsertNode()
	require.NoError(t, err)
	assert.Equal(t, Index(1), index)
}

func TestInsertNodeAfterRemoval(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.InsertNode()
	require.NoError(t, err)
	index, err := g.InsertNode()
	require.NoError(t, err)
	_, err = g.InsertNode()
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(index))

	reused, err := g.InsertNode()
	require.NoError(t, err)
	assert.Equal(t, index, reused)
}

func TestNodeCount(t *testing.T) {
	g := newTestGraph(t)
	count, err := g.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	_, err = g.InsertNode()
	require.NoError(t, err)
	index, err := g.InsertNode()
	require.NoError(t, err)
	_, err = g.InsertNode()
	require.NoError(t, err)

	count, err = g.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	require.NoError(t, g.RemoveNode(index))

	count, err = g.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestNodeFromIndex(t *testing.T) {
	g := newTestGraph(t)
	index, err := g.InsertNode()
	require.NoError(t, err)

	node, err := g.Node(index)
	require.NoError(t, err)
	assert.Equal(t, index, node.Index())
}

func TestNodeFromIndexMissing(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.Node(Index(1))
	assert.Error(t, err)
}

func TestNodeIteration(t *testing.T) {
	g := newTestGraph(t)
	node1, err := g.InsertNode()
	require.NoError(t, err)
	node2, err := g.InsertNode()
	require.NoError(t, err)
	node3, err := g.InsertNode()
	require.NoError(t, err)

	var nodes []Index
	require.NoError(t, g.NodeIter(func(n Node) bool {
		nodes = append(nodes, n.Index())
		return true
	}))
	assert.Equal(t, []Index{node1, node2, node3}, nodes)
}

func TestNodeIterationWithRemovedNodes(t *testing.T) {
	g := newTestGraph(t)
	node1, err := g.InsertNode()
	require.NoError(t, err)
	node2, err := g.InsertNode()
	require.NoError(t, err)
	node3, err := g.InsertNode()
	require.NoError(t, err)
	node4, err := g.InsertNode()
	require.NoError(t, err)
	node5, err := g.InsertNode()
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(node2))
	require.NoError(t, g.RemoveNode(node5))

	var nodes []Index
	require.NoError(t, g.NodeIter(func(n Node) bool {
		nodes = append(nodes, n.Index())
		return true
	}))
	assert.Equal(t, []Index{node1, node3, node4}, nodes)
}

func TestRemoveEdgeCircular(t *testing.T) {
	g := newTestGraph(t)
	node, err := g.InsertNode()
	require.NoError(t, err)
	index, err := g.InsertEdge(node, node)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index))

	_, err = g.Edge(index)
	assert.Error(t, err)
}

func TestRemoveEdgeFirst(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index1, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index2, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index3, err := g.InsertEdge(from, to)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index3))

	_, err = g.Edge(index1)
	assert.NoError(t, err)
	_, err = g.Edge(index2)
	assert.NoError(t, err)
	_, err = g.Edge(index3)
	assert.Error(t, err)
}

func TestRemoveEdgeLast(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index1, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index2, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index3, err := g.InsertEdge(from, to)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index1))

	_, err = g.Edge(index1)
	assert.Error(t, err)
	_, err = g.Edge(index2)
	assert.NoError(t, err)
	_, err = g.Edge(index3)
	assert.NoError(t, err)
}

func TestRemoveEdgeMiddle(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index1, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index2, err := g.InsertEdge(from, to)
	require.NoError(t, err)
	index3, err := g.InsertEdge(from, to)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index2))

	_, err = g.Edge(index1)
	assert.NoError(t, err)
	_, err = g.Edge(index2)
	assert.Error(t, err)
	_, err = g.Edge(index3)
	assert.NoError(t, err)

	fromNode, err := g.Node(from)
	require.NoError(t, err)
	count, err := fromNode.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRemoveEdgeMissing(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.RemoveEdge(Index(-3)))
}

func TestRemoveEdgeOnly(t *testing.T) {
	g := newTestGraph(t)
	from, err := g.InsertNode()
	require.NoError(t, err)
	to, err := g.InsertNode()
	require.NoError(t, err)
	index, err := g.InsertEdge(from, to)
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(index))

	_, err = g.Edge(index)
	assert.Error(t, err)
}

func TestRemoveNodeCircularEdge(t *testing.T) {
	g := newTestGraph(t)
	index, err := g.InsertNode()
	require.NoError(t, err)
	edge, err := g.InsertEdge(index, index)
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(index))

	_, err = g.Node(index)
	assert.Error(t, err)
	_, err = g.Edge(edge)
	assert.Error(t, err)
}

func TestSelfLoopCountsTwiceOnItsOwnNode(t *testing.T) {
	g := newTestGraph(t)
	n, err := g.InsertNode()
	require.NoError(t, err)
	_, err = g.InsertEdge(n, n)
	require.NoError(t, err)

	node, err := g.Node(n)
	require.NoError(t, err)
	count, err := node.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count) // once in from_meta, once in to_meta
}

func TestRemoveNodeSelfLoopUnlinksCleanly(t *testing.T) {
	g := newTestGraph(t)
	n1, err := g.InsertNode()
	require.NoError(t, err)
	n2, err := g.InsertNode()
	require.NoError(t, err)
	n3, err := g.InsertNode()
	require.NoError(t, err)

	unrelated, err := g.InsertEdge(n2, n3)
	require.NoError(t, err)
	selfLoop, err := g.InsertEdge(n1, n1)
	require.NoError(t, err)
	outgoing, err := g.InsertEdge(n1, n2)
	require.NoError(t, err)

	count, err := g.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, g.RemoveNode(n1))

	_, err = g.Node(n1)
	assert.Error(t, err)
	_, err = g.Edge(selfLoop)
	assert.Error(t, err)
	_, err = g.Edge(outgoing)
	assert.Error(t, err)

	// n1's self-loop sat in both its own from-list and to-list; removing it
	// must not leave a dangling reference that corrupts n2/n3's unrelated
	// edge.
	_, err = g.Edge(unrelated)
	assert.NoError(t, err)

	edges, err := g.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), edges)

	nodes, err := g.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nodes)
}

func TestRemoveNodeOnly(t *testing.T) {
	g := newTestGraph(t)
	index, err := g.InsertNode()
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(index))

	_, err = g.Node(index)
	assert.Error(t, err)
}

func TestRemoveNodeMissing(t *testing.T) {
	g := newTestGraph(t)
	require.NoError(t, g.RemoveNode(Index(1)))
}

func TestRemoveNodesWithEdges(t *testing.T) {
	g := newTestGraph(t)
	node1, err := g.InsertNode()
	require.NoError(t, err)
	node2, err := g.InsertNode()
	require.NoError(t, err)
	node3, err := g.InsertNode()
	require.NoError(t, err)

	edge1, err := g.InsertEdge(node1, node2)
	require.NoError(t, err)
	edge2, err := g.InsertEdge(node1, node1)
	require.NoError(t, err)
	edge3, err := g.InsertEdge(node1, node3)
	require.NoError(t, err)
	edge4, err := g.InsertEdge(node2, node1)
	require.NoError(t, err)
	edge5, err := g.InsertEdge(node3, node1)
	require.NoError(t, err)
	edge6, err := g.InsertEdge(node3, node2)
	require.NoError(t, err)
	edge7, err := g.InsertEdge(node2, node3)
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(node1))

	_, err = g.Node(node1)
	assert.Error(t, err)
	_, err = g.Edge(edge1)
	assert.Error(t, err)
	_, err = g.Edge(edge2)
	assert.Error(t, err)
	_, err = g.Edge(edge3)
	assert.Error(t, err)
	_, err = g.Edge(edge4)
	assert.Error(t, err)
	_, err = g.Edge(edge5)
	assert.Error(t, err)

	_, err = g.Node(node2)
	assert.NoError(t, err)
	_, err = g.Node(node3)
	assert.NoError(t, err)
	_, err = g.Edge(edge6)
	assert.NoError(t, err)
	_, err = g.Edge(edge7)
	assert.NoError(t, err)
}

func TestRestoreFromFile(t *testing.T) {
	s := openTestStorage(t)
	g, err := New(s)
	require.NoError(t, err)
	descriptor := g.Index()

	node1, err := g.InsertNode()
	require.NoError(t, err)
	node2, err := g.InsertNode()
	require.NoError(t, err)
	node3, err := g.InsertNode()
	require.NoError(t, err)

	edge1, err := g.InsertEdge(node1, node2)
	require.NoError(t, err)
	edge2, err := g.InsertEdge(node2, node3)
	require.NoError(t, err)
	edge3, err := g.InsertEdge(node3, node1)
	require.NoError(t, err)

	reopened, err := Open(s, descriptor)
	require.NoError(t, err)

	_, err = reopened.Node(node1)
	assert.NoError(t, err)
	_, err = reopened.Node(node2)
	assert.NoError(t, err)
	_, err = reopened.Node(node3)
	assert.NoError(t, err)
	_, err = reopened.Edge(edge1)
	assert.NoError(t, err)
	_, err = reopened.Edge(edge2)
	assert.NoError(t, err)
	_, err = reopened.Edge(edge3)
	assert.NoError(t, err)
}

func TestReuseEdgeIndexForNode(t *testing.T) {
	g := newTestGraph(t)
	n1, err := g.InsertNode()
	require.NoError(t, err)
	n2, err := g.InsertNode()
	require.NoError(t, err)
	e1, err := g.InsertEdge(n1, n2)
	require.NoError(t, err)
	require.NoError(t, g.RemoveEdge(e1))
	n3, err := g.InsertNode()
	require.NoError(t, err)
	_, err = g.Node(n3)
	assert.NoError(t, err)
}
