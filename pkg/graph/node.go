package graph

// Node is a live node within a Graph.
type Node struct {
	graph *Graph
	index Index
}

// Index returns the node's graph index.
func (n Node) Index() Index { return n.index }

// EdgeCountFrom returns the number of edges originating at this node.
func (n Node) EdgeCountFrom() (int64, error) { return n.graph.edgeCountFrom(n.index) }

// EdgeCountTo returns the number of edges terminating at this node.
func (n Node) EdgeCountTo() (int64, error) { return n.graph.edgeCountTo(n.index) }

// EdgeCount returns the total number of edges attached to this node in
// either direction.
func (n Node) EdgeCount() (int64, error) {
	from, err := n.EdgeCountFrom()
	if err != nil {
		return 0, err
	}
	to, err := n.EdgeCountTo()
	if err != nil {
		return 0, err
	}
	return from + to, nil
}

// EdgeIterFrom visits every edge originating at this node,
// most-recently-inserted first, stopping early if fn returns false.
func (n Node) EdgeIterFrom(fn func(Edge) bool) error {
	edge, err := n.graph.firstEdgeFrom(n.index)
	if err != nil {
		return err
	}
	for edge.IsValid() {
		if !fn(Edge{graph: n.graph, index: edge}) {
			return nil
		}
		edge, err = n.graph.nextEdgeFrom(edge)
		if err != nil {
			return err
		}
	}
	return nil
}

// EdgeIterTo visits every edge terminating at this node,
// most-recently-inserted first, stopping early if fn returns false.
func (n Node) EdgeIterTo(fn func(Edge) bool) error {
	edge, err := n.graph.firstEdgeTo(n.index)
	if err != nil {
		return err
	}
	for edge.IsValid() {
		if !fn(Edge{graph: n.graph, index: edge}) {
			return nil
		}
		edge, err = n.graph.nextEdgeTo(edge)
		if err != nil {
			return err
		}
	}
	return nil
}
