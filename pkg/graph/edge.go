package graph

// Edge is a live directed edge within a Graph.
type Edge struct {
	graph *Graph
	index Index
}

// Index returns the edge's graph index.
func (e Edge) Index() Index { return e.index }

// From returns the edge's source node index.
func (e Edge) From() (Index, error) { return e.graph.edgeFrom(e.index) }

// To returns the edge's target node index.
func (e Edge) To() (Index, error) { return e.graph.edgeTo(e.index) }
