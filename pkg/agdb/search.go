package agdb

import (
	"container/heap"

	"github.com/agnesoft/agdb-go/pkg/graph"
)

// Algorithm selects how SearchFrom/SearchTo walk the graph, mirroring
// the original's SearchQueryAlgorithm::BreadthFirst/DepthFirst (the
// Index/Elements variants belong to the excluded query layer).
type Algorithm int

const (
	// BreadthFirst examines every element at the current distance
	// before moving to the next: starting at a node it visits all of
	// its edges, then the nodes they lead to, then their edges, and
	// so on.
	BreadthFirst Algorithm = iota
	// DepthFirst follows one branch (edge -> node -> edge -> node) as
	// far as it can before backtracking.
	DepthFirst
)

type controlAction int

const (
	actionContinue controlAction = iota
	actionStop
	actionFinish
)

// SearchControl is a handler's verdict on one visited element: whether
// to include it in the result, and whether the traversal should keep
// expanding past it, stop expanding from it (but continue elsewhere),
// or finish the whole search immediately.
type SearchControl struct {
	action  controlAction
	include bool
}

// Continue includes or excludes the current element and expands its
// neighbors.
func Continue(include bool) SearchControl { return SearchControl{actionContinue, include} }

// Stop includes or excludes the current element but does not expand
// its neighbors; the search continues elsewhere.
func Stop(include bool) SearchControl { return SearchControl{actionStop, include} }

// Finish includes or excludes the current element and ends the whole
// search immediately.
func Finish(include bool) SearchControl { return SearchControl{actionFinish, include} }

// Include reports whether the handler asked for the element to be
// part of the result.
func (c SearchControl) Include() bool { return c.include }

// SearchHandler decides, for every graph element a traversal visits,
// whether to include it and whether to keep expanding from it. distance
// counts hops from the search origin, alternating edges and nodes (an
// edge one hop after its source node, the target node one hop after
// the edge), matching how the graph addresses both as elements.
type SearchHandler interface {
	Process(index graph.Index, distance uint64) (SearchControl, error)
}

// LimitHandler wraps inner, finishing the search once limit elements
// have been included.
type LimitHandler struct {
	limit, counter uint64
	inner          SearchHandler
}

// NewLimitHandler builds a LimitHandler delegating to inner and
// stopping once limit matching elements have been seen.
func NewLimitHandler(limit uint64, inner SearchHandler) *LimitHandler {
	return &LimitHandler{limit: limit, inner: inner}
}

func (h *LimitHandler) Process(index graph.Index, distance uint64) (SearchControl, error) {
	control, err := h.inner.Process(index, distance)
	if err != nil {
		return SearchControl{}, err
	}
	if control.include {
		h.counter++
	}
	if h.counter == h.limit {
		return Finish(control.include), nil
	}
	return control, nil
}

// OffsetHandler wraps inner, excluding the first offset elements that
// would otherwise have been included.
type OffsetHandler struct {
	offset, counter uint64
	inner           SearchHandler
}

// NewOffsetHandler builds an OffsetHandler delegating to inner and
// skipping the first offset matches.
func NewOffsetHandler(offset uint64, inner SearchHandler) *OffsetHandler {
	return &OffsetHandler{offset: offset, inner: inner}
}

func (h *OffsetHandler) Process(index graph.Index, distance uint64) (SearchControl, error) {
	control, err := h.inner.Process(index, distance)
	if err != nil {
		return SearchControl{}, err
	}
	if control.include {
		h.counter++
		control.include = h.offset < h.counter
	}
	return control, nil
}

// LimitOffsetHandler composes OffsetHandler and LimitHandler: skip the
// first offset matches, then include up to limit more.
type LimitOffsetHandler struct {
	limit, offset, counter uint64
	inner                  SearchHandler
}

// NewLimitOffsetHandler builds a LimitOffsetHandler delegating to inner.
func NewLimitOffsetHandler(limit, offset uint64, inner SearchHandler) *LimitOffsetHandler {
	return &LimitOffsetHandler{limit: limit + offset, offset: offset, inner: inner}
}

func (h *LimitOffsetHandler) Process(index graph.Index, distance uint64) (SearchControl, error) {
	control, err := h.inner.Process(index, distance)
	if err != nil {
		return SearchControl{}, err
	}
	if control.include {
		h.counter++
		control.include = h.offset < h.counter
	}
	if h.counter == h.limit {
		return Finish(control.include), nil
	}
	return control, nil
}

func forwardNeighbors(g *graph.Graph, index graph.Index) ([]graph.Index, error) {
	if index.IsNode() {
		node, err := g.Node(index)
		if err != nil {
			return nil, err
		}
		var out []graph.Index
		if err := node.EdgeIterFrom(func(e graph.Edge) bool {
			out = append(out, e.Index())
			return true
		}); err != nil {
			return nil, err
		}
		return out, nil
	}
	edge, err := g.Edge(index)
	if err != nil {
		return nil, err
	}
	to, err := edge.To()
	if err != nil {
		return nil, err
	}
	return []graph.Index{to}, nil
}

func reverseNeighbors(g *graph.Graph, index graph.Index) ([]graph.Index, error) {
	if index.IsNode() {
		node, err := g.Node(index)
		if err != nil {
			return nil, err
		}
		var out []graph.Index
		if err := node.EdgeIterTo(func(e graph.Edge) bool {
			out = append(out, e.Index())
			return true
		}); err != nil {
			return nil, err
		}
		return out, nil
	}
	edge, err := g.Edge(index)
	if err != nil {
		return nil, err
	}
	from, err := edge.From()
	if err != nil {
		return nil, err
	}
	return []graph.Index{from}, nil
}

type queuedIndex struct {
	index    graph.Index
	distance uint64
}

func traverse(g *graph.Graph, start graph.Index, handler SearchHandler, neighbors func(*graph.Graph, graph.Index) ([]graph.Index, error), depthFirst bool) ([]graph.Index, error) {
	var result []graph.Index
	visited := map[graph.Index]bool{start: true}

	control, err := handler.Process(start, 0)
	if err != nil {
		return nil, err
	}
	if control.include {
		result = append(result, start)
	}
	if control.action != actionContinue {
		return result, nil
	}

	pending := []queuedIndex{{start, 0}}

	for len(pending) > 0 {
		var cur queuedIndex
		if depthFirst {
			cur = pending[len(pending)-1]
			pending = pending[:len(pending)-1]
		} else {
			cur = pending[0]
			pending = pending[1:]
		}

		neighborsOf, err := neighbors(g, cur.index)
		if err != nil {
			return nil, err
		}

		for _, n := range neighborsOf {
			if visited[n] {
				continue
			}
			visited[n] = true
			distance := cur.distance + 1

			control, err := handler.Process(n, distance)
			if err != nil {
				return nil, err
			}
			if control.include {
				result = append(result, n)
			}
			switch control.action {
			case actionFinish:
				return result, nil
			case actionStop:
				// don't expand past n, but keep searching other branches
			default:
				pending = append(pending, queuedIndex{n, distance})
			}
		}
	}

	return result, nil
}

// SearchFrom walks the graph forward from from (following outgoing
// edges), calling handler on every element visited and returning the
// indices it asked to include, in visitation order.
func (db *DB) SearchFrom(from int64, algorithm Algorithm, handler SearchHandler) ([]int64, error) {
	return db.search(graph.Index(from), algorithm, handler, forwardNeighbors)
}

// SearchTo walks the graph backward from to (following incoming
// edges), calling handler on every element visited and returning the
// indices it asked to include, in visitation order.
func (db *DB) SearchTo(to int64, algorithm Algorithm, handler SearchHandler) ([]int64, error) {
	return db.search(graph.Index(to), algorithm, handler, reverseNeighbors)
}

func (db *DB) search(start graph.Index, algorithm Algorithm, handler SearchHandler, neighbors func(*graph.Graph, graph.Index) ([]graph.Index, error)) ([]int64, error) {
	indexes, err := traverse(db.graph, start, handler, neighbors, algorithm == DepthFirst)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(indexes))
	for i, idx := range indexes {
		out[i] = int64(idx)
	}
	return out, nil
}

// PathHandler scores the path search: for the element at index reached
// after distance cumulative cost, it returns the additional cost of
// stepping onto it and whether it belongs in the returned path. A cost
// of zero is added like any other cost; it does not stop the search
// from extending past this element.
type PathHandler interface {
	Process(index graph.Index, distance uint64) (cost uint64, include bool, err error)
}

type pathQueueItem struct {
	index graph.Index
	cost  uint64
}

type pathQueue []pathQueueItem

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x any)         { *q = append(*q, x.(pathQueueItem)) }
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// SearchFromTo finds the lowest-cost path from from to to (a
// Dijkstra walk over the costs handler.Process assigns each element)
// and returns the path's elements in order, or a nil slice if to is
// unreachable from from.
func (db *DB) SearchFromTo(from, to int64, handler PathHandler) ([]int64, error) {
	start := graph.Index(from)
	target := graph.Index(to)

	_, startInclude, err := handler.Process(start, 0)
	if err != nil {
		return nil, err
	}

	dist := map[graph.Index]uint64{start: 0}
	prev := map[graph.Index]graph.Index{}
	include := map[graph.Index]bool{start: startInclude}
	visited := map[graph.Index]bool{}

	pq := &pathQueue{{index: start, cost: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pathQueueItem)
		if visited[cur.index] {
			continue
		}
		visited[cur.index] = true

		if cur.index == target {
			return reconstructPath(prev, include, start, target), nil
		}

		neighbors, err := forwardNeighbors(db.graph, cur.index)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			stepCost, inc, err := handler.Process(n, dist[cur.index])
			if err != nil {
				return nil, err
			}
			candidate := dist[cur.index] + stepCost
			if existing, ok := dist[n]; !ok || candidate < existing {
				dist[n] = candidate
				prev[n] = cur.index
				include[n] = inc
				heap.Push(pq, pathQueueItem{index: n, cost: candidate})
			}
		}
	}

	return nil, nil
}

// reconstructPath walks prev from target back to start, keeping only
// the elements handler marked for inclusion, and returns them in
// start-to-target order.
func reconstructPath(prev map[graph.Index]graph.Index, include map[graph.Index]bool, start, target graph.Index) []int64 {
	var path []graph.Index
	cur := target
	for {
		if include[cur] {
			path = append(path, cur)
		}
		if cur == start {
			break
		}
		p, ok := prev[cur]
		if !ok {
			break
		}
		cur = p
	}
	out := make([]int64, len(path))
	for i, idx := range path {
		out[len(path)-1-i] = int64(idx)
	}
	return out
}
