package topology

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/pkg/math"
)

// Positions resolves a vertex index to its coordinates.
type Positions interface {
	Vertex(i int) math.Vec3
}

// pathNode is a vertex on the A* frontier.
type pathNode struct {
	vertex int
	g      float64 // Cost from start
	f      float64 // g + heuristic
	seq    int     // Insertion order, breaks f ties
	parent *pathNode
	index  int // Index in heap, -1 once popped
}

// pathHeap implements a priority queue for A* pathfinding.
type pathHeap []*pathNode

func (h pathHeap) Len() int { return len(h) }
func (h pathHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h pathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pathHeap) Push(x any) {
	node := x.(*pathNode)
	node.index = len(*h)
	*h = append(*h, node)
}

func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// PathFinder finds shortest vertex paths over a mesh adjacency graph.
// Edge cost and heuristic are both the Euclidean distance between vertices.
type PathFinder struct {
	graph     *Graph
	positions Positions
}

// NewPathFinder creates a new pathfinder.
func NewPathFinder(g *Graph, positions Positions) *PathFinder {
	return &PathFinder{graph: g, positions: positions}
}

// ShortestPath returns the vertices from start to end inclusive.
// Returns [start] when start == end and an empty slice when no path exists
// or either endpoint is not a vertex of the graph.
func (pf *PathFinder) ShortestPath(start, end int) []int {
	if pf == nil || pf.graph == nil || !pf.graph.valid(start) || !pf.graph.valid(end) {
		return []int{}
	}
	if start == end {
		return []int{start}
	}

	goal := pf.positions.Vertex(end)

	openSet := &pathHeap{}
	closed := make(map[int]bool)
	nodes := make(map[int]*pathNode)
	seq := 0

	startNode := &pathNode{vertex: start, f: pf.positions.Vertex(start).Distance64(goal), seq: seq}
	heap.Push(openSet, startNode)
	nodes[start] = startNode

	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*pathNode)

		if current.vertex == end {
			return reconstructPath(current)
		}
		closed[current.vertex] = true

		here := pf.positions.Vertex(current.vertex)
		for _, nb := range pf.graph.adj[current.vertex] {
			if closed[nb] {
				continue
			}

			there := pf.positions.Vertex(nb)
			g := current.g + here.Distance64(there)

			neighbor, exists := nodes[nb]
			if !exists {
				seq++
				neighbor = &pathNode{
					vertex: nb,
					g:      g,
					f:      g + there.Distance64(goal),
					seq:    seq,
					parent: current,
				}
				nodes[nb] = neighbor
				heap.Push(openSet, neighbor)
			} else if g < neighbor.g {
				// Found better path
				neighbor.f += g - neighbor.g
				neighbor.g = g
				neighbor.parent = current
				heap.Fix(openSet, neighbor.index)
			}
		}
	}

	return []int{}
}

// PathLength sums the Euclidean lengths of consecutive hops.
func (pf *PathFinder) PathLength(path []int) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += pf.positions.Vertex(path[i-1]).Distance64(pf.positions.Vertex(path[i]))
	}
	return total
}

// ConnectedPath turns a sequence of sampled stroke vertices into a
// contiguous vertex path. Adjacent pairs are kept as-is, gaps are filled
// with the shortest path between the pair. Pairs with an invalid index are
// skipped with a warning; a gap with no path contributes only its endpoint.
func (pf *PathFinder) ConnectedPath(vertices []int) []int {
	if len(vertices) < 2 {
		return vertices
	}

	connected := []int{vertices[0]}
	for i := 1; i < len(vertices); i++ {
		prev, cur := vertices[i-1], vertices[i]

		if !pf.graph.valid(prev) || !pf.graph.valid(cur) {
			logger.Warn("skipping invalid vertex pair in stroke",
				zap.Int("from", prev), zap.Int("to", cur), zap.Int("vertexCount", pf.graph.VertexCount()))
			continue
		}

		if prev == cur {
			continue
		}
		if pf.graph.AreConnected(prev, cur) {
			connected = append(connected, cur)
			continue
		}

		path := pf.ShortestPath(prev, cur)
		if len(path) == 0 {
			logger.Warn("no path between stroke vertices", zap.Int("from", prev), zap.Int("to", cur))
			connected = append(connected, cur)
			continue
		}
		connected = append(connected, path[1:]...)
	}

	return connected
}

func reconstructPath(node *pathNode) []int {
	var path []int
	for node != nil {
		path = append(path, node.vertex)
		node = node.parent
	}
	// Built from goal to start
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
