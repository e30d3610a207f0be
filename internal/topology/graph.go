// Package topology derives vertex connectivity from triangle meshes and runs
// shortest-path queries over it.
package topology

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidIndices is returned when a triangle list cannot describe a mesh
// with the given vertex count.
var ErrInvalidIndices = errors.New("invalid triangle indices")

// Graph maps each vertex to the set of vertices it shares a triangle edge
// with. The relation is symmetric. Neighbor lists are sorted, so iteration
// order is deterministic.
type Graph struct {
	adj   [][]int
	edges int
}

// Build constructs the adjacency graph from a flat triangle index list.
// Vertices not referenced by any triangle are kept with no neighbors.
// Self pairs from degenerate triangles are dropped.
func Build(indices []uint32, vertexCount int) (*Graph, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidIndices, len(indices))
	}
	if vertexCount < 0 {
		return nil, fmt.Errorf("%w: negative vertex count %d", ErrInvalidIndices, vertexCount)
	}

	adj := make([][]int, vertexCount)
	link := func(a, b int) {
		if a != b {
			adj[a] = append(adj[a], b)
			adj[b] = append(adj[b], a)
		}
	}

	for i := 0; i < len(indices); i += 3 {
		a, b, c := int(indices[i]), int(indices[i+1]), int(indices[i+2])
		if a >= vertexCount || b >= vertexCount || c >= vertexCount {
			return nil, fmt.Errorf("%w: triangle %d (%d,%d,%d) exceeds vertex count %d",
				ErrInvalidIndices, i/3, a, b, c, vertexCount)
		}
		link(a, b)
		link(b, c)
		link(c, a)
	}

	// Shared edges appear once per adjacent triangle; collapse to a set.
	edges := 0
	for v := range adj {
		if len(adj[v]) == 0 {
			continue
		}
		slices.Sort(adj[v])
		adj[v] = slices.Compact(adj[v])
		adj[v] = slices.Clip(adj[v])
		edges += len(adj[v])
	}

	return &Graph{adj: adj, edges: edges / 2}, nil
}

// VertexCount returns the number of vertices in the graph.
func (g *Graph) VertexCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Neighbors returns the sorted neighbors of v. The slice must not be
// modified. Panics if v is out of range.
func (g *Graph) Neighbors(v int) []int {
	if v < 0 || v >= len(g.adj) {
		panic(fmt.Sprintf("topology: vertex %d out of range [0,%d)", v, len(g.adj)))
	}
	return g.adj[v]
}

// AreConnected reports whether u and v share a triangle edge.
// Out-of-range vertices are never connected.
func (g *Graph) AreConnected(u, v int) bool {
	if !g.valid(u) || !g.valid(v) {
		return false
	}
	_, found := slices.BinarySearch(g.adj[u], v)
	return found
}

// IsolatedVertices returns the vertices with no neighbors.
func (g *Graph) IsolatedVertices() []int {
	var isolated []int
	for v, n := range g.adj {
		if len(n) == 0 {
			isolated = append(isolated, v)
		}
	}
	return isolated
}

func (g *Graph) valid(v int) bool {
	return v >= 0 && v < len(g.adj)
}
