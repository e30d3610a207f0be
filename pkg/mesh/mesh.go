// Package mesh holds the triangle mesh data exchanged between loaders, the
// annotation engine and exporters.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/lithicmark/pkg/math"
)

// Mesh errors.
var (
	ErrIndexOutOfRange   = errors.New("triangle index out of range")
	ErrIncompleteTriple  = errors.New("index count is not a multiple of 3")
	ErrIncompleteVertex  = errors.New("position count is not a multiple of 3")
	ErrLabelCount        = errors.New("label count does not match vertex count")
	ErrInvalidEdgeLabels = errors.New("edge label must be 0 or 1")
)

// Mesh is an indexed triangle mesh with optional per-vertex edge labels.
//
// Positions holds 3 floats per vertex, Indices holds 3 vertex indices per
// triangle. Labels is either empty (no prior annotation) or holds one 0/1
// entry per vertex.
type Mesh struct {
	Positions []float32
	Labels    []uint8
	Indices   []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) math.Vec3 {
	return math.Vec3FromSlice(m.Positions, i)
}

// Triangle returns the vertex indices of triangle f.
func (m *Mesh) Triangle(f int) [3]int {
	return [3]int{int(m.Indices[f*3]), int(m.Indices[f*3+1]), int(m.Indices[f*3+2])}
}

// Validate checks the buffers for structural consistency.
func (m *Mesh) Validate() error {
	if len(m.Positions)%3 != 0 {
		return fmt.Errorf("%w: %d floats", ErrIncompleteVertex, len(m.Positions))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrIncompleteTriple, len(m.Indices))
	}
	n := m.VertexCount()
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d at position %d, vertex count %d", ErrIndexOutOfRange, idx, i, n)
		}
	}
	if len(m.Labels) != 0 {
		if len(m.Labels) != n {
			return fmt.Errorf("%w: %d labels, %d vertices", ErrLabelCount, len(m.Labels), n)
		}
		for i, l := range m.Labels {
			if l > 1 {
				return fmt.Errorf("%w: vertex %d has label %d", ErrInvalidEdgeLabels, i, l)
			}
		}
	}
	return nil
}

// IsolatedVertices returns the vertices not referenced by any triangle,
// in ascending order.
func (m *Mesh) IsolatedVertices() []int {
	used := make([]bool, m.VertexCount())
	for _, idx := range m.Indices {
		if int(idx) < len(used) {
			used[idx] = true
		}
	}
	var isolated []int
	for i, u := range used {
		if !u {
			isolated = append(isolated, i)
		}
	}
	return isolated
}

// InvertWinding swaps the first two indices of every triangle in place,
// flipping the face orientation. Adjacency is unaffected.
func (m *Mesh) InvertWinding() {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		m.Indices[i], m.Indices[i+1] = m.Indices[i+1], m.Indices[i]
	}
}

// Bounds returns the axis-aligned bounding box of all vertices.
// An empty mesh returns zero vectors.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	n := m.VertexCount()
	if n == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	lo = m.Vertex(0)
	hi = lo
	for i := 1; i < n; i++ {
		v := m.Vertex(i)
		lo = lo.Min(v)
		hi = hi.Max(v)
	}
	return lo, hi
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Positions: append([]float32(nil), m.Positions...),
		Labels:    append([]uint8(nil), m.Labels...),
		Indices:   append([]uint32(nil), m.Indices...),
	}
}
