package mesh

import (
	"errors"
	"testing"

	"github.com/Faultbox/lithicmark/pkg/math"
)

func quad() *Mesh {
	return &Mesh{
		Positions: []float32{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			0, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestMeshCounts(t *testing.T) {
	m := quad()
	if m.VertexCount() != 4 {
		t.Errorf("expected 4 vertices, got %d", m.VertexCount())
	}
	if m.TriangleCount() != 2 {
		t.Errorf("expected 2 triangles, got %d", m.TriangleCount())
	}
	if got, want := m.Vertex(2), (math.Vec3{X: 1, Y: 1}); got != want {
		t.Errorf("Vertex(2) = %v, want %v", got, want)
	}
	if got, want := m.Triangle(1), [3]int{0, 2, 3}; got != want {
		t.Errorf("Triangle(1) = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Mesh)
		want   error
	}{
		{"valid", func(*Mesh) {}, nil},
		{"index out of range", func(m *Mesh) { m.Indices[5] = 9 }, ErrIndexOutOfRange},
		{"incomplete triple", func(m *Mesh) { m.Indices = m.Indices[:5] }, ErrIncompleteTriple},
		{"incomplete vertex", func(m *Mesh) { m.Positions = m.Positions[:11] }, ErrIncompleteVertex},
		{"label count", func(m *Mesh) { m.Labels = []uint8{0, 1} }, ErrLabelCount},
		{"label value", func(m *Mesh) { m.Labels = []uint8{0, 1, 2, 0} }, ErrInvalidEdgeLabels},
		{"labels ok", func(m *Mesh) { m.Labels = []uint8{0, 1, 1, 0} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quad()
			tt.mutate(m)
			err := m.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIsolatedVertices(t *testing.T) {
	m := quad()
	m.Positions = append(m.Positions, 5, 5, 5)

	isolated := m.IsolatedVertices()
	if len(isolated) != 1 || isolated[0] != 4 {
		t.Errorf("expected [4], got %v", isolated)
	}
}

func TestInvertWinding(t *testing.T) {
	m := quad()
	m.InvertWinding()
	want := []uint32{1, 0, 2, 2, 0, 3}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Fatalf("indices = %v, want %v", m.Indices, want)
		}
	}
}

func TestBoundsAndClone(t *testing.T) {
	m := quad()
	lo, hi := m.Bounds()
	if lo != (math.Vec3{}) || hi != (math.Vec3{X: 1, Y: 1}) {
		t.Errorf("Bounds() = %v %v", lo, hi)
	}

	c := m.Clone()
	c.Positions[0] = 42
	if m.Positions[0] == 42 {
		t.Error("Clone should not share position storage")
	}
}
