package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Faultbox/lithicmark/pkg/mesh"
)

const asciiQuad = `ply
format ascii 1.0
comment two triangles and a quad
element vertex 5
property float x
property float y
property float z
property uchar labels
element face 2
property list uchar int vertex_indices
element edge 1
property int vertex1
property int vertex2
end_header
0 0 0 0
1 0 0 1
1 1 0 0
0 1 0 1
2 2 2 0
3 0 1 2
4 0 2 3 4
0 1
`

func TestParsePLY_ASCII(t *testing.T) {
	m, err := ParsePLY([]byte(asciiQuad))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}

	if m.VertexCount() != 5 {
		t.Errorf("expected 5 vertices, got %d", m.VertexCount())
	}
	if !slices.Equal(m.Labels, []uint8{0, 1, 0, 1, 0}) {
		t.Errorf("labels = %v", m.Labels)
	}
	// The quad is fan-triangulated into (0,2,3) and (0,3,4)
	want := []uint32{0, 1, 2, 0, 2, 3, 0, 3, 4}
	if !slices.Equal(m.Indices, want) {
		t.Errorf("indices = %v, want %v", m.Indices, want)
	}
}

func TestParsePLY_NoLabels(t *testing.T) {
	data := `ply
format ascii 1.0
element vertex 3
property double x
property double y
property double z
element face 1
property list uchar uint vertex_index
end_header
0 0 0
1 0 0
0 1 0
3 0 1 2
`
	m, err := ParsePLY([]byte(data))
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if len(m.Labels) != 0 {
		t.Errorf("expected no labels, got %v", m.Labels)
	}
	if m.TriangleCount() != 1 {
		t.Errorf("expected 1 triangle, got %d", m.TriangleCount())
	}
}

// binaryPLY builds a little-endian file with double positions, a normal
// property to skip and int labels.
func binaryPLY() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("ply\nformat binary_little_endian 1.0\n")
	buf.WriteString("element vertex 3\nproperty double x\nproperty double y\nproperty double z\n")
	buf.WriteString("property float nx\nproperty int label\n")
	buf.WriteString("element face 1\nproperty list uchar int vertex_indices\nend_header\n")

	verts := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for i, v := range verts {
		binary.Write(buf, binary.LittleEndian, v)
		binary.Write(buf, binary.LittleEndian, float32(0))
		binary.Write(buf, binary.LittleEndian, int32(i%2))
	}
	buf.WriteByte(3)
	binary.Write(buf, binary.LittleEndian, []int32{2, 1, 0})
	return buf.Bytes()
}

func TestParsePLY_Binary(t *testing.T) {
	m, err := ParsePLY(binaryPLY())
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if got := m.Vertex(1); got.X != 1 || got.Y != 0 {
		t.Errorf("vertex 1 = %v", got)
	}
	if !slices.Equal(m.Labels, []uint8{0, 1, 0}) {
		t.Errorf("labels = %v", m.Labels)
	}
	if !slices.Equal(m.Indices, []uint32{2, 1, 0}) {
		t.Errorf("indices = %v", m.Indices)
	}
}

func TestParsePLY_Errors(t *testing.T) {
	truncated := binaryPLY()
	truncated = truncated[:len(truncated)-5]

	tests := []struct {
		name string
		data string
		want error
	}{
		{"magic", "obj\n", ErrInvalidPLYMagic},
		{"no end", "ply\nformat ascii 1.0\n", ErrInvalidPLYHeader},
		{"no format", "ply\nelement vertex 0\nend_header\n", ErrInvalidPLYHeader},
		{"format", "ply\nformat binary_middle_endian 1.0\nend_header\n", ErrUnsupportedPLYFormat},
		{"missing xyz", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nend_header\n1\n", ErrMissingPLYProperty},
		{"bad value", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 a 2\n", ErrInvalidPLYValue},
		{"short body", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n1 2 3\n", ErrTruncatedPLY},
		{"binary truncated", string(truncated), ErrTruncatedPLY},
		{"huge vertex count", "ply\nformat ascii 1.0\nelement vertex 4000000000000000000\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", ErrTruncatedPLY},
		{"huge face count", "ply\nformat binary_little_endian 1.0\nelement face 4000000000000000000\nproperty list uchar int vertex_indices\nend_header\n", ErrTruncatedPLY},
		{"huge list length", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list int int vertex_indices\nend_header\n0 0 0\n1e300 0 0 0\n", ErrInvalidPLYValue},
		{"fractional list length", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n2.5 0 0 0\n", ErrInvalidPLYValue},
		{"index range", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n3 0 1 2\n", mesh.ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePLY([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWritePLY_RoundTrip(t *testing.T) {
	m := &mesh.Mesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0.5},
		Labels:    []uint8{1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}

	var buf bytes.Buffer
	if err := WritePLY(&buf, m); err != nil {
		t.Fatalf("WritePLY failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("property int labels\n")) {
		t.Error("header should declare int labels")
	}

	got, err := ParsePLY(buf.Bytes())
	if err != nil {
		t.Fatalf("ParsePLY failed: %v", err)
	}
	if !slices.Equal(got.Positions, m.Positions) {
		t.Errorf("positions = %v, want %v", got.Positions, m.Positions)
	}
	if !slices.Equal(got.Labels, m.Labels) {
		t.Errorf("labels = %v, want %v", got.Labels, m.Labels)
	}
	if !slices.Equal(got.Indices, m.Indices) {
		t.Errorf("indices = %v, want %v", got.Indices, m.Indices)
	}
}

func TestWritePLY_DefaultsLabels(t *testing.T) {
	m := &mesh.Mesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:   []uint32{0, 1, 2},
	}
	path := filepath.Join(t.TempDir(), "out.ply")
	if err := WritePLYFile(path, m); err != nil {
		t.Fatalf("WritePLYFile failed: %v", err)
	}

	got, err := ParsePLYFile(path)
	if err != nil {
		t.Fatalf("ParsePLYFile failed: %v", err)
	}
	if !slices.Equal(got.Labels, []uint8{0, 0, 0}) {
		t.Errorf("labels = %v, want zeros", got.Labels)
	}
}

func TestWritePLY_Invalid(t *testing.T) {
	m := &mesh.Mesh{Positions: []float32{0, 0, 0}, Indices: []uint32{0, 0, 5}}
	if err := WritePLY(&bytes.Buffer{}, m); !errors.Is(err, mesh.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}
