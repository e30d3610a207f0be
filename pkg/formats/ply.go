// Package formats reads and writes annotated triangle meshes.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/lithicmark/pkg/mesh"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic      = errors.New("invalid PLY magic: expected 'ply'")
	ErrInvalidPLYHeader     = errors.New("invalid PLY header")
	ErrUnsupportedPLYFormat = errors.New("unsupported PLY format")
	ErrTruncatedPLY         = errors.New("truncated PLY data")
	ErrMissingPLYProperty   = errors.New("missing PLY property")
	ErrInvalidPLYValue      = errors.New("invalid PLY value")
)

// PLYFormat is the body encoding of a PLY file.
type PLYFormat int

const (
	PLYASCII PLYFormat = iota
	PLYBinaryLittleEndian
	PLYBinaryBigEndian
)

// String returns the name used in the PLY header.
func (f PLYFormat) String() string {
	switch f {
	case PLYASCII:
		return "ascii"
	case PLYBinaryLittleEndian:
		return "binary_little_endian"
	case PLYBinaryBigEndian:
		return "binary_big_endian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// plyType is a scalar property type.
type plyType struct {
	name string
	size int
}

var plyTypes = map[string]plyType{
	"char": {"int8", 1}, "int8": {"int8", 1},
	"uchar": {"uint8", 1}, "uint8": {"uint8", 1},
	"short": {"int16", 2}, "int16": {"int16", 2},
	"ushort": {"uint16", 2}, "uint16": {"uint16", 2},
	"int": {"int32", 4}, "int32": {"int32", 4},
	"uint": {"uint32", 4}, "uint32": {"uint32", 4},
	"float": {"float32", 4}, "float32": {"float32", 4},
	"double": {"float64", 8}, "float64": {"float64", 8},
}

// PLYProperty describes one property of a PLY element. List properties
// have a count type and an item type.
type PLYProperty struct {
	Name      string
	Type      plyType
	IsList    bool
	CountType plyType
}

// PLYElement describes an element block of the body.
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYHeader is the parsed header of a PLY file.
type PLYHeader struct {
	Format   PLYFormat
	Version  string
	Comments []string
	Elements []PLYElement
}

// ParsePLY parses a triangle mesh from PLY data. Vertex positions come from
// x, y, z; per-vertex labels from an optional "labels" or "label" property,
// with any nonzero value marking an edge vertex. Faces come from
// "vertex_indices" (or "vertex_index"); polygons are fan-triangulated.
// Other elements and properties are skipped.
func ParsePLY(data []byte) (*mesh.Mesh, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	header, err := parsePLYHeader(r)
	if err != nil {
		return nil, err
	}

	var body plyBody
	switch header.Format {
	case PLYASCII:
		body = newASCIIBody(r, len(data))
	case PLYBinaryLittleEndian:
		body = &binaryBody{r: r, order: binary.LittleEndian, size: len(data)}
	case PLYBinaryBigEndian:
		body = &binaryBody{r: r, order: binary.BigEndian, size: len(data)}
	}

	m := &mesh.Mesh{}
	for _, el := range header.Elements {
		switch el.Name {
		case "vertex":
			err = readPLYVertices(body, el, m)
		case "face":
			err = readPLYFaces(body, el, m)
		default:
			err = skipPLYElement(body, el)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PLY mesh: %w", err)
	}
	return m, nil
}

// ParsePLYFile parses a PLY file from disk.
func ParsePLYFile(path string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PLY file: %w", err)
	}
	return ParsePLY(data)
}

func parsePLYHeader(r *bufio.Reader) (*PLYHeader, error) {
	line, err := r.ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "ply" {
		return nil, ErrInvalidPLYMagic
	}

	h := &PLYHeader{Format: -1}
	var current *PLYElement

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: missing end_header", ErrInvalidPLYHeader)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, strings.TrimSpace(line))
			}
			switch fields[1] {
			case "ascii":
				h.Format = PLYASCII
			case "binary_little_endian":
				h.Format = PLYBinaryLittleEndian
			case "binary_big_endian":
				h.Format = PLYBinaryBigEndian
			default:
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, fields[1])
			}
			if len(fields) > 2 {
				h.Version = fields[2]
			}

		case "comment", "obj_info":
			h.Comments = append(h.Comments, strings.Join(fields[1:], " "))

		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPLYHeader, strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: element count %q", ErrInvalidPLYHeader, fields[2])
			}
			h.Elements = append(h.Elements, PLYElement{Name: fields[1], Count: count})
			current = &h.Elements[len(h.Elements)-1]

		case "property":
			if current == nil {
				return nil, fmt.Errorf("%w: property before element", ErrInvalidPLYHeader)
			}
			prop, err := parsePLYProperty(fields[1:])
			if err != nil {
				return nil, err
			}
			current.Properties = append(current.Properties, prop)

		case "end_header":
			if h.Format < 0 {
				return nil, fmt.Errorf("%w: missing format line", ErrInvalidPLYHeader)
			}
			return h, nil

		default:
			return nil, fmt.Errorf("%w: unknown keyword %q", ErrInvalidPLYHeader, fields[0])
		}
	}
}

func parsePLYProperty(fields []string) (PLYProperty, error) {
	if len(fields) >= 1 && fields[0] == "list" {
		if len(fields) != 4 {
			return PLYProperty{}, fmt.Errorf("%w: list property %v", ErrInvalidPLYHeader, fields)
		}
		count, ok1 := plyTypes[fields[1]]
		item, ok2 := plyTypes[fields[2]]
		if !ok1 || !ok2 {
			return PLYProperty{}, fmt.Errorf("%w: list types %s %s", ErrInvalidPLYHeader, fields[1], fields[2])
		}
		return PLYProperty{Name: fields[3], Type: item, IsList: true, CountType: count}, nil
	}

	if len(fields) != 2 {
		return PLYProperty{}, fmt.Errorf("%w: property %v", ErrInvalidPLYHeader, fields)
	}
	t, ok := plyTypes[fields[0]]
	if !ok {
		return PLYProperty{}, fmt.Errorf("%w: property type %s", ErrInvalidPLYHeader, fields[0])
	}
	return PLYProperty{Name: fields[1], Type: t}, nil
}

// plyBody reads scalar values from the element data.
type plyBody interface {
	read(t plyType) (float64, error)
	// limit bounds the number of values left to read. Every value takes at
	// least one byte, so header counts above it cannot be satisfied.
	limit() int
}

type asciiBody struct {
	s    *bufio.Scanner
	size int
}

func newASCIIBody(r io.Reader, size int) *asciiBody {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &asciiBody{s: s, size: size}
}

func (b *asciiBody) limit() int { return b.size }

func (b *asciiBody) read(t plyType) (float64, error) {
	if !b.s.Scan() {
		return 0, ErrTruncatedPLY
	}
	v, err := strconv.ParseFloat(b.s.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidPLYValue, t.name, b.s.Text())
	}
	return v, nil
}

type binaryBody struct {
	r     io.Reader
	order binary.ByteOrder
	size  int
	buf   [8]byte
}

func (b *binaryBody) limit() int { return b.size }

func (b *binaryBody) read(t plyType) (float64, error) {
	p := b.buf[:t.size]
	if _, err := io.ReadFull(b.r, p); err != nil {
		return 0, ErrTruncatedPLY
	}
	switch t.name {
	case "int8":
		return float64(int8(p[0])), nil
	case "uint8":
		return float64(p[0]), nil
	case "int16":
		return float64(int16(b.order.Uint16(p))), nil
	case "uint16":
		return float64(b.order.Uint16(p)), nil
	case "int32":
		return float64(int32(b.order.Uint32(p))), nil
	case "uint32":
		return float64(b.order.Uint32(p)), nil
	case "float32":
		return float64(math.Float32frombits(b.order.Uint32(p))), nil
	default:
		return math.Float64frombits(b.order.Uint64(p)), nil
	}
}

// readPLYRecord reads one element record. Scalars are stored by property
// position, lists by property name.
func readPLYRecord(body plyBody, el PLYElement, scalars []float64, lists map[string][]float64) error {
	for i, prop := range el.Properties {
		if !prop.IsList {
			v, err := body.read(prop.Type)
			if err != nil {
				return err
			}
			scalars[i] = v
			continue
		}

		n, err := body.read(prop.CountType)
		if err != nil {
			return err
		}
		if n < 0 || n != math.Trunc(n) || n > float64(body.limit()) {
			return fmt.Errorf("%w: list length %v", ErrInvalidPLYValue, n)
		}
		items := lists[prop.Name][:0]
		for j := 0; j < int(n); j++ {
			v, err := body.read(prop.Type)
			if err != nil {
				return err
			}
			items = append(items, v)
		}
		lists[prop.Name] = items
	}
	return nil
}

func propertyIndex(el PLYElement, names ...string) int {
	for _, name := range names {
		for i, p := range el.Properties {
			if p.Name == name && !p.IsList {
				return i
			}
		}
	}
	return -1
}

func readPLYVertices(body plyBody, el PLYElement, m *mesh.Mesh) error {
	ix, iy, iz := propertyIndex(el, "x"), propertyIndex(el, "y"), propertyIndex(el, "z")
	if ix < 0 || iy < 0 || iz < 0 {
		return fmt.Errorf("%w: vertex x/y/z", ErrMissingPLYProperty)
	}
	il := propertyIndex(el, "labels", "label")

	hint := min(el.Count, body.limit())
	m.Positions = make([]float32, 0, hint*3)
	if il >= 0 {
		m.Labels = make([]uint8, 0, hint)
	}

	scalars := make([]float64, len(el.Properties))
	lists := map[string][]float64{}
	for i := 0; i < el.Count; i++ {
		if err := readPLYRecord(body, el, scalars, lists); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
		m.Positions = append(m.Positions, float32(scalars[ix]), float32(scalars[iy]), float32(scalars[iz]))
		if il >= 0 {
			var label uint8
			if scalars[il] != 0 {
				label = 1
			}
			m.Labels = append(m.Labels, label)
		}
	}
	return nil
}

func readPLYFaces(body plyBody, el PLYElement, m *mesh.Mesh) error {
	name := ""
	for _, p := range el.Properties {
		if p.IsList && (p.Name == "vertex_indices" || p.Name == "vertex_index") {
			name = p.Name
			break
		}
	}
	if name == "" {
		return fmt.Errorf("%w: face vertex_indices", ErrMissingPLYProperty)
	}

	m.Indices = make([]uint32, 0, min(el.Count, body.limit())*3)
	scalars := make([]float64, len(el.Properties))
	lists := map[string][]float64{}
	for i := 0; i < el.Count; i++ {
		if err := readPLYRecord(body, el, scalars, lists); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
		poly := lists[name]
		for k := 1; k+1 < len(poly); k++ {
			for _, v := range [3]float64{poly[0], poly[k], poly[k+1]} {
				if v < 0 {
					return fmt.Errorf("face %d: %w: negative index", i, mesh.ErrIndexOutOfRange)
				}
				m.Indices = append(m.Indices, uint32(v))
			}
		}
	}
	return nil
}

func skipPLYElement(body plyBody, el PLYElement) error {
	scalars := make([]float64, len(el.Properties))
	lists := map[string][]float64{}
	for i := 0; i < el.Count; i++ {
		if err := readPLYRecord(body, el, scalars, lists); err != nil {
			return fmt.Errorf("%s %d: %w", el.Name, i, err)
		}
	}
	return nil
}

// WritePLY writes m as a binary little-endian PLY with an int "labels"
// vertex property. Missing labels are written as 0. Triangles are written
// in their stored winding.
func WritePLY(w io.Writer, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("writing PLY: %w", err)
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("ply\nformat binary_little_endian 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", m.VertexCount())
	bw.WriteString("property float x\nproperty float y\nproperty float z\nproperty int labels\n")
	fmt.Fprintf(bw, "element face %d\n", m.TriangleCount())
	bw.WriteString("property list uchar int vertex_indices\nend_header\n")

	var rec [16]byte
	for v := 0; v < m.VertexCount(); v++ {
		binary.LittleEndian.PutUint32(rec[0:], math.Float32bits(m.Positions[v*3]))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(m.Positions[v*3+1]))
		binary.LittleEndian.PutUint32(rec[8:], math.Float32bits(m.Positions[v*3+2]))
		var label uint32
		if len(m.Labels) > 0 {
			label = uint32(m.Labels[v])
		}
		binary.LittleEndian.PutUint32(rec[12:], label)
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("writing PLY vertex %d: %w", v, err)
		}
	}

	var face [13]byte
	face[0] = 3
	for f := 0; f < m.TriangleCount(); f++ {
		binary.LittleEndian.PutUint32(face[1:], m.Indices[f*3])
		binary.LittleEndian.PutUint32(face[5:], m.Indices[f*3+1])
		binary.LittleEndian.PutUint32(face[9:], m.Indices[f*3+2])
		if _, err := bw.Write(face[:]); err != nil {
			return fmt.Errorf("writing PLY face %d: %w", f, err)
		}
	}

	return bw.Flush()
}

// WritePLYFile writes m to path.
func WritePLYFile(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PLY file: %w", err)
	}
	if err := WritePLY(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
