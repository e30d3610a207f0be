package picking

import (
	"github.com/Faultbox/lithicmark/pkg/math"
	"github.com/Faultbox/lithicmark/pkg/mesh"
)

// Hit is the result of a pick. Vertex and Face are -1 on a miss.
type Hit struct {
	Vertex   int
	Face     int
	Point    math.Vec3
	Distance float32
}

// Miss reports whether nothing was hit.
func (h Hit) Miss() bool { return h.Vertex < 0 }

var miss = Hit{Vertex: -1, Face: -1}

// Picker answers ray and radius queries against one mesh. It reads the
// mesh buffers on every query, so it stays valid across winding changes.
type Picker struct {
	mesh   *mesh.Mesh
	bounds AABB
}

// NewPicker creates a picker for m.
func NewPicker(m *mesh.Mesh) *Picker {
	lo, hi := m.Bounds()
	return &Picker{mesh: m, bounds: AABB{Min: lo, Max: hi}}
}

// Pick returns the nearest triangle hit by the ray and, of that triangle's
// corners, the vertex closest to the hit point.
func (p *Picker) Pick(r Ray) Hit {
	if p.mesh.TriangleCount() == 0 {
		return miss
	}
	if _, ok := r.IntersectAABB(p.bounds); !ok {
		return miss
	}

	best := miss
	for f := 0; f < p.mesh.TriangleCount(); f++ {
		tri := p.mesh.Triangle(f)
		t, ok := r.IntersectTriangle(p.mesh.Vertex(tri[0]), p.mesh.Vertex(tri[1]), p.mesh.Vertex(tri[2]))
		if !ok || (best.Face >= 0 && t >= best.Distance) {
			continue
		}
		best = Hit{Face: f, Distance: t, Point: r.At(t)}
	}
	if best.Face < 0 {
		return miss
	}

	best.Vertex = p.closestCorner(best.Face, best.Point)
	return best
}

// PickScreen casts a ray through a pixel and picks with it.
func (p *Picker) PickScreen(x, y, viewportW, viewportH float32, invViewProj math.Mat4) Hit {
	return p.Pick(ScreenToRay(x, y, viewportW, viewportH, invViewProj))
}

// VerticesWithinRadius returns, in ascending order, the vertices whose
// distance to center is at most radius.
func (p *Picker) VerticesWithinRadius(center math.Vec3, radius float32) []int {
	var out []int
	r2 := radius * radius
	for v := 0; v < p.mesh.VertexCount(); v++ {
		d := p.mesh.Vertex(v).Sub(center)
		if d.Dot(d) <= r2 {
			out = append(out, v)
		}
	}
	return out
}

func (p *Picker) closestCorner(face int, point math.Vec3) int {
	tri := p.mesh.Triangle(face)
	closest := tri[0]
	minDist := p.mesh.Vertex(tri[0]).Sub(point)
	minSq := minDist.Dot(minDist)
	for _, v := range tri[1:] {
		d := p.mesh.Vertex(v).Sub(point)
		if sq := d.Dot(d); sq < minSq {
			closest, minSq = v, sq
		}
	}
	return closest
}
