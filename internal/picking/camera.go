package picking

import (
	gomath "math"

	"github.com/Faultbox/lithicmark/pkg/math"
)

// OrbitCamera orbits around the center of a mesh. With zero pitch and yaw
// it looks down the -Z axis.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	FovY      float32 // Vertical field of view, radians
	Near, Far float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MaxPitch    float32 // Pitch is clamped to [-MaxPitch, MaxPitch]

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates an orbit camera one unit from the origin.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        1,
		FovY:            float32(gomath.Pi / 4),
		Near:            0.01,
		Far:             100,
		MinDistance:     0.001,
		MaxDistance:     1000,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	pitch, yaw := float64(c.Pitch), float64(c.Yaw)
	offset := math.Vec3{
		X: float32(gomath.Cos(pitch) * gomath.Sin(yaw)),
		Y: float32(gomath.Sin(pitch)),
		Z: float32(gomath.Cos(pitch) * gomath.Cos(yaw)),
	}
	return c.Center.Add(offset.Scale(c.Distance))
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection for a viewport of
// the given aspect ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	return math.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// InverseViewProjection returns the matrix ScreenToRay expects for a
// viewport of w by h pixels.
func (c *OrbitCamera) InverseViewProjection(w, h float32) math.Mat4 {
	return c.ProjectionMatrix(w / h).Mul(c.ViewMatrix()).Inverse()
}

// Ray casts a ray through pixel (x, y) of a w by h viewport.
func (c *OrbitCamera) Ray(x, y, w, h float32) Ray {
	return ScreenToRay(x, y, w, h, c.InverseViewProjection(w, h))
}

// HandleDrag rotates the camera by a pointer drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = clamp(c.Pitch+deltaY*c.DragSensitivity, -c.MaxPitch, c.MaxPitch)
}

// HandleZoom moves the camera toward the center for positive delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on a bounding box and backs off until the
// bounding sphere fills the vertical field of view.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Length() / 2
	if radius == 0 {
		radius = 1
	}

	c.Distance = radius / float32(gomath.Sin(float64(c.FovY)/2))
	c.MinDistance = radius * 0.01
	c.MaxDistance = c.Distance * 10
	c.Near = c.Distance * 0.01
	c.Far = c.Distance + radius*4
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
