package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := LookAt(Vec3{1, 2, 3}, Vec3{}, Vec3{0, 1, 0})
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	proj := Perspective(float32(math.Pi/3), 1.5, 0.1, 100)
	view := LookAt(Vec3{0, 0, 5}, Vec3{}, Vec3{0, 1, 0})
	vp := proj.Mul(view)
	result := vp.Mul(vp.Inverse())

	id := Identity()
	for i := 0; i < 16; i++ {
		if math.Abs(float64(result[i]-id[i])) > 1e-4 {
			t.Errorf("VP * VP^-1 element %d: got %f, want %f", i, result[i], id[i])
		}
	}
}

func TestProject(t *testing.T) {
	view := LookAt(Vec3{0, 0, 5}, Vec3{}, Vec3{0, 1, 0})
	p := view.Project(Vec3{0, 0, 0})
	if math.Abs(float64(p.Z+5)) > 1e-5 {
		t.Errorf("origin should be 5 units in front of the camera, got z=%f", p.Z)
	}
}
