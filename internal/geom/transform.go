package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid placement: a translation followed by a unit rotation.
type Transform struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

func Identity() Transform {
	return Transform{Orientation: mgl64.QuatIdent()}
}

// NewTransform normalizes the orientation. A zero quaternion becomes identity.
func NewTransform(position mgl64.Vec3, orientation mgl64.Quat) Transform {
	return Transform{Position: position, Orientation: NormalizeQuat(orientation)}
}

func Translation(x, y, z float64) Transform {
	return Transform{Position: mgl64.Vec3{x, y, z}, Orientation: mgl64.QuatIdent()}
}

// Apply maps a local point into the parent frame.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation.Rotate(p).Add(t.Position)
}

// ApplyVector rotates a local direction into the parent frame.
func (t Transform) ApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation.Rotate(v)
}

// InverseApply maps a parent-frame point into the local frame.
func (t Transform) InverseApply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation.Conjugate().Rotate(p.Sub(t.Position))
}

func (t Transform) InverseApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation.Conjugate().Rotate(v)
}

// Mul composes t with a child transform expressed in t's frame.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Position:    t.Apply(child.Position),
		Orientation: t.Orientation.Mul(child.Orientation).Normalize(),
	}
}

func (t Transform) Inverse() Transform {
	inv := t.Orientation.Conjugate()
	return Transform{
		Position:    inv.Rotate(t.Position.Mul(-1)),
		Orientation: inv,
	}
}

// Rotation returns the orientation as a column-major 3x3 matrix.
func (t Transform) Rotation() mgl64.Mat3 {
	return t.Orientation.Mat4().Mat3()
}

func (t Transform) IsValid() bool {
	for i := 0; i < 3; i++ {
		if !finite(t.Position[i]) || !finite(t.Orientation.V[i]) {
			return false
		}
	}
	return finite(t.Orientation.W)
}

func NormalizeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if l < 1e-12 || !finite(l) {
		return mgl64.QuatIdent()
	}
	return q.Scale(1 / l)
}

// IntegrateOrientation advances q by angular velocity w over dt and renormalizes.
func IntegrateOrientation(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	spin := mgl64.Quat{W: 0, V: w}.Mul(q).Scale(0.5 * dt)
	return NormalizeQuat(q.Add(spin))
}

// Skew returns the cross-product matrix of v, so Skew(v).Mul3x1(u) == v.Cross(u).
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

// TangentBasis returns two unit vectors orthogonal to n and to each other.
// n must be unit length.
func TangentBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var t1 mgl64.Vec3
	if math.Abs(n[0]) >= 0.57735 {
		t1 = mgl64.Vec3{n[1], -n[0], 0}
	} else {
		t1 = mgl64.Vec3{0, n[2], -n[1]}
	}
	t1 = t1.Normalize()
	return t1, n.Cross(t1)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
