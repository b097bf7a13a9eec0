package geom

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrInvalidDimensions = errors.New("geom: shape dimensions must be positive and finite")
	ErrDegenerateHull    = errors.New("geom: convex hull needs at least four non-coplanar points")
)

type ShapeType uint8

const (
	SphereType ShapeType = iota
	CapsuleType
	BoxType
	ConvexHullType

	// NumShapeTypes sizes dispatch tables keyed by ShapeType.
	NumShapeTypes
)

func (t ShapeType) String() string {
	switch t {
	case SphereType:
		return "sphere"
	case CapsuleType:
		return "capsule"
	case BoxType:
		return "box"
	case ConvexHullType:
		return "convex-hull"
	default:
		return "unknown"
	}
}

// Shape is a convex collision shape described in its own local frame.
type Shape interface {
	Type() ShapeType
	// Support returns the farthest local point in direction dir.
	Support(dir mgl64.Vec3) mgl64.Vec3
	LocalBounds() AABB
	Volume() float64
	// Inertia returns the principal moments of inertia about the local
	// origin for the given mass.
	Inertia(mass float64) mgl64.Vec3
	ContainsPoint(p mgl64.Vec3) bool
	// Raycast intersects the local segment from + s*(to-from), s in
	// [0, maxFraction]. Rays starting inside the shape do not hit.
	Raycast(from, to mgl64.Vec3, maxFraction float64) (RaycastHit, bool)
}

// Polytope is a shape with flat faces that the narrow phase can clip.
type Polytope interface {
	Shape
	// Face returns the vertices, in winding order, of the face whose
	// normal is most aligned with dir, together with that normal.
	Face(dir mgl64.Vec3) ([]mgl64.Vec3, mgl64.Vec3)
}

// RaycastHit reports a segment intersection. Fraction is relative to the
// queried segment.
type RaycastHit struct {
	Fraction float64
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
}

// BoundingRadius is the radius of the smallest origin-centred sphere that
// encloses the shape's local bounds.
func BoundingRadius(s Shape) float64 {
	switch v := s.(type) {
	case *Sphere:
		return v.Radius
	case *Capsule:
		return v.Radius + v.HalfHeight
	}
	b := s.LocalBounds()
	var e mgl64.Vec3
	for i := 0; i < 3; i++ {
		e[i] = max(-b.Min[i], b.Max[i])
	}
	return e.Len()
}

func positive(vals ...float64) bool {
	for _, v := range vals {
		if !(v > 0) || !finite(v) {
			return false
		}
	}
	return true
}
