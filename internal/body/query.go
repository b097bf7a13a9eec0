package body

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// AABB merges the bounds of every shape. A body with no shapes reports a
// degenerate box at its origin.
func (b *Body) AABB() geom.AABB {
	if len(b.shapes) == 0 {
		p := b.transform.Position
		return geom.AABB{Min: p, Max: p}
	}
	box := geom.EmptyAABB()
	for _, p := range b.shapes {
		box = box.Merge(p.AABB())
	}
	return box
}

func (b *Body) TestAABBOverlap(box geom.AABB) bool {
	return b.AABB().Overlaps(box)
}

// TestPointInside reports whether the world point lies in any shape.
func (b *Body) TestPointInside(p mgl64.Vec3) bool {
	for _, s := range b.shapes {
		if s.shape.ContainsPoint(s.WorldTransform().InverseApply(p)) {
			return true
		}
	}
	return false
}

// Raycast returns the closest shape hit along the world segment.
func (b *Body) Raycast(from, to mgl64.Vec3) (geom.RaycastHit, *ProxyShape, bool) {
	var (
		best    geom.RaycastHit
		bestHit *ProxyShape
	)
	maxFraction := 1.0
	for _, s := range b.shapes {
		t := s.WorldTransform()
		hit, ok := s.shape.Raycast(t.InverseApply(from), t.InverseApply(to), maxFraction)
		if !ok {
			continue
		}
		maxFraction = hit.Fraction
		best = geom.RaycastHit{
			Fraction: hit.Fraction,
			Point:    from.Add(to.Sub(from).Mul(hit.Fraction)),
			Normal:   t.ApplyVector(hit.Normal),
		}
		bestHit = s
	}
	return best, bestHit, bestHit != nil
}

func (b *Body) WorldPoint(local mgl64.Vec3) mgl64.Vec3 { return b.transform.Apply(local) }

func (b *Body) LocalPoint(world mgl64.Vec3) mgl64.Vec3 { return b.transform.InverseApply(world) }

func (b *Body) WorldVector(local mgl64.Vec3) mgl64.Vec3 { return b.transform.ApplyVector(local) }

func (b *Body) LocalVector(world mgl64.Vec3) mgl64.Vec3 {
	return b.transform.InverseApplyVector(world)
}

// VelocityAt returns the velocity of the material point at world point p.
func (b *Body) VelocityAt(p mgl64.Vec3) mgl64.Vec3 {
	r := p.Sub(b.transform.Position)
	return b.linearVelocity.Add(b.angularVelocity.Cross(r))
}

// KineticEnergy is the translational plus rotational energy.
func (b *Body) KineticEnergy() float64 {
	if b.typ != Dynamic {
		return 0
	}
	e := 0.5 * b.mass * b.linearVelocity.LenSqr()
	if b.invInertiaLocal.Det() != 0 {
		r := b.transform.Rotation()
		inertia := r.Mul3(b.invInertiaLocal.Inv()).Mul3(r.Transpose())
		e += 0.5 * b.angularVelocity.Dot(inertia.Mul3x1(b.angularVelocity))
	}
	return e
}
