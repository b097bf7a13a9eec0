package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// parallelTolerance bounds |sin| between capsule axes treated as parallel.
const parallelTolerance = 1e-3

// roundCore returns the world core segment and radius of a sphere or
// capsule. A sphere's segment is a single point.
func roundCore(s geom.Shape, t geom.Transform) (mgl64.Vec3, mgl64.Vec3, float64) {
	switch v := s.(type) {
	case *geom.Sphere:
		return t.Position, t.Position, v.Radius
	case *geom.Capsule:
		p, q := v.Segment()
		return t.Apply(p), t.Apply(q), v.Radius
	}
	return t.Position, t.Position, 0
}

// closestSegmentPoints returns the closest points between segments p1q1
// and p2q2 with their parameters.
func closestSegmentPoints(p1, q1, p2, q2 mgl64.Vec3) (c1, c2 mgl64.Vec3, s, t float64) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	const tiny = 1e-14
	switch {
	case a <= tiny && e <= tiny:
		return p1, p2, 0, 0
	case a <= tiny:
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e <= tiny {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			den := a*e - b*b
			if den > tiny {
				s = clamp01((b*f - c*e) / den)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t)), s, t
}

func closestPointOnSegment(x, p, q mgl64.Vec3) mgl64.Vec3 {
	d := q.Sub(p)
	l := d.LenSqr()
	if l < 1e-14 {
		return p
	}
	return p.Add(d.Mul(clamp01(x.Sub(p).Dot(d) / l)))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// roundRound handles every pairing of spheres and capsules in closed form.
// Parallel overlapping capsules produce two contacts.
func roundRound(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool {
	p1, q1, ra := roundCore(a, ta)
	p2, q2, rb := roundCore(b, tb)
	ca, cb, _, _ := closestSegmentPoints(p1, q1, p2, q2)

	sep := cb.Sub(ca)
	dist := sep.Len()
	total := ra + rb
	if dist > total {
		return false
	}

	d1, d2 := q1.Sub(p1), q2.Sub(p2)
	switch {
	case dist > 1e-9:
		out.Normal = sep.Mul(1 / dist)
	case d1.Cross(d2).LenSqr() > 1e-18:
		out.Normal = d1.Cross(d2).Normalize()
		if out.Normal.Dot(tb.Position.Sub(ta.Position)) < 0 {
			out.Normal = out.Normal.Mul(-1)
		}
	case d1.LenSqr() > 1e-18 || d2.LenSqr() > 1e-18:
		axis := d1
		if axis.LenSqr() < d2.LenSqr() {
			axis = d2
		}
		out.Normal = anyPerpendicular(axis)
	default:
		out.Normal = mgl64.Vec3{0, 1, 0}
	}

	la, lb := d1.Len(), d2.Len()
	if la > 1e-9 && lb > 1e-9 && d1.Cross(d2).Len() < parallelTolerance*la*lb {
		if parallelContacts(p1, d1, p2, q2, ra, rb, out) {
			return true
		}
	}

	out.add(cb.Sub(out.Normal.Mul(rb)), total-dist)
	return true
}

// parallelContacts clips capsule B's core against the extent of A's core
// and emits one contact per end of the shared interval.
func parallelContacts(p1, d1, p2, q2 mgl64.Vec3, ra, rb float64, out *ContactSet) bool {
	l := d1.LenSqr()
	s0 := p2.Sub(p1).Dot(d1) / l
	s1 := q2.Sub(p1).Dot(d1) / l
	lo := math.Max(0, math.Min(s0, s1))
	hi := math.Min(1, math.Max(s0, s1))
	if hi-lo < 1e-6 {
		return false
	}
	for _, s := range [2]float64{lo, hi} {
		onA := p1.Add(d1.Mul(s))
		onB := closestPointOnSegment(onA, p2, q2)
		depth := ra + rb - onB.Sub(onA).Dot(out.Normal)
		if depth < 0 {
			continue
		}
		out.add(onB.Sub(out.Normal.Mul(rb)), depth)
	}
	return len(out.Points) > 0
}

// sphereBox resolves a sphere against a box in the box frame.
func sphereBox(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool {
	r := a.(*geom.Sphere).Radius
	h := b.(*geom.Box).HalfExtents
	c := tb.InverseApply(ta.Position)

	var q mgl64.Vec3
	inside := true
	for i := 0; i < 3; i++ {
		q[i] = math.Max(-h[i], math.Min(h[i], c[i]))
		if q[i] != c[i] {
			inside = false
		}
	}

	if !inside {
		d := q.Sub(c)
		dist := d.Len()
		if dist > r {
			return false
		}
		if dist < 1e-12 {
			inside = true
		} else {
			out.Normal = tb.ApplyVector(d.Mul(1 / dist))
			out.add(tb.Apply(q), r-dist)
			return true
		}
	}

	// centre inside: push out through the nearest face
	axis := 0
	best := h[0] - math.Abs(c[0])
	for i := 1; i < 3; i++ {
		if gap := h[i] - math.Abs(c[i]); gap < best {
			axis, best = i, gap
		}
	}
	var face mgl64.Vec3
	face[axis] = 1
	if c[axis] < 0 {
		face[axis] = -1
	}
	onB := c
	onB[axis] = face[axis] * h[axis]
	out.Normal = tb.ApplyVector(face.Mul(-1))
	out.add(tb.Apply(onB), r+best)
	return true
}
