package narrowphase

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// roundPolytope collides a sphere or capsule with a box or hull by running
// GJK on the round shape's core and inflating by its radius. Deep cores
// fall back to EPA.
func (d *Dispatcher) roundPolytope(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool {
	p, q, r := roundCore(a, ta)
	core := segmentSupport(p, q)
	poly := worldSupport(b, tb)

	res := gjk(core, poly, tb.Position.Sub(ta.Position))
	if res.overlap {
		pen, ok := penetration(res, core, poly)
		if !ok {
			d.stats.EPAFailed++
			return false
		}
		out.Normal = pen.normal
		out.add(pen.pointB, pen.depth+r)
		return true
	}
	if res.distance > r {
		return false
	}

	out.Normal = res.pointB.Sub(res.pointA).Mul(1 / res.distance)
	out.add(res.pointB, r-res.distance)

	if p == q {
		return true
	}
	// a capsule lying on a face touches along its length: add the ends
	for _, end := range [2]mgl64.Vec3{p, q} {
		er := gjk(segmentSupport(end, end), poly, out.Normal)
		if er.overlap || er.distance > r {
			continue
		}
		if er.pointA.Sub(res.pointA).LenSqr() < 1e-6 {
			continue
		}
		depth := r - er.pointB.Sub(end).Dot(out.Normal)
		if depth < 0 {
			continue
		}
		out.add(er.pointB, depth)
	}
	return true
}

// polytopes collides two boxes or hulls: GJK confirms overlap, EPA finds
// the normal and face clipping builds the manifold. Pairs closer than the
// margin are clipped along the closest-point direction instead.
func (d *Dispatcher) polytopes(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool {
	sa, sb := worldSupport(a, ta), worldSupport(b, tb)
	res := gjk(sa, sb, tb.Position.Sub(ta.Position))
	pa, okA := a.(geom.Polytope)
	pb, okB := b.(geom.Polytope)
	if !res.overlap {
		if res.distance > d.margin || res.distance < 1e-12 {
			return false
		}
		n := res.pointB.Sub(res.pointA).Mul(1 / res.distance)
		if okA && okB && faceContacts(pa, ta, pb, tb, n, d.margin, out) {
			return true
		}
		out.Points = out.Points[:0]
		out.Normal = n
		out.add(res.pointB, -res.distance)
		return true
	}
	pen, ok := penetration(res, sa, sb)
	if !ok {
		d.stats.EPAFailed++
		return false
	}
	if okA && okB && faceContacts(pa, ta, pb, tb, pen.normal, d.margin, out) {
		return true
	}
	out.Points = out.Points[:0]
	out.Normal = pen.normal
	out.add(pen.pointB, pen.depth)
	return true
}
