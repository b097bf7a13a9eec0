package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

type satAxis struct {
	normal  mgl64.Vec3
	overlap float64
	i, j    int
}

// boxBox runs the separating axis test over the 15 candidate axes of two
// boxes. Face axes produce a clipped manifold; edge axes a single point.
// Axes separated by no more than the margin do not reject the pair.
func (d *Dispatcher) boxBox(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool {
	ha := a.(*geom.Box).HalfExtents
	hb := b.(*geom.Box).HalfExtents
	ra, rb := ta.Rotation(), tb.Rotation()
	ua := [3]mgl64.Vec3{ra.Col(0), ra.Col(1), ra.Col(2)}
	ub := [3]mgl64.Vec3{rb.Col(0), rb.Col(1), rb.Col(2)}
	delta := tb.Position.Sub(ta.Position)

	project := func(axis mgl64.Vec3) (satAxis, bool) {
		pa := ha[0]*math.Abs(axis.Dot(ua[0])) + ha[1]*math.Abs(axis.Dot(ua[1])) + ha[2]*math.Abs(axis.Dot(ua[2]))
		pb := hb[0]*math.Abs(axis.Dot(ub[0])) + hb[1]*math.Abs(axis.Dot(ub[1])) + hb[2]*math.Abs(axis.Dot(ub[2]))
		dist := delta.Dot(axis)
		overlap := pa + pb - math.Abs(dist)
		if overlap < -d.margin {
			return satAxis{}, false
		}
		if dist < 0 {
			axis = axis.Mul(-1)
		}
		return satAxis{normal: axis, overlap: overlap}, true
	}

	inf := math.Inf(1)
	faceA := satAxis{overlap: inf}
	faceB := satAxis{overlap: inf}
	edge := satAxis{overlap: inf}

	for i := 0; i < 3; i++ {
		s, ok := project(ua[i])
		if !ok {
			return false
		}
		if s.overlap < faceA.overlap {
			s.i = i
			faceA = s
		}
	}
	for j := 0; j < 3; j++ {
		s, ok := project(ub[j])
		if !ok {
			return false
		}
		if s.overlap < faceB.overlap {
			s.j = j
			faceB = s
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axis := ua[i].Cross(ub[j])
			l := axis.Len()
			if l < 1e-6 {
				continue
			}
			s, ok := project(axis.Mul(1 / l))
			if !ok {
				return false
			}
			if s.overlap < edge.overlap {
				s.i, s.j = i, j
				edge = s
			}
		}
	}

	boxA, boxB := a.(*geom.Box), b.(*geom.Box)
	best := faceA
	if faceB.overlap < 0.98*faceA.overlap-0.001 {
		best = faceB
	}
	if edge.overlap < 0.95*best.overlap-0.01 {
		return edgeContact(ta, tb, ha, hb, ua, ub, edge, out)
	}
	return faceContacts(boxA, ta, boxB, tb, best.normal, d.margin, out)
}

// edgeContact places one contact midway between the two supporting edges.
func edgeContact(ta, tb geom.Transform, ha, hb mgl64.Vec3, ua, ub [3]mgl64.Vec3, axis satAxis, out *ContactSet) bool {
	n := axis.normal
	pa := ta.Position
	for k := 0; k < 3; k++ {
		if k == axis.i {
			continue
		}
		pa = pa.Add(ua[k].Mul(signOf(n.Dot(ua[k])) * ha[k]))
	}
	pb := tb.Position
	for k := 0; k < 3; k++ {
		if k == axis.j {
			continue
		}
		pb = pb.Sub(ub[k].Mul(signOf(n.Dot(ub[k])) * hb[k]))
	}
	ea := ua[axis.i].Mul(ha[axis.i])
	eb := ub[axis.j].Mul(hb[axis.j])
	ca, cb, _, _ := closestSegmentPoints(pa.Sub(ea), pa.Add(ea), pb.Sub(eb), pb.Add(eb))

	mid := ca.Add(cb).Mul(0.5)
	out.Normal = n
	out.add(mid.Sub(n.Mul(axis.overlap/2)), axis.overlap)
	return true
}

func signOf(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
