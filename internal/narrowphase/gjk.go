package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

const (
	gjkMaxIterations = 64
	gjkRelTolerance  = 1e-10
	gjkAbsTolerance  = 1e-14
)

// support maps a world direction to the farthest world point of a set.
type support func(dir mgl64.Vec3) mgl64.Vec3

func worldSupport(s geom.Shape, t geom.Transform) support {
	return func(dir mgl64.Vec3) mgl64.Vec3 {
		return t.Apply(s.Support(t.InverseApplyVector(dir)))
	}
}

// segmentSupport is the support of the segment p-q.
func segmentSupport(p, q mgl64.Vec3) support {
	return func(dir mgl64.Vec3) mgl64.Vec3 {
		if q.Dot(dir) > p.Dot(dir) {
			return q
		}
		return p
	}
}

// vertex is a point of the Minkowski difference A-B with its sources.
type vertex struct {
	w, a, b mgl64.Vec3
}

func minkowski(sa, sb support, dir mgl64.Vec3) vertex {
	a := sa(dir)
	b := sb(dir.Mul(-1))
	return vertex{w: a.Sub(b), a: a, b: b}
}

type simplex struct {
	v      [4]vertex
	lambda [4]float64
	n      int
}

func (s *simplex) set(vs ...vertex) {
	s.n = copy(s.v[:], vs)
}

func (s *simplex) closest() mgl64.Vec3 {
	var p mgl64.Vec3
	for i := 0; i < s.n; i++ {
		p = p.Add(s.v[i].w.Mul(s.lambda[i]))
	}
	return p
}

func (s *simplex) witnesses() (mgl64.Vec3, mgl64.Vec3) {
	var pa, pb mgl64.Vec3
	for i := 0; i < s.n; i++ {
		pa = pa.Add(s.v[i].a.Mul(s.lambda[i]))
		pb = pb.Add(s.v[i].b.Mul(s.lambda[i]))
	}
	return pa, pb
}

type gjkResult struct {
	overlap  bool
	distance float64
	pointA   mgl64.Vec3
	pointB   mgl64.Vec3
	simplex  simplex
}

// gjk finds the distance between two convex sets, or reports overlap. On
// overlap the simplex holds the last iterate for EPA to expand.
func gjk(sa, sb support, guess mgl64.Vec3) gjkResult {
	if guess.LenSqr() < 1e-20 {
		guess = mgl64.Vec3{1, 0, 0}
	}
	var res gjkResult
	s := &res.simplex
	s.set(minkowski(sa, sb, guess))
	s.lambda[0] = 1
	v := s.v[0].w

	for iter := 0; iter < gjkMaxIterations; iter++ {
		vv := v.LenSqr()
		if vv <= gjkAbsTolerance {
			res.overlap = true
			return res
		}

		w := minkowski(sa, sb, v.Mul(-1))
		if vv-v.Dot(w.w) <= gjkRelTolerance*vv {
			break
		}
		duplicate := false
		for i := 0; i < s.n; i++ {
			if s.v[i].w.Sub(w.w).LenSqr() < gjkAbsTolerance {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		s.v[s.n] = w
		s.n++
		if inside := solveSimplex(s); inside {
			res.overlap = true
			return res
		}
		next := s.closest()
		progress := next.LenSqr() < vv
		v = next
		if !progress {
			// numerical floor reached
			break
		}
	}

	res.distance = v.Len()
	res.pointA, res.pointB = s.witnesses()
	if res.distance <= math.Sqrt(gjkAbsTolerance) {
		res.overlap = true
	}
	return res
}

// solveSimplex reduces s to the smallest sub-simplex supporting the point
// closest to the origin and sets its barycentric weights. It reports true
// when the origin lies inside a tetrahedron.
func solveSimplex(s *simplex) bool {
	switch s.n {
	case 1:
		s.lambda[0] = 1
	case 2:
		solveSegment(s, s.v[0], s.v[1])
	case 3:
		solveTriangle(s, s.v[0], s.v[1], s.v[2])
	case 4:
		return solveTetrahedron(s)
	}
	return false
}

func solveSegment(s *simplex, a, b vertex) {
	ab := b.w.Sub(a.w)
	den := ab.Dot(ab)
	if den < gjkAbsTolerance {
		s.set(a)
		s.lambda[0] = 1
		return
	}
	t := -a.w.Dot(ab) / den
	switch {
	case t <= 0:
		s.set(a)
		s.lambda[0] = 1
	case t >= 1:
		s.set(b)
		s.lambda[0] = 1
	default:
		s.set(a, b)
		s.lambda[0], s.lambda[1] = 1-t, t
	}
}

// solveTriangle follows the Voronoi region walk of the triangle abc.
func solveTriangle(s *simplex, a, b, c vertex) {
	ab := b.w.Sub(a.w)
	ac := c.w.Sub(a.w)
	ap := a.w.Mul(-1)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		s.set(a)
		s.lambda[0] = 1
		return
	}

	bp := b.w.Mul(-1)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		s.set(b)
		s.lambda[0] = 1
		return
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		s.set(a, b)
		s.lambda[0], s.lambda[1] = 1-t, t
		return
	}

	cp := c.w.Mul(-1)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		s.set(c)
		s.lambda[0] = 1
		return
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		s.set(a, c)
		s.lambda[0], s.lambda[1] = 1-t, t
		return
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		s.set(b, c)
		s.lambda[0], s.lambda[1] = 1-t, t
		return
	}

	sum := va + vb + vc
	if math.Abs(sum) < gjkAbsTolerance {
		// collinear triangle: fall back to its best edge
		bestSegment(s, a, b, c)
		return
	}
	v := vb / sum
	w := vc / sum
	s.set(a, b, c)
	s.lambda[0], s.lambda[1], s.lambda[2] = 1-v-w, v, w
}

func bestSegment(s *simplex, a, b, c vertex) {
	best := math.Inf(1)
	var keep simplex
	for _, e := range [3][2]vertex{{a, b}, {b, c}, {a, c}} {
		var t simplex
		solveSegment(&t, e[0], e[1])
		if d := t.closest().LenSqr(); d < best {
			best = d
			keep = t
		}
	}
	*s = keep
}

// solveTetrahedron tests each face whose outer side holds the origin and
// keeps the closest face result.
func solveTetrahedron(s *simplex) bool {
	a, b, c, d := s.v[0], s.v[1], s.v[2], s.v[3]
	faces := [4][4]vertex{
		{a, b, c, d},
		{a, c, d, b},
		{a, d, b, c},
		{b, d, c, a},
	}
	best := math.Inf(1)
	var keep simplex
	outside := false
	for _, f := range faces {
		if !originOutside(f[0].w, f[1].w, f[2].w, f[3].w) {
			continue
		}
		outside = true
		var t simplex
		solveTriangle(&t, f[0], f[1], f[2])
		if dist := t.closest().LenSqr(); dist < best {
			best = dist
			keep = t
		}
	}
	if !outside {
		return true
	}
	*s = keep
	return false
}

// originOutside reports whether the origin and d lie on opposite sides of
// plane abc. A degenerate reference counts as outside.
func originOutside(a, b, c, d mgl64.Vec3) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	signO := a.Mul(-1).Dot(n)
	signD := d.Sub(a).Dot(n)
	if signD*signD < 1e-20 {
		return true
	}
	return signO*signD < 0
}

// expandSimplex grows an overlapping simplex into a tetrahedron that
// encloses the origin, as EPA requires. It reports false when the
// Minkowski difference is flat.
func expandSimplex(s *simplex, sa, sb support) bool {
	axes := [6]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

	if s.n == 1 {
		for _, d := range axes {
			w := minkowski(sa, sb, d)
			if w.w.Sub(s.v[0].w).LenSqr() > 1e-12 {
				s.v[1] = w
				s.n = 2
				break
			}
		}
		if s.n < 2 {
			return false
		}
	}

	if s.n == 2 {
		line := s.v[1].w.Sub(s.v[0].w)
		dir := anyPerpendicular(line)
		rot := mgl64.QuatRotate(math.Pi/3, line.Normalize())
		for i := 0; i < 6; i++ {
			w := minkowski(sa, sb, dir)
			if w.w.Sub(s.v[0].w).Cross(line).LenSqr() > 1e-12 {
				s.v[2] = w
				s.n = 3
				break
			}
			dir = rot.Rotate(dir)
		}
		if s.n < 3 {
			return false
		}
	}

	if s.n == 3 {
		n := s.v[1].w.Sub(s.v[0].w).Cross(s.v[2].w.Sub(s.v[0].w))
		if n.LenSqr() < 1e-20 {
			return false
		}
		for _, d := range [2]mgl64.Vec3{n, n.Mul(-1)} {
			w := minkowski(sa, sb, d)
			if math.Abs(w.w.Sub(s.v[0].w).Dot(n)) > 1e-9*n.Len() {
				s.v[3] = w
				s.n = 4
				break
			}
		}
		if s.n < 4 {
			return false
		}
	}
	return true
}
