package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	epaMaxIterations = 64
	epaTolerance     = 1e-7
)

type epaFace struct {
	i, j, k int
	normal  mgl64.Vec3
	dist    float64
}

type epaEdge struct {
	a, b int
}

type epaResult struct {
	normal mgl64.Vec3
	depth  float64
	pointA mgl64.Vec3
	pointB mgl64.Vec3
}

// epa expands a tetrahedron enclosing the origin until it reaches the face
// of the Minkowski difference nearest the origin. The normal points from A
// towards B and pointA - pointB = normal*depth.
func epa(s simplex, sa, sb support) (epaResult, bool) {
	if s.n != 4 {
		return epaResult{}, false
	}
	verts := make([]vertex, 0, 32)
	verts = append(verts, s.v[:4]...)

	centroid := verts[0].w.Add(verts[1].w).Add(verts[2].w).Add(verts[3].w).Mul(0.25)
	faces := make([]epaFace, 0, 32)
	for _, f := range [4][3]int{{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2}} {
		face, ok := makeFace(verts, f[0], f[1], f[2], centroid)
		if !ok {
			return epaResult{}, false
		}
		faces = append(faces, face)
	}

	var best epaFace
	for iter := 0; ; iter++ {
		if len(faces) == 0 {
			return epaResult{}, false
		}
		closest := 0
		for i := 1; i < len(faces); i++ {
			if faces[i].dist < faces[closest].dist {
				closest = i
			}
		}
		best = faces[closest]
		if iter >= epaMaxIterations {
			break
		}

		w := minkowski(sa, sb, best.normal)
		if w.w.Dot(best.normal)-best.dist < epaTolerance*math.Max(1, best.dist) {
			break
		}

		idx := len(verts)
		verts = append(verts, w)

		var horizon []epaEdge
		kept := faces[:0]
		for _, f := range faces {
			if f.normal.Dot(w.w.Sub(verts[f.i].w)) > 1e-12 {
				horizon = addHorizonEdge(horizon, f.i, f.j)
				horizon = addHorizonEdge(horizon, f.j, f.k)
				horizon = addHorizonEdge(horizon, f.k, f.i)
				continue
			}
			kept = append(kept, f)
		}
		faces = kept
		if len(horizon) == 0 {
			break
		}
		for _, e := range horizon {
			face, ok := makeFace(verts, e.a, e.b, idx, centroid)
			if !ok {
				continue
			}
			faces = append(faces, face)
		}
	}

	a, b, c := verts[best.i], verts[best.j], verts[best.k]
	u, v, w := barycentric(best.normal.Mul(best.dist), a.w, b.w, c.w)
	res := epaResult{
		normal: best.normal,
		depth:  best.dist,
		pointA: a.a.Mul(u).Add(b.a.Mul(v)).Add(c.a.Mul(w)),
		pointB: a.b.Mul(u).Add(b.b.Mul(v)).Add(c.b.Mul(w)),
	}
	if !finiteVec(res.normal) || !finiteVec(res.pointA) || !finiteVec(res.pointB) {
		return epaResult{}, false
	}
	return res, true
}

// makeFace orients triangle ijk so its normal points away from the
// interior point.
func makeFace(verts []vertex, i, j, k int, interior mgl64.Vec3) (epaFace, bool) {
	n := verts[j].w.Sub(verts[i].w).Cross(verts[k].w.Sub(verts[i].w))
	l := n.Len()
	if l < 1e-12 {
		return epaFace{}, false
	}
	n = n.Mul(1 / l)
	if n.Dot(verts[i].w.Sub(interior)) < 0 {
		n = n.Mul(-1)
		j, k = k, j
	}
	return epaFace{i: i, j: j, k: k, normal: n, dist: n.Dot(verts[i].w)}, true
}

// addHorizonEdge keeps edges seen once; an edge shared by two visible
// faces arrives reversed and cancels.
func addHorizonEdge(edges []epaEdge, a, b int) []epaEdge {
	for i, e := range edges {
		if e.a == b && e.b == a {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return append(edges, epaEdge{a: a, b: b})
}

// barycentric returns the weights of p projected onto triangle abc.
func barycentric(p, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0, v1, v2 := b.Sub(a), c.Sub(a), p.Sub(a)
	d00, d01, d11 := v0.Dot(v0), v0.Dot(v1), v1.Dot(v1)
	d20, d21 := v2.Dot(v0), v2.Dot(v1)
	den := d00*d11 - d01*d01
	if math.Abs(den) < 1e-20 {
		return 1, 0, 0
	}
	v := (d11*d20 - d01*d21) / den
	w := (d00*d21 - d01*d20) / den
	return 1 - v - w, v, w
}

// penetration runs EPA on an overlapping GJK result.
func penetration(res gjkResult, sa, sb support) (epaResult, bool) {
	s := res.simplex
	if !expandSimplex(&s, sa, sb) {
		return epaResult{}, false
	}
	return epa(s, sa, sb)
}
