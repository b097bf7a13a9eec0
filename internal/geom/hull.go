package geom

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

const hullEpsilon = 1e-7

// Plane holds the points x with Normal·x == Offset.
type Plane struct {
	Normal mgl64.Vec3
	Offset float64
}

func (p Plane) Distance(x mgl64.Vec3) float64 {
	return p.Normal.Dot(x) - p.Offset
}

// ConvexHull is a convex polytope given by its vertices. Faces and planes
// are derived once at construction.
type ConvexHull struct {
	vertices []mgl64.Vec3
	planes   []Plane
	faces    [][]int
	bounds   AABB
	volume   float64
}

// NewConvexHull builds the hull of points. Interior points are kept for
// support queries but never appear in a face.
func NewConvexHull(points []mgl64.Vec3) (*ConvexHull, error) {
	verts := dedupePoints(points)
	if len(verts) < 4 {
		return nil, ErrDegenerateHull
	}

	scale := 0.0
	bounds := EmptyAABB()
	for _, v := range verts {
		bounds = bounds.Merge(AABB{Min: v, Max: v})
	}
	scale = math.Max(1, bounds.HalfExtents().Len())
	tol := hullEpsilon * scale

	h := &ConvexHull{vertices: verts, bounds: bounds}
	n := len(verts)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				normal := verts[j].Sub(verts[i]).Cross(verts[k].Sub(verts[i]))
				if normal.Len() < tol {
					continue
				}
				normal = normal.Normalize()
				plane := Plane{Normal: normal, Offset: normal.Dot(verts[i])}
				above, below := false, false
				for _, v := range verts {
					d := plane.Distance(v)
					if d > tol {
						above = true
					} else if d < -tol {
						below = true
					}
				}
				switch {
				case above && below:
					continue
				case above:
					plane = Plane{Normal: normal.Mul(-1), Offset: -plane.Offset}
				case !below:
					// every point is on this plane
					return nil, ErrDegenerateHull
				}
				if !h.hasPlane(plane, tol) {
					h.planes = append(h.planes, plane)
				}
			}
		}
	}
	if len(h.planes) < 4 {
		return nil, ErrDegenerateHull
	}

	for _, p := range h.planes {
		h.faces = append(h.faces, orderFace(verts, p, tol))
	}
	h.volume = h.computeVolume()
	return h, nil
}

func (h *ConvexHull) hasPlane(p Plane, tol float64) bool {
	for _, q := range h.planes {
		if q.Normal.Dot(p.Normal) > 1-1e-9 && math.Abs(q.Offset-p.Offset) < tol {
			return true
		}
	}
	return false
}

func (h *ConvexHull) Type() ShapeType { return ConvexHullType }

func (h *ConvexHull) Vertices() []mgl64.Vec3 { return h.vertices }

func (h *ConvexHull) Planes() []Plane { return h.planes }

// Faces returns, per plane, the vertex indices of that face in winding order.
func (h *ConvexHull) Faces() [][]int { return h.faces }

// Support picks the first vertex with the greatest projection.
func (h *ConvexHull) Support(dir mgl64.Vec3) mgl64.Vec3 {
	best := 0
	bestDot := h.vertices[0].Dot(dir)
	for i := 1; i < len(h.vertices); i++ {
		if d := h.vertices[i].Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	return h.vertices[best]
}

func (h *ConvexHull) LocalBounds() AABB { return h.bounds }

func (h *ConvexHull) Volume() float64 { return h.volume }

// Inertia approximates the hull by its bounding box, shifted to the origin.
func (h *ConvexHull) Inertia(mass float64) mgl64.Vec3 {
	e := h.bounds.HalfExtents()
	c := h.bounds.Center()
	x2, y2, z2 := e[0]*e[0], e[1]*e[1], e[2]*e[2]
	k := mass / 3
	return mgl64.Vec3{
		k*(y2+z2) + mass*(c[1]*c[1]+c[2]*c[2]),
		k*(x2+z2) + mass*(c[0]*c[0]+c[2]*c[2]),
		k*(x2+y2) + mass*(c[0]*c[0]+c[1]*c[1]),
	}
}

func (h *ConvexHull) ContainsPoint(p mgl64.Vec3) bool {
	for _, pl := range h.planes {
		if pl.Distance(p) > hullEpsilon {
			return false
		}
	}
	return true
}

func (h *ConvexHull) Face(dir mgl64.Vec3) ([]mgl64.Vec3, mgl64.Vec3) {
	best := 0
	bestDot := h.planes[0].Normal.Dot(dir)
	for i := 1; i < len(h.planes); i++ {
		if d := h.planes[i].Normal.Dot(dir); d > bestDot {
			best, bestDot = i, d
		}
	}
	idx := h.faces[best]
	face := make([]mgl64.Vec3, len(idx))
	for i, v := range idx {
		face[i] = h.vertices[v]
	}
	return face, h.planes[best].Normal
}

func (h *ConvexHull) Raycast(from, to mgl64.Vec3, maxFraction float64) (RaycastHit, bool) {
	d := to.Sub(from)
	enter, exit := 0.0, maxFraction
	entered := false
	var normal mgl64.Vec3
	for _, pl := range h.planes {
		denom := pl.Normal.Dot(d)
		dist := pl.Distance(from)
		if math.Abs(denom) < 1e-12 {
			if dist > 0 {
				return RaycastHit{}, false
			}
			continue
		}
		t := -dist / denom
		if denom < 0 {
			if t > enter || !entered && t >= enter {
				enter = t
				normal = pl.Normal
				entered = true
			}
		} else if t < exit {
			exit = t
		}
		if enter > exit {
			return RaycastHit{}, false
		}
	}
	if !entered || h.ContainsPoint(from) {
		return RaycastHit{}, false
	}
	return RaycastHit{Fraction: enter, Point: from.Add(d.Mul(enter)), Normal: normal}, true
}

func (h *ConvexHull) computeVolume() float64 {
	c := h.bounds.Center()
	vol := 0.0
	for _, f := range h.faces {
		a := h.vertices[f[0]].Sub(c)
		for i := 1; i+1 < len(f); i++ {
			b := h.vertices[f[i]].Sub(c)
			d := h.vertices[f[i+1]].Sub(c)
			vol += math.Abs(a.Dot(b.Cross(d))) / 6
		}
	}
	return vol
}

func dedupePoints(points []mgl64.Vec3) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, len(points))
	for _, p := range points {
		dup := false
		for _, q := range out {
			if p.Sub(q).LenSqr() < hullEpsilon*hullEpsilon {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// orderFace returns the indices of the vertices lying on p, sorted
// counter-clockwise around the face centroid when viewed from outside.
func orderFace(verts []mgl64.Vec3, p Plane, tol float64) []int {
	var idx []int
	var centroid mgl64.Vec3
	for i, v := range verts {
		if math.Abs(p.Distance(v)) <= tol {
			idx = append(idx, i)
			centroid = centroid.Add(v)
		}
	}
	centroid = centroid.Mul(1 / float64(len(idx)))
	u, w := TangentBasis(p.Normal)
	angle := make(map[int]float64, len(idx))
	for _, i := range idx {
		r := verts[i].Sub(centroid)
		angle[i] = math.Atan2(r.Dot(w), r.Dot(u))
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return angle[idx[a]] < angle[idx[b]]
	})
	return idx
}
