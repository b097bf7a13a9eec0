package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box in world coordinates.
type AABB struct {
	Min, Max mgl64.Vec3
}

func NewAABB(min, max mgl64.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB is the identity for Merge.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func (a AABB) Overlaps(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min[0] <= b.Min[0] && a.Min[1] <= b.Min[1] && a.Min[2] <= b.Min[2] &&
		b.Max[0] <= a.Max[0] && b.Max[1] <= a.Max[1] && b.Max[2] <= a.Max[2]
}

func (a AABB) ContainsPoint(p mgl64.Vec3) bool {
	return p[0] >= a.Min[0] && p[0] <= a.Max[0] &&
		p[1] >= a.Min[1] && p[1] <= a.Max[1] &&
		p[2] >= a.Min[2] && p[2] <= a.Max[2]
}

func (a AABB) Merge(b AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], b.Min[0]), math.Min(a.Min[1], b.Min[1]), math.Min(a.Min[2], b.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], b.Max[0]), math.Max(a.Max[1], b.Max[1]), math.Max(a.Max[2], b.Max[2])},
	}
}

// Inflate grows the box by r on every side.
func (a AABB) Inflate(r float64) AABB {
	d := mgl64.Vec3{r, r, r}
	return AABB{Min: a.Min.Sub(d), Max: a.Max.Add(d)}
}

// Extend stretches the box along d, growing only the side d points to.
func (a AABB) Extend(d mgl64.Vec3) AABB {
	out := a
	for i := 0; i < 3; i++ {
		if d[i] < 0 {
			out.Min[i] += d[i]
		} else {
			out.Max[i] += d[i]
		}
	}
	return out
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) HalfExtents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// SurfaceArea is the insertion cost metric used by the dynamic tree.
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

func (a AABB) IsValid() bool {
	for i := 0; i < 3; i++ {
		if !finite(a.Min[i]) || !finite(a.Max[i]) || a.Min[i] > a.Max[i] {
			return false
		}
	}
	return true
}

// Transformed returns the world box enclosing local box a placed by t.
func (a AABB) Transformed(t Transform) AABB {
	c := t.Apply(a.Center())
	h := a.HalfExtents()
	r := t.Rotation()
	var e mgl64.Vec3
	for row := 0; row < 3; row++ {
		e[row] = math.Abs(r.At(row, 0))*h[0] + math.Abs(r.At(row, 1))*h[1] + math.Abs(r.At(row, 2))*h[2]
	}
	return AABB{Min: c.Sub(e), Max: c.Add(e)}
}

// RayIntersect clips the segment from + s*(to-from), s in [0, maxFraction],
// against the box and reports the entry fraction.
func (a AABB) RayIntersect(from, to mgl64.Vec3, maxFraction float64) (float64, bool) {
	d := to.Sub(from)
	tmin, tmax := 0.0, maxFraction
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if from[i] < a.Min[i] || from[i] > a.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (a.Min[i] - from[i]) * inv
		t2 := (a.Max[i] - from[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
