package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is centred on its local origin.
type Box struct {
	HalfExtents mgl64.Vec3
}

func NewBox(hx, hy, hz float64) (*Box, error) {
	if !positive(hx, hy, hz) {
		return nil, ErrInvalidDimensions
	}
	return &Box{HalfExtents: mgl64.Vec3{hx, hy, hz}}, nil
}

func (b *Box) Type() ShapeType { return BoxType }

func (b *Box) Support(dir mgl64.Vec3) mgl64.Vec3 {
	h := b.HalfExtents
	var p mgl64.Vec3
	for i := 0; i < 3; i++ {
		if dir[i] < 0 {
			p[i] = -h[i]
		} else {
			p[i] = h[i]
		}
	}
	return p
}

func (b *Box) LocalBounds() AABB {
	return AABB{Min: b.HalfExtents.Mul(-1), Max: b.HalfExtents}
}

func (b *Box) Volume() float64 {
	h := b.HalfExtents
	return 8 * h[0] * h[1] * h[2]
}

func (b *Box) Inertia(mass float64) mgl64.Vec3 {
	x2 := b.HalfExtents[0] * b.HalfExtents[0]
	y2 := b.HalfExtents[1] * b.HalfExtents[1]
	z2 := b.HalfExtents[2] * b.HalfExtents[2]
	k := mass / 3
	return mgl64.Vec3{k * (y2 + z2), k * (x2 + z2), k * (x2 + y2)}
}

func (b *Box) ContainsPoint(p mgl64.Vec3) bool {
	return b.LocalBounds().ContainsPoint(p)
}

// Face returns the four corners of the face most aligned with dir.
func (b *Box) Face(dir mgl64.Vec3) ([]mgl64.Vec3, mgl64.Vec3) {
	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(dir[i]) > math.Abs(dir[axis]) {
			axis = i
		}
	}
	s := 1.0
	if dir[axis] < 0 {
		s = -1
	}
	j, k := (axis+1)%3, (axis+2)%3
	h := b.HalfExtents

	var n mgl64.Vec3
	n[axis] = s

	face := make([]mgl64.Vec3, 4)
	signs := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, sg := range signs {
		var v mgl64.Vec3
		v[axis] = s * h[axis]
		v[j] = sg[0] * h[j]
		v[k] = sg[1] * h[k]
		face[i] = v
	}
	return face, n
}

func (b *Box) Raycast(from, to mgl64.Vec3, maxFraction float64) (RaycastHit, bool) {
	if b.ContainsPoint(from) {
		return RaycastHit{}, false
	}
	d := to.Sub(from)
	h := b.HalfExtents
	tmin, tmax := 0.0, maxFraction
	var normal mgl64.Vec3
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if from[i] < -h[i] || from[i] > h[i] {
				return RaycastHit{}, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (-h[i] - from[i]) * inv
		t2 := (h[i] - from[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin = t1
			normal = mgl64.Vec3{}
			normal[i] = s
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return RaycastHit{}, false
		}
	}
	return RaycastHit{Fraction: tmin, Point: from.Add(d.Mul(tmin)), Normal: normal}, true
}
