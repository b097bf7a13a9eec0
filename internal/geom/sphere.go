package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Sphere struct {
	Radius float64
}

func NewSphere(radius float64) (*Sphere, error) {
	if !positive(radius) {
		return nil, ErrInvalidDimensions
	}
	return &Sphere{Radius: radius}, nil
}

func (s *Sphere) Type() ShapeType { return SphereType }

func (s *Sphere) Support(dir mgl64.Vec3) mgl64.Vec3 {
	if dir.LenSqr() < 1e-24 {
		return mgl64.Vec3{0, s.Radius, 0}
	}
	return dir.Normalize().Mul(s.Radius)
}

func (s *Sphere) LocalBounds() AABB {
	r := s.Radius
	return AABB{Min: mgl64.Vec3{-r, -r, -r}, Max: mgl64.Vec3{r, r, r}}
}

func (s *Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) Inertia(mass float64) mgl64.Vec3 {
	i := 0.4 * mass * s.Radius * s.Radius
	return mgl64.Vec3{i, i, i}
}

func (s *Sphere) ContainsPoint(p mgl64.Vec3) bool {
	return p.LenSqr() <= s.Radius*s.Radius
}

func (s *Sphere) Raycast(from, to mgl64.Vec3, maxFraction float64) (RaycastHit, bool) {
	if s.ContainsPoint(from) {
		return RaycastHit{}, false
	}
	d := to.Sub(from)
	f, ok := raySphere(mgl64.Vec3{}, s.Radius, from, d, maxFraction)
	if !ok {
		return RaycastHit{}, false
	}
	p := from.Add(d.Mul(f))
	return RaycastHit{Fraction: f, Point: p, Normal: p.Mul(1 / s.Radius)}, true
}

// raySphere returns the first fraction at which from + s*d enters the
// sphere at center c.
func raySphere(c mgl64.Vec3, r float64, from, d mgl64.Vec3, maxFraction float64) (float64, bool) {
	m := from.Sub(c)
	a := d.Dot(d)
	if a < 1e-24 {
		return 0, false
	}
	b := m.Dot(d)
	cc := m.Dot(m) - r*r
	disc := b*b - a*cc
	if disc < 0 {
		return 0, false
	}
	f := (-b - math.Sqrt(disc)) / a
	if f < 0 || f > maxFraction {
		return 0, false
	}
	return f, true
}
