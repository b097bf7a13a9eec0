package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Capsule is a segment along the local Y axis, from -HalfHeight to
// +HalfHeight, swept by Radius.
type Capsule struct {
	Radius     float64
	HalfHeight float64
}

func NewCapsule(radius, halfHeight float64) (*Capsule, error) {
	if !positive(radius, halfHeight) {
		return nil, ErrInvalidDimensions
	}
	return &Capsule{Radius: radius, HalfHeight: halfHeight}, nil
}

func (c *Capsule) Type() ShapeType { return CapsuleType }

// Segment returns the local endpoints of the core segment.
func (c *Capsule) Segment() (mgl64.Vec3, mgl64.Vec3) {
	return mgl64.Vec3{0, -c.HalfHeight, 0}, mgl64.Vec3{0, c.HalfHeight, 0}
}

func (c *Capsule) Support(dir mgl64.Vec3) mgl64.Vec3 {
	core := mgl64.Vec3{0, c.HalfHeight, 0}
	if dir[1] < 0 {
		core[1] = -c.HalfHeight
	}
	if dir.LenSqr() < 1e-24 {
		return core.Add(mgl64.Vec3{0, c.Radius, 0})
	}
	return core.Add(dir.Normalize().Mul(c.Radius))
}

func (c *Capsule) LocalBounds() AABB {
	r, h := c.Radius, c.HalfHeight+c.Radius
	return AABB{Min: mgl64.Vec3{-r, -h, -r}, Max: mgl64.Vec3{r, h, r}}
}

func (c *Capsule) Volume() float64 {
	r := c.Radius
	return math.Pi*r*r*2*c.HalfHeight + 4.0/3.0*math.Pi*r*r*r
}

func (c *Capsule) Inertia(mass float64) mgl64.Vec3 {
	r, hh := c.Radius, c.HalfHeight
	height := 2 * hh
	cylVol := math.Pi * r * r * height
	sphVol := 4.0 / 3.0 * math.Pi * r * r * r
	mc := mass * cylVol / (cylVol + sphVol)
	ms := mass - mc

	axial := mc*r*r/2 + ms*0.4*r*r
	side := mc*(r*r/4+height*height/12) + ms*(0.4*r*r+hh*hh+0.375*height*r)
	return mgl64.Vec3{side, axial, side}
}

func (c *Capsule) ContainsPoint(p mgl64.Vec3) bool {
	y := math.Max(-c.HalfHeight, math.Min(c.HalfHeight, p[1]))
	return p.Sub(mgl64.Vec3{0, y, 0}).LenSqr() <= c.Radius*c.Radius
}

func (c *Capsule) Raycast(from, to mgl64.Vec3, maxFraction float64) (RaycastHit, bool) {
	if c.ContainsPoint(from) {
		return RaycastHit{}, false
	}
	d := to.Sub(from)
	r, h := c.Radius, c.HalfHeight

	best := math.Inf(1)
	var normal mgl64.Vec3

	a := d[0]*d[0] + d[2]*d[2]
	if a > 1e-24 {
		b := from[0]*d[0] + from[2]*d[2]
		cc := from[0]*from[0] + from[2]*from[2] - r*r
		if disc := b*b - a*cc; disc >= 0 {
			f := (-b - math.Sqrt(disc)) / a
			y := from[1] + f*d[1]
			if f >= 0 && f <= maxFraction && math.Abs(y) <= h {
				p := from.Add(d.Mul(f))
				best = f
				normal = mgl64.Vec3{p[0], 0, p[2]}.Mul(1 / r)
			}
		}
	}

	for _, sign := range [2]float64{1, -1} {
		center := mgl64.Vec3{0, sign * h, 0}
		f, ok := raySphere(center, r, from, d, maxFraction)
		if !ok || f >= best {
			continue
		}
		p := from.Add(d.Mul(f))
		if sign*p[1] < h {
			continue
		}
		best = f
		normal = p.Sub(center).Mul(1 / r)
	}

	if math.IsInf(best, 1) {
		return RaycastHit{}, false
	}
	return RaycastHit{Fraction: best, Point: from.Add(d.Mul(best)), Normal: normal}, true
}
