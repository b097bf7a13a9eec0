package narrowphase

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Point is one contact between shapes A and B. World points satisfy
// WorldA = WorldB + Normal*Depth; local points are in each shape's frame.
// A negative depth is a gap still inside the dispatcher margin.
type Point struct {
	WorldA, WorldB mgl64.Vec3
	LocalA, LocalB mgl64.Vec3
	Depth          float64
}

// ContactSet is the narrow-phase output for one shape pair. Normal is a
// world-space unit vector pointing from A towards B.
type ContactSet struct {
	Normal mgl64.Vec3
	Points []Point
}

func (c *ContactSet) reset() {
	c.Normal = mgl64.Vec3{}
	c.Points = c.Points[:0]
}

// add records a contact from the point on B and the depth along Normal.
func (c *ContactSet) add(onB mgl64.Vec3, depth float64) {
	c.Points = append(c.Points, Point{
		WorldA: onB.Add(c.Normal.Mul(depth)),
		WorldB: onB,
		Depth:  depth,
	})
}

func (c *ContactSet) flip() {
	c.Normal = c.Normal.Mul(-1)
	for i := range c.Points {
		p := &c.Points[i]
		p.WorldA, p.WorldB = p.WorldB, p.WorldA
		p.LocalA, p.LocalB = p.LocalB, p.LocalA
	}
}

// MaxDepth returns the deepest penetration, or 0 with no points.
func (c *ContactSet) MaxDepth() float64 {
	d := 0.0
	for _, p := range c.Points {
		d = math.Max(d, p.Depth)
	}
	return d
}

func (c *ContactSet) valid() bool {
	if !finiteVec(c.Normal) || math.Abs(c.Normal.Len()-1) > 1e-6 {
		return false
	}
	for _, p := range c.Points {
		if !finiteVec(p.WorldA) || !finiteVec(p.WorldB) || math.IsNaN(p.Depth) || math.IsInf(p.Depth, 0) {
			return false
		}
	}
	return true
}

func finiteVec(v mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

// anyPerpendicular returns a unit vector orthogonal to d.
func anyPerpendicular(d mgl64.Vec3) mgl64.Vec3 {
	if d.LenSqr() < 1e-24 {
		return mgl64.Vec3{0, 1, 0}
	}
	d = d.Normalize()
	axis := mgl64.Vec3{1, 0, 0}
	if math.Abs(d[0]) > 0.57735 {
		axis = mgl64.Vec3{0, 1, 0}
	}
	return d.Cross(axis).Normalize()
}
