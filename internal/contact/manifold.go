package contact

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
)

// MaxPoints is the largest manifold the manager keeps.
const MaxPoints = 4

// Key identifies a shape pair; A holds the smaller proxy id.
type Key struct {
	A, B body.ProxyID
}

func MakeKey(a, b body.ProxyID) Key {
	if a > b {
		a, b = b, a
	}
	return Key{A: a, B: b}
}

func (k Key) Less(o Key) bool {
	if k.A != o.A {
		return k.A < o.A
	}
	return k.B < o.B
}

// Point is a persistent contact point. Anchors are in body-local frames so
// they follow the bodies between steps.
type Point struct {
	LocalA, LocalB mgl64.Vec3
	Depth          float64

	NormalImpulse  float64
	TangentImpulse [2]float64

	// Persisted is set when the point matched one from the previous step.
	Persisted bool
}

// Manifold holds up to MaxPoints contacts between two shapes sharing one
// world normal from A to B.
type Manifold struct {
	Key    Key
	ProxyA *body.ProxyShape
	ProxyB *body.ProxyShape
	Normal mgl64.Vec3
	Points []Point

	Friction    float64
	Restitution float64

	touched bool
}

func (m *Manifold) BodyA() *body.Body { return m.ProxyA.Body() }

func (m *Manifold) BodyB() *body.Body { return m.ProxyB.Body() }

// Bodies returns both bodies, A first.
func (m *Manifold) Bodies() (*body.Body, *body.Body) {
	return m.ProxyA.Body(), m.ProxyB.Body()
}

// IsTouching reports whether the manifold holds any point.
func (m *Manifold) IsTouching() bool { return len(m.Points) > 0 }

// MaxDepth returns the deepest point's penetration.
func (m *Manifold) MaxDepth() float64 {
	d := 0.0
	for _, p := range m.Points {
		d = max(d, p.Depth)
	}
	return d
}

// WorldPoints returns the contact points on A and B in world space.
func (m *Manifold) WorldPoints(i int) (mgl64.Vec3, mgl64.Vec3) {
	p := m.Points[i]
	return m.BodyA().WorldPoint(p.LocalA), m.BodyB().WorldPoint(p.LocalB)
}
