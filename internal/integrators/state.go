package integrators

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
)

// State is the motion state of one body while its island is solved.
// Static and kinematic bodies carry zero inverse mass.
type State struct {
	Body *body.Body

	Position    mgl64.Vec3
	Orientation mgl64.Quat
	V           mgl64.Vec3
	W           mgl64.Vec3

	InvMass         float64
	InvInertiaLocal mgl64.Mat3
	InvInertia      mgl64.Mat3
}

// Load copies the body's motion state.
func (s *State) Load(b *body.Body) {
	t := b.Transform()
	*s = State{
		Body:            b,
		Position:        t.Position,
		Orientation:     t.Orientation,
		V:               b.LinearVelocity(),
		W:               b.AngularVelocity(),
		InvMass:         b.InvMass(),
		InvInertiaLocal: b.InvInertiaLocal(),
		InvInertia:      b.InvInertiaWorld(),
	}
}

// Store writes the state back to its body.
func (s *State) Store() {
	s.Body.SetTransform(geom.Transform{Position: s.Position, Orientation: s.Orientation})
	s.Body.SetLinearVelocity(s.V)
	s.Body.SetAngularVelocity(s.W)
}

func (s *State) Transform() geom.Transform {
	return geom.Transform{Position: s.Position, Orientation: s.Orientation}
}

// IsDynamic reports whether impulses move this state.
func (s *State) IsDynamic() bool { return s.InvMass > 0 }

// ApplyImpulse adds j at arm r from the centre of mass.
func (s *State) ApplyImpulse(j, r mgl64.Vec3) {
	if s.InvMass == 0 {
		return
	}
	s.V = s.V.Add(j.Mul(s.InvMass))
	s.W = s.W.Add(s.InvInertia.Mul3x1(r.Cross(j)))
}

// VelocityAt returns the velocity of the point at arm r.
func (s *State) VelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return s.V.Add(s.W.Cross(r))
}

// UpdateInertia recomputes the world inverse inertia from the orientation.
func (s *State) UpdateInertia() {
	r := s.Orientation.Mat4().Mat3()
	s.InvInertia = r.Mul3(s.InvInertiaLocal).Mul3(r.Transpose())
}
