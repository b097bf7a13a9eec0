package integrators

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/geom"
)

// Integrator advances body states in two halves around the velocity solve.
type Integrator interface {
	Velocities(s *State, gravity mgl64.Vec3, dt float64)
	Positions(s *State, dt float64)
}

// SemiImplicit is symplectic Euler: velocities from forces first, then
// positions from the new velocities.
type SemiImplicit struct{}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

// Velocities applies gravity, accumulated force and torque, and damping.
// Bodies without mass are left alone.
func (e *SemiImplicit) Velocities(s *State, gravity mgl64.Vec3, dt float64) {
	if !s.IsDynamic() {
		return
	}
	b := s.Body
	acc := gravity.Mul(b.GravityScale()).Add(b.Force().Mul(s.InvMass))
	s.V = s.V.Add(acc.Mul(dt))
	s.W = s.W.Add(s.InvInertia.Mul3x1(b.Torque()).Mul(dt))

	s.V = s.V.Mul(1 / (1 + dt*b.LinearDamping()))
	s.W = s.W.Mul(1 / (1 + dt*b.AngularDamping()))
}

// Positions moves the state along its current velocities.
func (e *SemiImplicit) Positions(s *State, dt float64) {
	s.Position = s.Position.Add(s.V.Mul(dt))
	if s.W.LenSqr() > 0 {
		s.Orientation = geom.IntegrateOrientation(s.Orientation, s.W, dt)
		s.UpdateInertia()
	}
}
