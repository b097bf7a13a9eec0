package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/integrators"
)

// BallSocketJoint pins one point of body A to one point of body B while
// leaving rotation free.
type BallSocketJoint struct {
	bodyA, bodyB     *body.Body
	localA, localB   mgl64.Vec3
	collideConnected bool

	impulse mgl64.Vec3
}

// NewBallSocketJoint joins a and b at a world-space anchor.
func NewBallSocketJoint(a, b *body.Body, anchor mgl64.Vec3, collideConnected bool) *BallSocketJoint {
	return &BallSocketJoint{
		bodyA:            a,
		bodyB:            b,
		localA:           a.LocalPoint(anchor),
		localB:           b.LocalPoint(anchor),
		collideConnected: collideConnected,
	}
}

func (j *BallSocketJoint) Bodies() (*body.Body, *body.Body) { return j.bodyA, j.bodyB }

func (j *BallSocketJoint) CollideConnected() bool { return j.collideConnected }

// Impulse is the accumulated linear impulse from the last step.
func (j *BallSocketJoint) Impulse() mgl64.Vec3 { return j.impulse }

func (j *BallSocketJoint) LocalAnchors() (mgl64.Vec3, mgl64.Vec3) { return j.localA, j.localB }

// WorldAnchors returns both anchors in world space. They coincide when the
// joint is satisfied.
func (j *BallSocketJoint) WorldAnchors() (mgl64.Vec3, mgl64.Vec3) {
	return j.bodyA.WorldPoint(j.localA), j.bodyB.WorldPoint(j.localB)
}

// Error is the distance between the two anchors.
func (j *BallSocketJoint) Error() float64 {
	a, b := j.WorldAnchors()
	return b.Sub(a).Len()
}

type jointConstraint struct {
	joint   *BallSocketJoint
	a, b    int
	rA, rB  mgl64.Vec3
	mass    mgl64.Mat3
	impulse mgl64.Vec3
}

// pointMass returns the inverse of the 3x3 point-to-point effective mass.
func pointMass(sa, sb *integrators.State, rA, rB mgl64.Vec3) (mgl64.Mat3, bool) {
	ka := geom.Skew(rA)
	kb := geom.Skew(rB)
	k := mgl64.Ident3().Mul(sa.InvMass + sb.InvMass)
	k = k.Sub(ka.Mul3(sa.InvInertia).Mul3(ka))
	k = k.Sub(kb.Mul3(sb.InvInertia).Mul3(kb))
	if det := k.Det(); math.Abs(det) < epsilon || math.IsNaN(det) {
		return mgl64.Mat3{}, false
	}
	return k.Inv(), true
}

func (s *Solver) initJoint(c *jointConstraint) bool {
	sa, sb := &s.states[c.a], &s.states[c.b]
	j := c.joint
	c.rA = sa.Orientation.Rotate(j.localA)
	c.rB = sb.Orientation.Rotate(j.localB)
	m, ok := pointMass(sa, sb, c.rA, c.rB)
	if !ok {
		j.impulse = mgl64.Vec3{}
		return false
	}
	c.mass = m
	c.impulse = mgl64.Vec3{}
	if s.settings.WarmStarting {
		c.impulse = j.impulse
	}
	return true
}

func (s *Solver) warmStartJoint(c *jointConstraint) {
	applyPair(&s.states[c.a], &s.states[c.b], c.impulse, c.rA, c.rB)
}

func (s *Solver) solveJointVelocity(c *jointConstraint) float64 {
	sa, sb := &s.states[c.a], &s.states[c.b]
	cdot := relativeVelocity(sa, sb, c.rA, c.rB)
	lambda := c.mass.Mul3x1(cdot.Mul(-1))
	c.impulse = c.impulse.Add(lambda)
	applyPair(sa, sb, lambda, c.rA, c.rB)
	return lambda.Len()
}

func (s *Solver) solveJointPosition(c *jointConstraint) float64 {
	sa, sb := &s.states[c.a], &s.states[c.b]
	j := c.joint
	rA := sa.Orientation.Rotate(j.localA)
	rB := sb.Orientation.Rotate(j.localB)
	cerr := sb.Position.Add(rB).Sub(sa.Position.Add(rA))
	m, ok := pointMass(sa, sb, rA, rB)
	if !ok {
		return cerr.Len()
	}
	p := m.Mul3x1(cerr.Mul(-1))
	shift(sa, p.Mul(-1), rA)
	shift(sb, p, rB)
	return cerr.Len()
}
