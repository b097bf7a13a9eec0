package solver

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/integrators"
)

type pointConstraint struct {
	point *contact.Point

	rA, rB       mgl64.Vec3
	normalMass   float64
	tangentMass  [2]float64
	velocityBias float64

	normalImpulse  float64
	tangentImpulse [2]float64
}

type contactConstraint struct {
	manifold *contact.Manifold
	a, b     int

	normal   mgl64.Vec3
	tangent  [2]mgl64.Vec3
	friction float64
	points   []pointConstraint
}

func effectiveMass(sa, sb *integrators.State, rA, rB, dir mgl64.Vec3) float64 {
	ra := rA.Cross(dir)
	rb := rB.Cross(dir)
	return sa.InvMass + sb.InvMass + ra.Dot(sa.InvInertia.Mul3x1(ra)) + rb.Dot(sb.InvInertia.Mul3x1(rb))
}

func relativeVelocity(sa, sb *integrators.State, rA, rB mgl64.Vec3) mgl64.Vec3 {
	return sb.VelocityAt(rB).Sub(sa.VelocityAt(rA))
}

func applyPair(sa, sb *integrators.State, p, rA, rB mgl64.Vec3) {
	sa.ApplyImpulse(p.Mul(-1), rA)
	sb.ApplyImpulse(p, rB)
}

// initContact prepares the points of c for a step of dt. Separated points
// only stop the gap from closing within the step, unless they would close
// it fast enough to bounce. It returns how many points were dropped for a
// degenerate effective mass.
func (s *Solver) initContact(c *contactConstraint, dt float64) int {
	sa, sb := &s.states[c.a], &s.states[c.b]
	m := c.manifold
	ta, tb := sa.Transform(), sb.Transform()

	c.normal = m.Normal
	c.tangent[0], c.tangent[1] = geom.TangentBasis(m.Normal)
	c.friction = m.Friction
	c.points = c.points[:0]

	skipped := 0
	for i := range m.Points {
		mp := &m.Points[i]
		pa := ta.Apply(mp.LocalA)
		pb := tb.Apply(mp.LocalB)
		pc := pointConstraint{point: mp, rA: pa.Sub(sa.Position), rB: pb.Sub(sb.Position)}

		kn := effectiveMass(sa, sb, pc.rA, pc.rB, c.normal)
		if kn < epsilon || math.IsNaN(kn) {
			mp.NormalImpulse = 0
			mp.TangentImpulse = [2]float64{}
			skipped++
			continue
		}
		pc.normalMass = 1 / kn
		for k := 0; k < 2; k++ {
			if kt := effectiveMass(sa, sb, pc.rA, pc.rB, c.tangent[k]); kt > epsilon {
				pc.tangentMass[k] = 1 / kt
			}
		}

		sep := pb.Sub(pa).Dot(c.normal)
		vn := relativeVelocity(sa, sb, pc.rA, pc.rB).Dot(c.normal)
		switch {
		case m.Restitution > 0 && vn < -s.settings.RestitutionThreshold && vn*dt < -sep:
			pc.velocityBias = -m.Restitution * vn
		case sep > 0:
			pc.velocityBias = -sep / dt
		}

		if s.settings.WarmStarting {
			pc.normalImpulse = mp.NormalImpulse
			pc.tangentImpulse = mp.TangentImpulse
		}
		c.points = append(c.points, pc)
	}
	return skipped
}

func (s *Solver) warmStartContact(c *contactConstraint) {
	sa, sb := &s.states[c.a], &s.states[c.b]
	for i := range c.points {
		pc := &c.points[i]
		p := c.normal.Mul(pc.normalImpulse).
			Add(c.tangent[0].Mul(pc.tangentImpulse[0])).
			Add(c.tangent[1].Mul(pc.tangentImpulse[1]))
		applyPair(sa, sb, p, pc.rA, pc.rB)
	}
}

// solveContactVelocity runs one pass over c and returns the largest impulse
// change applied.
func (s *Solver) solveContactVelocity(c *contactConstraint) float64 {
	sa, sb := &s.states[c.a], &s.states[c.b]
	change := 0.0

	// normal first so friction is bounded by this pass's normal impulse
	for i := range c.points {
		pc := &c.points[i]
		vn := relativeVelocity(sa, sb, pc.rA, pc.rB).Dot(c.normal)
		lambda := -pc.normalMass * (vn - pc.velocityBias)
		old := pc.normalImpulse
		pc.normalImpulse = math.Max(old+lambda, 0)
		lambda = pc.normalImpulse - old
		applyPair(sa, sb, c.normal.Mul(lambda), pc.rA, pc.rB)
		change = max(change, math.Abs(lambda))
	}

	for i := range c.points {
		pc := &c.points[i]
		limit := c.friction * pc.normalImpulse
		for k := 0; k < 2; k++ {
			if pc.tangentMass[k] == 0 {
				continue
			}
			t := c.tangent[k]
			vt := relativeVelocity(sa, sb, pc.rA, pc.rB).Dot(t)
			lambda := -pc.tangentMass[k] * vt
			old := pc.tangentImpulse[k]
			pc.tangentImpulse[k] = clamp(old+lambda, -limit, limit)
			lambda = pc.tangentImpulse[k] - old
			applyPair(sa, sb, t.Mul(lambda), pc.rA, pc.rB)
			change = max(change, math.Abs(lambda))
		}
	}
	return change
}

func (s *Solver) storeImpulses(c *contactConstraint) {
	for i := range c.points {
		pc := &c.points[i]
		pc.point.NormalImpulse = pc.normalImpulse
		pc.point.TangentImpulse = pc.tangentImpulse
	}
}

// solveContactPosition pushes the bodies apart along the manifold normal
// and returns the smallest separation seen before correction.
func (s *Solver) solveContactPosition(c *contactConstraint) float64 {
	sa, sb := &s.states[c.a], &s.states[c.b]
	st := s.settings
	minSep := math.Inf(1)

	for i := range c.points {
		mp := c.points[i].point
		ta, tb := sa.Transform(), sb.Transform()
		pa := ta.Apply(mp.LocalA)
		pb := tb.Apply(mp.LocalB)
		sep := pb.Sub(pa).Dot(c.normal)
		minSep = math.Min(minSep, sep)

		corr := clamp(st.Baumgarte*(sep+st.LinearSlop), -st.MaxLinearCorrection, 0)
		if corr == 0 {
			continue
		}
		rA, rB := pa.Sub(sa.Position), pb.Sub(sb.Position)
		k := effectiveMass(sa, sb, rA, rB, c.normal)
		if k < epsilon {
			continue
		}
		p := c.normal.Mul(-corr / k)
		shift(sa, p.Mul(-1), rA)
		shift(sb, p, rB)
	}
	return minSep
}

// shift moves a state by a pseudo impulse p applied at arm r.
func shift(st *integrators.State, p, r mgl64.Vec3) {
	if !st.IsDynamic() {
		return
	}
	st.Position = st.Position.Add(p.Mul(st.InvMass))
	if dq := st.InvInertia.Mul3x1(r.Cross(p)); dq.LenSqr() > 0 {
		st.Orientation = geom.IntegrateOrientation(st.Orientation, dq, 1)
		st.UpdateInertia()
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
