// Package solver resolves contacts and joints for one island with
// sequential impulses followed by non-linear Gauss-Seidel position
// correction.
package solver

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/island"
)

// Island is the island shape the solver accepts.
type Island = island.Island[*BallSocketJoint]

// Solver owns the scratch state for solving islands one at a time. It is
// not safe for concurrent use; parallel solves need one Solver each.
type Solver struct {
	settings Settings
	integ    integrators.Integrator
	logger   *log.Logger

	states   []integrators.State
	index    map[*body.Body]int
	contacts []contactConstraint
	joints   []jointConstraint
}

func New(settings Settings, logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Solver{
		settings: settings,
		integ:    integrators.NewSemiImplicit(),
		logger:   logger,
		index:    make(map[*body.Body]int),
	}
}

func (s *Solver) Settings() Settings { return s.settings }

func (s *Solver) SetSettings(settings Settings) { s.settings = settings }

// Solve advances every member of isl by dt. Velocities are integrated,
// constraints solved, positions integrated and corrected, and the result
// written back to the member bodies. Static and kinematic bodies are read
// but never written.
func (s *Solver) Solve(isl *Island, dt float64) Stats {
	stats := Stats{Islands: 1, Bodies: len(isl.Bodies), Contacts: len(isl.Manifolds), Joints: len(isl.Joints)}
	s.load(isl)

	for i := range isl.Bodies {
		s.integ.Velocities(&s.states[i], s.settings.Gravity, dt)
	}

	s.contacts = s.contacts[:0]
	for _, m := range isl.Manifolds {
		stats.MaxPenetration = max(stats.MaxPenetration, m.MaxDepth())
		n := len(s.contacts)
		if n < cap(s.contacts) {
			s.contacts = s.contacts[:n+1]
		} else {
			s.contacts = append(s.contacts, contactConstraint{})
		}
		c := &s.contacts[n]
		c.manifold = m
		c.a = s.stateOf(m.BodyA())
		c.b = s.stateOf(m.BodyB())
	}
	s.joints = s.joints[:0]
	for _, j := range isl.Joints {
		a, b := j.Bodies()
		s.joints = append(s.joints, jointConstraint{joint: j, a: s.stateOf(a), b: s.stateOf(b)})
	}

	for i := range s.contacts {
		c := &s.contacts[i]
		if n := s.initContact(c, dt); n > 0 {
			stats.Skipped += n
			s.logger.Debug("solver: skipped degenerate contact",
				"a", c.manifold.BodyA().Handle(), "b", c.manifold.BodyB().Handle(), "points", n)
		}
	}
	live := s.joints[:0]
	for _, c := range s.joints {
		if !s.initJoint(&c) {
			stats.Skipped++
			a, b := c.joint.Bodies()
			s.logger.Debug("solver: skipped degenerate joint", "a", a.Handle(), "b", b.Handle())
			continue
		}
		live = append(live, c)
	}
	s.joints = live

	if s.settings.WarmStarting {
		for i := range s.joints {
			s.warmStartJoint(&s.joints[i])
		}
		for i := range s.contacts {
			s.warmStartContact(&s.contacts[i])
		}
	}

	for it := 0; it < s.settings.VelocityIterations; it++ {
		change := 0.0
		for i := range s.joints {
			change = max(change, s.solveJointVelocity(&s.joints[i]))
		}
		for i := range s.contacts {
			change = max(change, s.solveContactVelocity(&s.contacts[i]))
		}
		stats.VelocityIterations++
		if tol := s.settings.VelocityTolerance; tol > 0 && change < tol {
			break
		}
	}

	for i := range s.contacts {
		s.storeImpulses(&s.contacts[i])
	}
	for i := range s.joints {
		s.joints[i].joint.impulse = s.joints[i].impulse
	}

	for i := range isl.Bodies {
		s.integ.Positions(&s.states[i], dt)
	}

	for it := 0; it < s.settings.PositionIterations; it++ {
		minSep := 0.0
		jointErr := 0.0
		for i := range s.joints {
			jointErr = max(jointErr, s.solveJointPosition(&s.joints[i]))
		}
		for i := range s.contacts {
			minSep = min(minSep, s.solveContactPosition(&s.contacts[i]))
		}
		stats.PositionIterations++
		if minSep >= -3*s.settings.LinearSlop && jointErr <= s.settings.LinearSlop {
			break
		}
	}

	for i := range isl.Bodies {
		s.states[i].Store()
	}
	s.release()
	return stats
}

// load copies the members into the leading states.
func (s *Solver) load(isl *Island) {
	s.states = s.states[:0]
	for _, b := range isl.Bodies {
		s.index[b] = len(s.states)
		s.states = append(s.states, integrators.State{})
		s.states[len(s.states)-1].Load(b)
	}
}

// stateOf returns the state index of b, appending a read-only copy of
// bodies outside the island.
func (s *Solver) stateOf(b *body.Body) int {
	if i, ok := s.index[b]; ok {
		return i
	}
	i := len(s.states)
	s.index[b] = i
	s.states = append(s.states, integrators.State{})
	s.states[i].Load(b)
	return i
}

func (s *Solver) release() {
	clear(s.index)
	clear(s.states)
	for i := range s.contacts {
		s.contacts[i] = contactConstraint{points: s.contacts[i].points[:0]}
	}
	for i := range s.joints {
		s.joints[i] = jointConstraint{}
	}
}
