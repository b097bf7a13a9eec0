package metrics

import (
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/world"
)

// mean averages one StepStats field over the observed steps.
type mean struct {
	name    string
	field   func(world.StepStats) float64
	sum     float64
	samples int
}

func (m *mean) Name() string { return m.name }

func (m *mean) Observe(_ *world.World, s world.StepStats) {
	m.sum += m.field(s)
	m.samples++
}

func (m *mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *mean) Reset() {
	m.sum = 0
	m.samples = 0
}

// NewSolverEffort averages the velocity iterations spent per step.
func NewSolverEffort() sim.Metric {
	return &mean{name: "solver_iterations", field: func(s world.StepStats) float64 {
		return float64(s.VelocityIterations)
	}}
}

// NewContacts averages the number of contact points per step.
func NewContacts() sim.Metric {
	return &mean{name: "contact_points", field: func(s world.StepStats) float64 {
		return float64(s.ContactPoints)
	}}
}

// Awake reports the awake body count after the last step.
type Awake struct {
	last int
}

func NewAwake() *Awake { return &Awake{} }

func (a *Awake) Name() string { return "awake_bodies" }

func (a *Awake) Observe(_ *world.World, s world.StepStats) { a.last = s.Awake }

func (a *Awake) Value() float64 { return float64(a.last) }

func (a *Awake) Reset() { a.last = 0 }

// Default returns a fresh set of the standard run metrics.
func Default() []sim.Metric {
	return []sim.Metric{
		NewEnergy(),
		NewEnergyGain(),
		NewPenetration(),
		NewStability(100),
		NewAwake(),
		NewContacts(),
		NewSolverEffort(),
	}
}
