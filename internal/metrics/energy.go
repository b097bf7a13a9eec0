package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/world"
)

// KineticEnergy returns the linear plus rotational kinetic energy of b.
// Static and kinematic bodies count as zero.
func KineticEnergy(b *body.Body) float64 {
	if !b.IsDynamic() {
		return 0
	}
	v := b.LinearVelocity()
	ke := 0.5 * b.Mass() * v.Dot(v)
	if inv := b.InvInertiaWorld(); inv.Det() != 0 {
		w := b.AngularVelocity()
		ke += 0.5 * w.Dot(inv.Inv().Mul3x1(w))
	}
	return ke
}

// PotentialEnergy is the gravitational energy of b relative to the origin.
func PotentialEnergy(b *body.Body, gravity float64) float64 {
	if !b.IsDynamic() {
		return 0
	}
	return -b.Mass() * b.GravityScale() * gravity * b.Position().Y()
}

type totals struct {
	buf []*body.Body
}

func (t *totals) energy(w *world.World) (ke, pe float64) {
	t.buf = w.AppendBodies(t.buf[:0])
	g := w.Gravity().Y()
	for _, b := range t.buf {
		ke += KineticEnergy(b)
		pe += PotentialEnergy(b, g)
	}
	clear(t.buf)
	return ke, pe
}

// Energy reports the kinetic energy of the world after the last step.
type Energy struct {
	name  string
	last  float64
	peak  float64
	total totals
}

func NewEnergy() *Energy {
	return &Energy{name: "kinetic_energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(w *world.World, _ world.StepStats) {
	e.last, _ = e.total.energy(w)
	e.peak = math.Max(e.peak, e.last)
}

func (e *Energy) Value() float64 { return e.last }

// Peak is the largest kinetic energy seen since the last reset.
func (e *Energy) Peak() float64 { return e.peak }

func (e *Energy) Reset() {
	e.last = 0
	e.peak = 0
}

// EnergyGain reports the largest rise of mechanical energy above its first
// observed value, relative to that value. Contact and damping only remove
// energy, so anything above zero is solver error.
type EnergyGain struct {
	name    string
	initial float64
	maxGain float64
	samples int
	total   totals
}

func NewEnergyGain() *EnergyGain {
	return &EnergyGain{name: "energy_gain"}
}

func (e *EnergyGain) Name() string { return e.name }

func (e *EnergyGain) Observe(w *world.World, _ world.StepStats) {
	ke, pe := e.total.energy(w)
	energy := ke + pe

	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		gain := (energy - e.initial) / math.Abs(e.initial)
		e.maxGain = math.Max(e.maxGain, gain)
	}
}

func (e *EnergyGain) Value() float64 {
	return e.maxGain
}

func (e *EnergyGain) Reset() {
	e.initial = 0
	e.maxGain = 0
	e.samples = 0
}
