package metrics

import (
	"math"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/world"
)

// Stability is the fraction of steps in which no dynamic body moved faster
// than the threshold speed. A run that explodes scores well below one.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
	buf        []*body.Body
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(w *world.World, _ world.StepStats) {
	s.samples++
	s.buf = w.AppendBodies(s.buf[:0])
	for _, b := range s.buf {
		if !b.IsDynamic() {
			continue
		}
		v := b.LinearVelocity()
		if v.Len() > s.threshold || math.IsNaN(v.Len()) {
			s.violations++
			break
		}
	}
	clear(s.buf)
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Penetration reports the deepest contact penetration seen in any step.
type Penetration struct {
	name    string
	deepest float64
}

func NewPenetration() *Penetration {
	return &Penetration{name: "max_penetration"}
}

func (p *Penetration) Name() string { return p.name }

func (p *Penetration) Observe(_ *world.World, s world.StepStats) {
	p.deepest = math.Max(p.deepest, s.MaxPenetration)
}

func (p *Penetration) Value() float64 { return p.deepest }

func (p *Penetration) Reset() { p.deepest = 0 }
