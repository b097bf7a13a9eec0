package narrowphase

import (
	"github.com/san-kum/rigidsim/internal/geom"
)

// Algorithm computes contacts for one ordered pair of shape types. It
// writes world-space points into out, which arrives empty, and reports
// whether the shapes touch.
type Algorithm func(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool

// Stats counts recoveries from degenerate geometry.
type Stats struct {
	Tests     int
	Contacts  int
	Rejected  int
	EPAFailed int
}

// DefaultMargin is the separation up to which polytope pairs still report
// face contacts, with negative depth.
const DefaultMargin = 0.01

// Dispatcher selects an algorithm by the shape types of a pair. Pairs
// registered only in the opposite order are run swapped and flipped back.
// A Dispatcher is not safe for concurrent use.
type Dispatcher struct {
	table  [geom.NumShapeTypes][geom.NumShapeTypes]Algorithm
	stats  Stats
	margin float64
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{margin: DefaultMargin}
	d.Register(geom.SphereType, geom.SphereType, roundRound)
	d.Register(geom.SphereType, geom.CapsuleType, roundRound)
	d.Register(geom.CapsuleType, geom.CapsuleType, roundRound)
	d.Register(geom.SphereType, geom.BoxType, sphereBox)
	d.Register(geom.SphereType, geom.ConvexHullType, d.roundPolytope)
	d.Register(geom.CapsuleType, geom.BoxType, d.roundPolytope)
	d.Register(geom.CapsuleType, geom.ConvexHullType, d.roundPolytope)
	d.Register(geom.BoxType, geom.BoxType, d.boxBox)
	d.Register(geom.BoxType, geom.ConvexHullType, d.polytopes)
	d.Register(geom.ConvexHullType, geom.ConvexHullType, d.polytopes)
	return d
}

// Register installs alg for shapes of type a (first) and b (second).
func (d *Dispatcher) Register(a, b geom.ShapeType, alg Algorithm) {
	d.table[a][b] = alg
}

// SetMargin sets the contact skin of box and hull pairs. Points separated
// by up to m are kept so resting manifolds stay complete between steps.
// Negative values are treated as zero.
func (d *Dispatcher) SetMargin(m float64) { d.margin = max(m, 0) }

func (d *Dispatcher) Margin() float64 { return d.margin }

func (d *Dispatcher) Stats() Stats { return d.stats }

func (d *Dispatcher) ResetStats() { d.stats = Stats{} }

// Collide fills out with the contacts between a and b placed at ta and
// tb. It reports false for separated pairs and for geometry it could not
// resolve; out is then empty.
func (d *Dispatcher) Collide(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform, out *ContactSet) bool {
	out.reset()
	d.stats.Tests++

	alg, swapped := d.table[a.Type()][b.Type()], false
	if alg == nil {
		alg, swapped = d.table[b.Type()][a.Type()], true
	}
	if alg == nil {
		return false
	}

	var hit bool
	if swapped {
		hit = alg(b, tb, a, ta, out)
	} else {
		hit = alg(a, ta, b, tb, out)
	}
	if !hit || len(out.Points) == 0 {
		out.reset()
		return false
	}
	if swapped {
		out.flip()
	}
	if !out.valid() {
		d.stats.Rejected++
		out.reset()
		return false
	}
	for i := range out.Points {
		p := &out.Points[i]
		p.LocalA = ta.InverseApply(p.WorldA)
		p.LocalB = tb.InverseApply(p.WorldB)
	}
	d.stats.Contacts++
	return true
}

// Overlap reports whether two shapes intersect, without building contacts.
func (d *Dispatcher) Overlap(a geom.Shape, ta geom.Transform, b geom.Shape, tb geom.Transform) bool {
	res := gjk(worldSupport(a, ta), worldSupport(b, tb), tb.Position.Sub(ta.Position))
	return res.overlap
}
