package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/world"
)

// BodyStride is the number of State values per tracked body: position
// followed by linear velocity.
const BodyStride = 6

// State is the flattened position and velocity of the tracked bodies.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Bodies is the number of tracked bodies in s.
func (s State) Bodies() int { return len(s) / BodyStride }

// Body returns the position and velocity of the i-th tracked body.
func (s State) Body(i int) (pos, vel mgl64.Vec3) {
	o := i * BodyStride
	return mgl64.Vec3{s[o], s[o+1], s[o+2]}, mgl64.Vec3{s[o+3], s[o+4], s[o+5]}
}

func (s State) setBody(i int, pos, vel mgl64.Vec3) {
	o := i * BodyStride
	copy(s[o:o+3], pos[:])
	copy(s[o+3:o+6], vel[:])
}

// Metric folds per-step observations of a world into one number.
type Metric interface {
	Name() string
	Observe(w *world.World, stats world.StepStats)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, stats world.StepStats)
}

type Config struct {
	Dt       float64
	Duration float64
	// RecordEvery keeps one state in n; zero or one keeps all.
	RecordEvery int
	// ValidateState stops the run on a non-finite tracked state.
	ValidateState bool
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	// Final is the world statistics of the last step.
	Final world.StepStats

	pool *StatePool
}

// Release hands the recorded states back to the pool they came from. The
// result must not be read afterwards.
func (r *Result) Release() {
	if r.pool != nil {
		for _, x := range r.States {
			r.pool.Put(x)
		}
	}
	r.States = nil
	r.Times = nil
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i] + other[i]
	}
	return out
}

func (s State) Sub(other State) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i] - other[i]
	}
	return out
}

func (s State) Scale(k float64) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i] * k
	}
	return out
}

func DefaultConfig() Config {
	return Config{
		Dt:            1.0 / 60,
		Duration:      5,
		RecordEvery:   1,
		ValidateState: true,
	}
}
