package solver

import "github.com/go-gl/mathgl/mgl64"

// Settings tune one island solve.
type Settings struct {
	VelocityIterations int
	PositionIterations int
	WarmStarting       bool

	// RestitutionThreshold is the closing speed below which contacts do
	// not bounce.
	RestitutionThreshold float64

	Baumgarte           float64
	LinearSlop          float64
	MaxLinearCorrection float64

	// VelocityTolerance ends the velocity phase early once no impulse
	// changes by more than this. Zero runs every iteration.
	VelocityTolerance float64

	Gravity mgl64.Vec3
}

func DefaultSettings() Settings {
	return Settings{
		VelocityIterations:   10,
		PositionIterations:   5,
		WarmStarting:         true,
		RestitutionThreshold: 1.0,
		Baumgarte:            0.2,
		LinearSlop:           0.005,
		MaxLinearCorrection:  0.2,
		Gravity:              mgl64.Vec3{0, -9.81, 0},
	}
}

// Stats counts the work of one or more island solves.
type Stats struct {
	Islands            int
	Bodies             int
	Contacts           int
	Joints             int
	VelocityIterations int
	PositionIterations int
	Skipped            int
	MaxPenetration     float64
}

func (s *Stats) Add(o Stats) {
	s.Islands += o.Islands
	s.Bodies += o.Bodies
	s.Contacts += o.Contacts
	s.Joints += o.Joints
	s.VelocityIterations += o.VelocityIterations
	s.PositionIterations += o.PositionIterations
	s.Skipped += o.Skipped
	s.MaxPenetration = max(s.MaxPenetration, o.MaxPenetration)
}

const epsilon = 1e-12
