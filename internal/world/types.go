package world

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/narrowphase"
	"github.com/san-kum/rigidsim/internal/solver"
)

// Config holds the runtime options of a world.
type Config struct {
	Gravity mgl64.Vec3

	VelocityIterations int
	PositionIterations int
	// VelocityTolerance stops velocity iterations early; zero disables.
	VelocityTolerance float64
	WarmStarting      bool

	SleepingEnabled      bool
	SleepLinearVelocity  float64
	SleepAngularVelocity float64
	TimeBeforeSleep      float64

	AABBMargin                 float64
	AABBDisplacementMultiplier float64

	// ContactMargin is the gap up to which box and hull pairs keep
	// speculative contacts.
	ContactMargin                float64
	RestitutionVelocityThreshold float64
	PersistentContactTolerance   float64
	MaxManifoldPoints            int
	Reduction                    contact.Reduction

	Baumgarte           float64
	LinearSlop          float64
	MaxLinearCorrection float64

	// LinearDamping and AngularDamping are given to every new body.
	LinearDamping  float64
	AngularDamping float64

	// Workers bounds the goroutines solving islands; 1 solves inline.
	Workers int
}

func DefaultConfig() Config {
	sleep := integrators.DefaultSleepConfig()
	settings := solver.DefaultSettings()
	return Config{
		Gravity:                      settings.Gravity,
		VelocityIterations:           settings.VelocityIterations,
		PositionIterations:           settings.PositionIterations,
		WarmStarting:                 settings.WarmStarting,
		SleepingEnabled:              sleep.Enabled,
		SleepLinearVelocity:          sleep.LinearVelocity,
		SleepAngularVelocity:         sleep.AngularVelocity,
		TimeBeforeSleep:              sleep.TimeBeforeSleep,
		AABBMargin:                   0.1,
		AABBDisplacementMultiplier:   2.0,
		ContactMargin:                narrowphase.DefaultMargin,
		RestitutionVelocityThreshold: settings.RestitutionThreshold,
		PersistentContactTolerance:   contact.DefaultTolerance,
		MaxManifoldPoints:            contact.MaxPoints,
		Reduction:                    contact.ReduceArea,
		Baumgarte:                    settings.Baumgarte,
		LinearSlop:                   settings.LinearSlop,
		MaxLinearCorrection:          settings.MaxLinearCorrection,
		Workers:                      1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.VelocityIterations < 1:
		return fmt.Errorf("%w: velocity iterations must be at least 1", ErrInvalidConfig)
	case c.PositionIterations < 0:
		return fmt.Errorf("%w: position iterations must not be negative", ErrInvalidConfig)
	case c.MaxManifoldPoints < 1 || c.MaxManifoldPoints > contact.MaxPoints:
		return fmt.Errorf("%w: manifold points must be within [1, %d]", ErrInvalidConfig, contact.MaxPoints)
	case c.AABBMargin < 0 || c.AABBDisplacementMultiplier < 0:
		return fmt.Errorf("%w: AABB margin and multiplier must not be negative", ErrInvalidConfig)
	case c.Baumgarte < 0 || c.Baumgarte > 1:
		return fmt.Errorf("%w: baumgarte must be within [0, 1]", ErrInvalidConfig)
	case c.LinearSlop < 0 || c.MaxLinearCorrection < 0:
		return fmt.Errorf("%w: slop and correction must not be negative", ErrInvalidConfig)
	case c.SleepLinearVelocity < 0 || c.SleepAngularVelocity < 0 || c.TimeBeforeSleep < 0:
		return fmt.Errorf("%w: sleep thresholds must not be negative", ErrInvalidConfig)
	case c.ContactMargin < 0 || c.RestitutionVelocityThreshold < 0 || c.PersistentContactTolerance < 0 || c.VelocityTolerance < 0:
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidConfig)
	case c.LinearDamping < 0 || c.AngularDamping < 0:
		return fmt.Errorf("%w: damping must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(c.Gravity[i]) || math.IsInf(c.Gravity[i], 0) {
			return fmt.Errorf("%w: gravity is not finite", ErrInvalidConfig)
		}
	}
	return nil
}

func (c Config) solverSettings() solver.Settings {
	return solver.Settings{
		VelocityIterations:   c.VelocityIterations,
		PositionIterations:   c.PositionIterations,
		WarmStarting:         c.WarmStarting,
		RestitutionThreshold: c.RestitutionVelocityThreshold,
		Baumgarte:            c.Baumgarte,
		LinearSlop:           c.LinearSlop,
		MaxLinearCorrection:  c.MaxLinearCorrection,
		VelocityTolerance:    c.VelocityTolerance,
		Gravity:              c.Gravity,
	}
}

func (c Config) sleepConfig() integrators.SleepConfig {
	return integrators.SleepConfig{
		Enabled:         c.SleepingEnabled,
		LinearVelocity:  c.SleepLinearVelocity,
		AngularVelocity: c.SleepAngularVelocity,
		TimeBeforeSleep: c.TimeBeforeSleep,
	}
}

func (c Config) contactConfig() contact.Config {
	return contact.Config{
		MaxPoints: c.MaxManifoldPoints,
		Tolerance: c.PersistentContactTolerance,
		Reduction: c.Reduction,
	}
}

// BodyDef describes a body to create.
type BodyDef struct {
	Type        body.Type
	Position    mgl64.Vec3
	Orientation mgl64.Quat

	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3

	// Mass applies to dynamic bodies; zero keeps the default of 1.
	Mass     float64
	Material body.Material
	// GravityScale multiplies gravity; zero keeps the default of 1. Use
	// World.SetGravityScale to switch gravity off.
	GravityScale float64
	DisableSleep bool
	Inactive     bool
	UserData     any
}

func DefaultBodyDef(t body.Type) BodyDef {
	return BodyDef{
		Type:         t,
		Orientation:  mgl64.QuatIdent(),
		Material:     body.DefaultMaterial(),
		GravityScale: 1,
	}
}

func (d BodyDef) transform() geom.Transform {
	return geom.NewTransform(d.Position, d.Orientation)
}

// Phase names a stage of Step for observers.
type Phase uint8

const (
	PhaseBroad Phase = iota
	PhaseNarrow
	PhaseIslands
	PhaseSolve
	PhaseSync
	numPhases
)

func (p Phase) String() string {
	switch p {
	case PhaseBroad:
		return "broad"
	case PhaseNarrow:
		return "narrow"
	case PhaseIslands:
		return "islands"
	case PhaseSolve:
		return "solve"
	case PhaseSync:
		return "sync"
	}
	return "unknown"
}

// StepStats summarises the last step.
type StepStats struct {
	Step     int
	Time     float64
	Duration time.Duration
	Phases   [numPhases]time.Duration

	Bodies   int
	Awake    int
	Sleeping int

	Pairs         int
	NarrowTests   int
	Manifolds     int
	ContactPoints int
	EPAFailed     int

	Islands            int
	VelocityIterations int
	PositionIterations int
	Skipped            int
	MaxPenetration     float64

	Woken      int
	FellAsleep int
}

// Observer receives timing and statistics. It is nil unless injected.
type Observer interface {
	PhaseDone(p Phase, d time.Duration)
	StepDone(s StepStats)
}

// Contact is a snapshot of one manifold.
type Contact struct {
	BodyA, BodyB   body.Handle
	ShapeA, ShapeB int
	Normal         mgl64.Vec3
	Points         []ContactPoint
}

type ContactPoint struct {
	WorldA, WorldB mgl64.Vec3
	Depth          float64
	NormalImpulse  float64
}

// RaycastHit is the closest shape hit along a ray.
type RaycastHit struct {
	Body     body.Handle
	Shape    *body.ProxyShape
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Fraction float64
}

type Option func(*World)

func WithLogger(l *log.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(w *World) { w.observer = o }
}

func WithContactListener(l contact.Listener) Option {
	return func(w *World) { w.listener = l }
}
