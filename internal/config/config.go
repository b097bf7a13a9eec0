package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/world"
)

const (
	DefaultScenario = "drop-box"
	DefaultDt       = 1.0 / 60
	DefaultDuration = 5.0
)

var (
	ErrUnknownPreset = errors.New("config: unknown preset")
	ErrInvalid       = errors.New("config: invalid configuration")
)

// Config describes one run: the scene, its timing and the world settings.
type Config struct {
	Scenario string          `yaml:"scenario"`
	Dt       float64         `yaml:"dt"`
	Duration float64         `yaml:"duration"`
	Seed     int64           `yaml:"seed"`
	Params   scenario.Params `yaml:"params"`
	World    WorldSettings   `yaml:"world"`
}

// WorldSettings mirrors world.Config in file form.
type WorldSettings struct {
	Gravity [3]float64 `yaml:"gravity"`

	VelocityIterations int     `yaml:"velocity_iterations"`
	PositionIterations int     `yaml:"position_iterations"`
	VelocityTolerance  float64 `yaml:"velocity_tolerance"`
	WarmStarting       bool    `yaml:"warm_starting"`

	Sleeping             bool    `yaml:"sleeping"`
	SleepLinearVelocity  float64 `yaml:"sleep_linear_velocity"`
	SleepAngularVelocity float64 `yaml:"sleep_angular_velocity"`
	TimeBeforeSleep      float64 `yaml:"time_before_sleep"`

	AABBMargin                 float64 `yaml:"aabb_margin"`
	AABBDisplacementMultiplier float64 `yaml:"aabb_displacement_multiplier"`

	ContactMargin        float64 `yaml:"contact_margin"`
	RestitutionThreshold float64 `yaml:"restitution_threshold"`
	ContactTolerance     float64 `yaml:"contact_tolerance"`
	MaxManifoldPoints    int     `yaml:"max_manifold_points"`
	Reduction            string  `yaml:"reduction"`

	Baumgarte           float64 `yaml:"baumgarte"`
	LinearSlop          float64 `yaml:"linear_slop"`
	MaxLinearCorrection float64 `yaml:"max_linear_correction"`

	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`

	Workers int `yaml:"workers"`
}

func DefaultConfig() *Config {
	w := world.DefaultConfig()
	return &Config{
		Scenario: DefaultScenario,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Params:   scenario.DefaultParams(),
		World: WorldSettings{
			Gravity:                    [3]float64(w.Gravity),
			VelocityIterations:         w.VelocityIterations,
			PositionIterations:         w.PositionIterations,
			VelocityTolerance:          w.VelocityTolerance,
			WarmStarting:               w.WarmStarting,
			Sleeping:                   w.SleepingEnabled,
			SleepLinearVelocity:        w.SleepLinearVelocity,
			SleepAngularVelocity:       w.SleepAngularVelocity,
			TimeBeforeSleep:            w.TimeBeforeSleep,
			AABBMargin:                 w.AABBMargin,
			AABBDisplacementMultiplier: w.AABBDisplacementMultiplier,
			ContactMargin:              w.ContactMargin,
			RestitutionThreshold:       w.RestitutionVelocityThreshold,
			ContactTolerance:           w.PersistentContactTolerance,
			MaxManifoldPoints:          w.MaxManifoldPoints,
			Reduction:                  w.Reduction.String(),
			Baumgarte:                  w.Baumgarte,
			LinearSlop:                 w.LinearSlop,
			MaxLinearCorrection:        w.MaxLinearCorrection,
			LinearDamping:              w.LinearDamping,
			AngularDamping:             w.AngularDamping,
			Workers:                    w.Workers,
		},
	}
}

// Load reads a YAML file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("%w: scenario is empty", ErrInvalid)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, c.Duration)
	}
	wc, err := c.WorldConfig()
	if err != nil {
		return err
	}
	return wc.Validate()
}

// WorldConfig converts the file settings to runtime options.
func (c *Config) WorldConfig() (world.Config, error) {
	s := c.World
	reduction, err := contact.ParseReduction(s.Reduction)
	if err != nil {
		return world.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return world.Config{
		Gravity:                      mgl64.Vec3(s.Gravity),
		VelocityIterations:           s.VelocityIterations,
		PositionIterations:           s.PositionIterations,
		VelocityTolerance:            s.VelocityTolerance,
		WarmStarting:                 s.WarmStarting,
		SleepingEnabled:              s.Sleeping,
		SleepLinearVelocity:          s.SleepLinearVelocity,
		SleepAngularVelocity:         s.SleepAngularVelocity,
		TimeBeforeSleep:              s.TimeBeforeSleep,
		AABBMargin:                   s.AABBMargin,
		AABBDisplacementMultiplier:   s.AABBDisplacementMultiplier,
		ContactMargin:                s.ContactMargin,
		RestitutionVelocityThreshold: s.RestitutionThreshold,
		PersistentContactTolerance:   s.ContactTolerance,
		MaxManifoldPoints:            s.MaxManifoldPoints,
		Reduction:                    reduction,
		Baumgarte:                    s.Baumgarte,
		LinearSlop:                   s.LinearSlop,
		MaxLinearCorrection:          s.MaxLinearCorrection,
		LinearDamping:                s.LinearDamping,
		AngularDamping:               s.AngularDamping,
		Workers:                      s.Workers,
	}, nil
}

// ScenarioParams returns the scene parameters seeded with the run seed.
func (c *Config) ScenarioParams() scenario.Params {
	p := c.Params
	p.Seed = c.Seed
	return p
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Build validates c and populates a new world with its scenario.
func (c *Config) Build(reg *scenario.Registry, opts ...world.Option) (*scenario.Scene, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	wc, err := c.WorldConfig()
	if err != nil {
		return nil, err
	}
	return reg.Build(c.Scenario, wc, c.ScenarioParams(), opts...)
}
