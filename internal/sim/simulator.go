package sim

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/world"
)

// Simulator steps a world at a fixed rate and records the tracked bodies.
type Simulator struct {
	world     *world.World
	tracked   []body.Handle
	logger    *log.Logger
	metrics   []Metric
	observers []Observer
	pool      *StatePool
}

// New wraps w. A nil logger discards output.
func New(w *world.World, tracked []body.Handle, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulator{
		world:     w,
		tracked:   tracked,
		logger:    logger,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		pool:      states,
	}
}

func FromScene(sc *scenario.Scene, logger *log.Logger) *Simulator {
	s := New(sc.World, sc.Tracked, logger)
	if logger != nil {
		s.logger = logger.With("scenario", sc.Name)
	}
	return s
}

// SetStatePool replaces the shared pool that recorded states come from.
func (s *Simulator) SetStatePool(p *StatePool) {
	if p != nil {
		s.pool = p
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) World() *world.World    { return s.world }
func (s *Simulator) Tracked() []body.Handle { return s.tracked }

// Snapshot writes the tracked bodies into dst, reallocating it when its
// length is wrong.
func (s *Simulator) Snapshot(dst State) (State, error) {
	if len(dst) != len(s.tracked)*BodyStride {
		dst = make(State, len(s.tracked)*BodyStride)
	}
	for i, h := range s.tracked {
		b, err := s.world.Body(h)
		if err != nil {
			return nil, err
		}
		dst.setBody(i, b.Position(), b.LinearVelocity())
	}
	return dst, nil
}

func (s *Simulator) steps(cfg Config) int {
	return int(math.Floor(cfg.Duration/cfg.Dt + 1e-9))
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	every := max(cfg.RecordEvery, 1)

	steps := s.steps(cfg)
	result := &Result{
		States:  make([]State, 0, steps/every+1),
		Times:   make([]float64, 0, steps/every+1),
		Metrics: make(map[string]float64),
		pool:    s.pool,
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x, err := s.Snapshot(nil)
	if err != nil {
		return nil, err
	}
	result.States = append(result.States, s.pool.Copy(x))
	result.Times = append(result.Times, s.world.Time())

	s.logger.Debug("sim: run started", "steps", steps, "dt", cfg.Dt, "bodies", len(s.tracked))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, ctx.Err()
		default:
		}

		s.world.Step(cfg.Dt)
		stats := s.world.Stats()
		result.StepsTaken++
		result.Final = stats

		if x, err = s.Snapshot(x); err != nil {
			s.collect(result)
			return result, &SimulationError{Step: i, Time: s.world.Time(), Wrapped: err}
		}
		if cfg.ValidateState && !x.IsValid() {
			s.collect(result)
			return result, &SimulationError{Step: i, Time: s.world.Time(), State: x.Clone(), Wrapped: ErrInvalidState}
		}

		for _, m := range s.metrics {
			m.Observe(s.world, stats)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, stats)
		}

		if (i+1)%every == 0 || i == steps-1 {
			result.States = append(result.States, s.pool.Copy(x))
			result.Times = append(result.Times, s.world.Time())
		}
	}

	s.collect(result)
	s.logger.Debug("sim: run complete", "steps", result.StepsTaken, "sleeping", result.Final.Sleeping)
	return result, nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if cfg.RecordEvery < 0 {
		return fmt.Errorf("%w: record interval must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RunWithCallback steps until the duration elapses or callback returns
// false. The state passed to callback is reused between calls.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(State, world.StepStats) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	x, err := s.Snapshot(s.pool.Get(len(s.tracked)))
	defer func() { s.pool.Put(x) }()
	if err != nil {
		return err
	}
	if !callback(x, s.world.Stats()) {
		return nil
	}

	for i := 0; i < s.steps(cfg); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.world.Step(cfg.Dt)
		if x, err = s.Snapshot(x); err != nil {
			return &SimulationError{Step: i, Time: s.world.Time(), Wrapped: err}
		}
		if cfg.ValidateState && !x.IsValid() {
			return &SimulationError{Step: i, Time: s.world.Time(), State: x.Clone(), Wrapped: ErrInvalidState}
		}
		if !callback(x, s.world.Stats()) {
			return nil
		}
	}

	return nil
}
