package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/world"
)

// fallingBall returns a simulator over one unit sphere at y=100 with
// nothing below it.
func fallingBall(t *testing.T) (*Simulator, body.Handle) {
	t.Helper()
	w, err := world.New(world.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	def := world.DefaultBodyDef(body.Dynamic)
	def.Position = mgl64.Vec3{0, 100, 0}
	h, err := w.CreateBody(def)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := geom.NewSphere(1)
	if _, err := w.AddShape(h, s, geom.Identity()); err != nil {
		t.Fatal(err)
	}
	return New(w, []body.Handle{h}, nil), h
}

type stepCounter struct {
	steps int
	last  State
}

func (c *stepCounter) Name() string                          { return "steps" }
func (c *stepCounter) Observe(*world.World, world.StepStats) { c.steps++ }
func (c *stepCounter) Value() float64                        { return float64(c.steps) }
func (c *stepCounter) Reset()                                { c.steps = 0 }
func (c *stepCounter) OnStep(x State, _ world.StepStats)     { c.last = x.Clone() }

func TestSimulatorRun(t *testing.T) {
	s, _ := fallingBall(t)
	counter := &stepCounter{}
	s.AddMetric(counter)
	s.AddObserver(counter)

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if result.StepsTaken != 10 || result.Metrics["steps"] != 10 {
		t.Errorf("steps = %d, metric = %v", result.StepsTaken, result.Metrics["steps"])
	}

	pos, vel := result.States[10].Body(0)
	wantY := 100 - 9.81*0.01*10*11/2
	if math.Abs(pos.Y()-wantY) > 1e-9 {
		t.Errorf("final y = %.6f, want %.6f", pos.Y(), wantY)
	}
	if math.Abs(vel.Y()+9.81) > 1e-9 {
		t.Errorf("final vy = %.6f, want -9.81", vel.Y())
	}
	if math.Abs(result.Times[10]-1.0) > 1e-9 {
		t.Errorf("final time = %v", result.Times[10])
	}
	if counter.last[1] != pos.Y() {
		t.Error("observer did not see the final state")
	}
}

func TestSimulatorRecordEvery(t *testing.T) {
	s, _ := fallingBall(t)
	result, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0, RecordEvery: 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.4, 0.8, 1.0}
	if len(result.Times) != len(want) {
		t.Fatalf("times = %v, want %v", result.Times, want)
	}
	for i := range want {
		if math.Abs(result.Times[i]-want[i]) > 1e-9 {
			t.Errorf("times[%d] = %v, want %v", i, result.Times[i], want[i])
		}
	}
	if result.StepsTaken != 10 {
		t.Errorf("steps = %d", result.StepsTaken)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s, _ := fallingBall(t)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"NaN dt", Config{Dt: math.NaN(), Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"negative record interval", Config{Dt: 0.1, Duration: 1.0, RecordEvery: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Run(context.Background(), tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSimulatorCancel(t *testing.T) {
	s, _ := fallingBall(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if result == nil || len(result.States) != 1 || result.StepsTaken != 0 {
		t.Errorf("cancelled result = %+v", result)
	}
}

func TestSimulatorDestroyedBody(t *testing.T) {
	s, h := fallingBall(t)
	if err := s.World().DestroyBody(h); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0}); !errors.Is(err, body.ErrStaleHandle) {
		t.Errorf("error = %v, want body.ErrStaleHandle", err)
	}
}

func TestRunWithCallback(t *testing.T) {
	s, _ := fallingBall(t)
	calls := 0
	var lastY float64
	err := s.RunWithCallback(context.Background(), Config{Dt: 0.1, Duration: 1.0}, func(x State, stats world.StepStats) bool {
		calls++
		lastY = x[1]
		return calls < 4
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 4 {
		t.Errorf("callback ran %d times, want 4", calls)
	}
	if s.World().StepCount() != 3 {
		t.Errorf("world stepped %d times, want 3", s.World().StepCount())
	}
	wantY := 100 - 9.81*0.01*3*4/2
	if math.Abs(lastY-wantY) > 1e-9 {
		t.Errorf("last y = %v, want %v", lastY, wantY)
	}
}

func TestResultRelease(t *testing.T) {
	s, _ := fallingBall(t)
	pool := NewStatePool()
	s.SetStatePool(pool)

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.States) != 6 || result.States[5].Bodies() != 1 {
		t.Fatalf("recorded %d states", len(result.States))
	}
	if y := result.States[0][1]; y != 100 {
		t.Errorf("first recorded y = %v, want 100", y)
	}

	result.Release()
	if result.States != nil || result.Times != nil {
		t.Error("released result still holds states")
	}
	if x := pool.Get(1); !x.IsValid() || x.Norm() != 0 {
		t.Errorf("recycled state not cleared: %v", x)
	}
}

func TestSimulationErrorUnwrap(t *testing.T) {
	err := error(&SimulationError{Step: 3, Time: 0.3, Wrapped: ErrInvalidState})
	if !errors.Is(err, ErrInvalidState) {
		t.Error("SimulationError does not unwrap")
	}
	var se *SimulationError
	if !errors.As(err, &se) || se.Step != 3 {
		t.Errorf("errors.As = %+v", se)
	}
}

func sphereFactory() Factory {
	reg := scenario.NewRegistry()
	return func(seed int64) (*Simulator, error) {
		p := scenario.DefaultParams()
		p.Seed = seed
		sc, err := reg.Build("spheres", world.DefaultConfig(), p)
		if err != nil {
			return nil, err
		}
		return FromScene(sc, nil), nil
	}
}

func TestEnsemble(t *testing.T) {
	cfg := Config{Dt: 1.0 / 60, Duration: 0.5}

	e := NewEnsemble(sphereFactory(), 3, 1)
	e.SetLimit(2)
	first, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 results, got %d", len(first))
	}
	if first[0].States[0][0] == first[1].States[0][0] {
		t.Error("different seeds produced the same layout")
	}

	again, err := NewEnsemble(sphereFactory(), 3, 1).Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		a, b := first[i].States[len(first[i].States)-1], again[i].States[len(again[i].States)-1]
		if a.Sub(b).Norm() != 0 {
			t.Errorf("run %d not reproducible: %v vs %v", i, a, b)
		}
	}
}

func TestEnsembleFactoryError(t *testing.T) {
	boom := errors.New("boom")
	e := NewEnsemble(func(seed int64) (*Simulator, error) {
		if seed == 2 {
			return nil, boom
		}
		return sphereFactory()(seed)
	}, 3, 0)
	if _, err := e.Run(context.Background(), Config{Dt: 1.0 / 60, Duration: 0.1}); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}
