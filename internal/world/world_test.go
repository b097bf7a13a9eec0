package world

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/geom"
)

const dt = 1.0 / 60

func newTestWorld(t *testing.T, mutate func(*Config)) *World {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func addBody(t *testing.T, w *World, typ body.Type, pos mgl64.Vec3, s geom.Shape) body.Handle {
	t.Helper()
	def := DefaultBodyDef(typ)
	def.Position = pos
	h, err := w.CreateBody(def)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddShape(h, s, geom.Identity()); err != nil {
		t.Fatal(err)
	}
	return h
}

func addFloor(t *testing.T, w *World) body.Handle {
	t.Helper()
	s, _ := geom.NewBox(20, 0.5, 20)
	return addBody(t, w, body.Static, mgl64.Vec3{0, -0.5, 0}, s)
}

func sphere(r float64) geom.Shape {
	s, _ := geom.NewSphere(r)
	return s
}

func cube(h float64) geom.Shape {
	s, _ := geom.NewBox(h, h, h)
	return s
}

func mustBody(t *testing.T, w *World, h body.Handle) *body.Body {
	t.Helper()
	b, err := w.Body(h)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no velocity iterations", func(c *Config) { c.VelocityIterations = 0 }},
		{"negative position iterations", func(c *Config) { c.PositionIterations = -1 }},
		{"too many manifold points", func(c *Config) { c.MaxManifoldPoints = 5 }},
		{"negative margin", func(c *Config) { c.AABBMargin = -1 }},
		{"baumgarte above one", func(c *Config) { c.Baumgarte = 2 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"nan gravity", func(c *Config) { c.Gravity = mgl64.Vec3{0, math.NaN(), 0} }},
		{"negative sleep time", func(c *Config) { c.TimeBeforeSleep = -1 }},
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestStepRejectsBadTimeStep(t *testing.T) {
	w := newTestWorld(t, nil)
	h := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 5, 0}, sphere(0.5))

	for _, bad := range []float64{0, -dt, math.NaN(), math.Inf(1)} {
		w.Step(bad)
	}
	if w.StepCount() != 0 {
		t.Fatalf("step count = %d, want 0", w.StepCount())
	}
	if y := mustBody(t, w, h).Position().Y(); y != 5 {
		t.Errorf("body moved to %v on a rejected step", y)
	}

	w.Step(dt)
	if w.StepCount() != 1 || math.Abs(w.Time()-dt) > 1e-15 {
		t.Errorf("after one step: count %d, time %v", w.StepCount(), w.Time())
	}
}

func TestHandleErrors(t *testing.T) {
	w := newTestWorld(t, nil)
	h := addBody(t, w, body.Dynamic, mgl64.Vec3{}, sphere(0.5))
	if err := w.DestroyBody(h); err != nil {
		t.Fatal(err)
	}

	ops := []struct {
		name string
		call func() error
	}{
		{"body", func() error { _, err := w.Body(h); return err }},
		{"destroy", func() error { return w.DestroyBody(h) }},
		{"add shape", func() error { _, err := w.AddShape(h, sphere(1), geom.Identity()); return err }},
		{"set transform", func() error { return w.SetTransform(h, geom.Identity()) }},
		{"apply force", func() error { return w.ApplyForce(h, mgl64.Vec3{1, 0, 0}) }},
		{"wake", func() error { return w.Wake(h) }},
		{"set type", func() error { return w.SetType(h, body.Static) }},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			err := op.call()
			if !errors.Is(err, body.ErrStaleHandle) {
				t.Fatalf("error = %v, want stale handle", err)
			}
			var he *body.HandleError
			if !errors.As(err, &he) || he.Handle != h {
				t.Errorf("error %v does not carry the handle", err)
			}
		})
	}

	if _, err := w.Body(body.Handle{}); !errors.Is(err, body.ErrInvalidHandle) {
		t.Errorf("zero handle error = %v", err)
	}

	// slot reuse must not revive the old handle
	h2 := addBody(t, w, body.Dynamic, mgl64.Vec3{}, sphere(0.5))
	if h2 == h {
		t.Fatal("handle reused with the same generation")
	}
	if _, err := w.Body(h); !errors.Is(err, body.ErrStaleHandle) {
		t.Errorf("old handle error = %v", err)
	}
}

func TestFreeFallMatchesIntegrator(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.SleepingEnabled = false })
	h := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 100, 0}, sphere(0.5))
	for i := 0; i < 60; i++ {
		w.Step(dt)
	}
	b := mustBody(t, w, h)
	if v := b.LinearVelocity().Y(); math.Abs(v+9.81) > 1e-9 {
		t.Errorf("velocity after 1s = %v, want -9.81", v)
	}
	want := 100 - 9.81*dt*dt*60*61/2
	if y := b.Position().Y(); math.Abs(y-want) > 1e-9 {
		t.Errorf("height = %v, want %v", y, want)
	}
}

func TestGravityScaleDefaults(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.SleepingEnabled = false })
	plain, err := w.CreateBody(BodyDef{Type: body.Dynamic, Position: mgl64.Vec3{0, 100, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddShape(plain, sphere(0.5), geom.Identity()); err != nil {
		t.Fatal(err)
	}
	floating := addBody(t, w, body.Dynamic, mgl64.Vec3{5, 100, 0}, sphere(0.5))
	if err := w.SetGravityScale(floating, 0); err != nil {
		t.Fatal(err)
	}

	w.Step(dt)
	if v := mustBody(t, w, plain).LinearVelocity().Y(); math.Abs(v+9.81*dt) > 1e-12 {
		t.Errorf("zero-value def: velocity %v, want full gravity", v)
	}
	if v := mustBody(t, w, floating).LinearVelocity(); v != (mgl64.Vec3{}) {
		t.Errorf("gravity scale 0 still moves the body: %v", v)
	}
}

type eventLog struct {
	added, persisted, removed int
}

func (e *eventLog) ContactAdded(contact.Event)     { e.added++ }
func (e *eventLog) ContactPersisted(contact.Event) { e.persisted++ }
func (e *eventLog) ContactRemoved(contact.Event)   { e.removed++ }

func TestContactEvents(t *testing.T) {
	events := &eventLog{}
	w, err := New(DefaultConfig(), WithContactListener(events))
	if err != nil {
		t.Fatal(err)
	}
	addFloor(t, w)
	ball := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 1, 0}, sphere(0.5))

	for i := 0; i < 60; i++ {
		w.Step(dt)
	}
	if events.added != 1 {
		t.Errorf("added = %d, want 1", events.added)
	}
	if events.persisted == 0 {
		t.Error("no persisted events while resting")
	}
	contacts := w.Contacts()
	if len(contacts) != 1 || contacts[0].BodyB != ball {
		t.Fatalf("contacts = %+v", contacts)
	}
	if n := contacts[0].Normal; math.Abs(n.Y()-1) > 1e-6 {
		t.Errorf("normal = %v, want +Y from floor to ball", n)
	}

	if err := w.DestroyBody(ball); err != nil {
		t.Fatal(err)
	}
	if events.removed != 1 {
		t.Errorf("removed = %d, want 1", events.removed)
	}
	if len(w.Contacts()) != 0 {
		t.Error("contacts survive the body")
	}
}

type phaseCounter struct {
	phases map[Phase]int
	steps  []StepStats
}

func (p *phaseCounter) PhaseDone(ph Phase, _ time.Duration) { p.phases[ph]++ }
func (p *phaseCounter) StepDone(s StepStats)                { p.steps = append(p.steps, s) }

func TestObserver(t *testing.T) {
	obs := &phaseCounter{phases: make(map[Phase]int)}
	w, err := New(DefaultConfig(), WithObserver(obs))
	if err != nil {
		t.Fatal(err)
	}
	addFloor(t, w)
	addBody(t, w, body.Dynamic, mgl64.Vec3{0, 0.5, 0}, cube(0.5))

	for i := 0; i < 5; i++ {
		w.Step(dt)
	}
	for ph := PhaseBroad; ph < numPhases; ph++ {
		if obs.phases[ph] != 5 {
			t.Errorf("phase %v seen %d times, want 5", ph, obs.phases[ph])
		}
	}
	if len(obs.steps) != 5 {
		t.Fatalf("steps = %d", len(obs.steps))
	}
	last := obs.steps[4]
	if last.Step != 4 || last.Bodies != 2 || last.Manifolds != 1 || last.ContactPoints != 4 || last.Islands != 1 {
		t.Errorf("last stats = %+v", last)
	}
	if w.Stats() != last {
		t.Error("Stats() differs from the observed step")
	}
}

// failingObserver panics once when the solve phase reports.
type failingObserver struct{ fired bool }

func (f *failingObserver) PhaseDone(ph Phase, _ time.Duration) {
	if ph == PhaseSolve && !f.fired {
		f.fired = true
		panic("observer failure")
	}
}
func (f *failingObserver) StepDone(StepStats) {}

func TestFailedStepLeavesWorldConsistent(t *testing.T) {
	obs := &failingObserver{}
	w := newTestWorld(t, func(c *Config) { c.SleepingEnabled = false })
	w.SetObserver(obs)
	h := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 10, 0}, cube(0.5))
	if err := w.SetLinearVelocity(h, mgl64.Vec3{120, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := w.ApplyForce(h, mgl64.Vec3{0, 50, 0}); err != nil {
		t.Fatal(err)
	}

	w.Step(dt)
	if !obs.fired {
		t.Fatal("observer never failed")
	}
	if w.StepCount() != 0 {
		t.Errorf("failed step counted: %d", w.StepCount())
	}
	b := mustBody(t, w, h)
	if b.Position().X() < 1 {
		t.Fatalf("body did not move before the failure: %v", b.Position())
	}
	if b.Force() != (mgl64.Vec3{}) {
		t.Errorf("force survived the failed step: %v", b.Force())
	}
	p := b.Shapes()[0]
	if fat := w.broad.FatAABB(p.TreeID()); !fat.Contains(p.AABB()) {
		t.Errorf("broad phase box %v does not cover %v", fat, p.AABB())
	}

	w.Step(dt)
	if w.StepCount() != 1 {
		t.Errorf("step count = %d after recovery, want 1", w.StepCount())
	}
}

func TestSetActive(t *testing.T) {
	w := newTestWorld(t, nil)
	addFloor(t, w)
	h := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 0.5, 0}, cube(0.5))
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Fatal("expected a floor contact")
	}

	if err := w.SetActive(h, false); err != nil {
		t.Fatal(err)
	}
	pos := mustBody(t, w, h).Position()
	for i := 0; i < 10; i++ {
		w.Step(dt)
	}
	if len(w.Contacts()) != 0 {
		t.Error("inactive body kept contacts")
	}
	if mustBody(t, w, h).Position() != pos {
		t.Error("inactive body moved")
	}
	if _, ok := w.Raycast(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{0, 0.5, 0}); ok {
		t.Error("raycast hit an inactive body")
	}

	if err := w.SetActive(h, true); err != nil {
		t.Fatal(err)
	}
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Error("reactivated body did not collide")
	}
}

func TestJointFiltersCollision(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.Gravity = mgl64.Vec3{} })
	a := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 0, 0}, sphere(0.5))
	b := addBody(t, w, body.Dynamic, mgl64.Vec3{0.8, 0, 0}, sphere(0.5))
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Fatal("overlapping spheres produced no contact")
	}

	j, err := w.CreateBallSocketJoint(a, b, mgl64.Vec3{0.4, 0, 0}, false)
	if err != nil {
		t.Fatal(err)
	}
	w.Step(dt)
	if len(w.Contacts()) != 0 {
		t.Error("jointed bodies still collide")
	}

	if err := w.DestroyJoint(j); err != nil {
		t.Fatal(err)
	}
	if err := w.DestroyJoint(j); !errors.Is(err, ErrUnknownJoint) {
		t.Errorf("second destroy error = %v", err)
	}
	w.Step(dt)
	if len(w.Contacts()) != 1 {
		t.Error("collision not restored after joint removal")
	}

	if _, err := w.CreateBallSocketJoint(a, a, mgl64.Vec3{}, false); !errors.Is(err, ErrJointBodies) {
		t.Errorf("self joint error = %v", err)
	}
}

func TestQueries(t *testing.T) {
	w := newTestWorld(t, nil)
	floor := addFloor(t, w)
	ball := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 3, 0}, sphere(0.5))
	box := addBody(t, w, body.Dynamic, mgl64.Vec3{5, 3, 0}, cube(0.5))

	hit, ok := w.Raycast(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -10, 0})
	if !ok || hit.Body != ball {
		t.Fatalf("raycast hit %+v, want the ball", hit)
	}
	if math.Abs(hit.Point.Y()-3.5) > 1e-9 || math.Abs(hit.Normal.Y()-1) > 1e-9 {
		t.Errorf("hit point %v normal %v", hit.Point, hit.Normal)
	}

	count := 0
	w.RaycastAll(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{0, -10, 0}, func(RaycastHit) bool {
		count++
		return true
	})
	if count != 2 {
		t.Errorf("RaycastAll hits = %d, want 2", count)
	}

	var found []body.Handle
	w.QueryAABB(geom.NewAABB(mgl64.Vec3{4, 2, -1}, mgl64.Vec3{6, 4, 1}), func(p *body.ProxyShape) bool {
		found = append(found, p.Body().Handle())
		return true
	})
	if len(found) != 1 || found[0] != box {
		t.Errorf("QueryAABB found %v, want the box", found)
	}

	if in, _ := w.TestPointInside(ball, mgl64.Vec3{0, 3.2, 0}); !in {
		t.Error("point in ball reported outside")
	}
	if over, _ := w.TestOverlap(ball, floor); over {
		t.Error("separated bodies overlap")
	}
	if err := w.SetTransform(ball, geom.Translation(5, 3.8, 0)); err != nil {
		t.Fatal(err)
	}
	if over, _ := w.TestOverlap(ball, box); !over {
		t.Error("touching bodies do not overlap")
	}
}

func TestKinematicWakesSleepers(t *testing.T) {
	w := newTestWorld(t, nil)
	addFloor(t, w)
	boxH := addBody(t, w, body.Dynamic, mgl64.Vec3{0, 0.5, 0}, cube(0.5))
	for i := 0; i < 180; i++ {
		w.Step(dt)
	}
	box := mustBody(t, w, boxH)
	if !box.IsSleeping() {
		t.Fatal("resting box never slept")
	}

	def := DefaultBodyDef(body.Kinematic)
	def.Position = mgl64.Vec3{-2.5, 0.5, 0}
	def.LinearVelocity = mgl64.Vec3{2, 0, 0}
	pusher, err := w.CreateBody(def)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.AddShape(pusher, cube(0.5), geom.Identity()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 60; i++ {
		w.Step(dt)
	}
	p := mustBody(t, w, pusher).Position()
	if math.Abs(p.X()+0.5) > 1e-9 {
		t.Errorf("kinematic x = %v, want -0.5", p.X())
	}
	if box.IsSleeping() {
		t.Error("box slept through the push")
	}
	if box.Position().X() < 0.05 {
		t.Errorf("box not pushed: x = %v", box.Position().X())
	}
}

func TestShapeLifecycle(t *testing.T) {
	w := newTestWorld(t, nil)
	h := addBody(t, w, body.Dynamic, mgl64.Vec3{}, sphere(0.5))
	p, err := w.AddShape(h, cube(0.25), geom.Translation(1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	b := mustBody(t, w, h)
	if len(b.Shapes()) != 2 || p.Index() != 1 {
		t.Fatalf("shapes = %d, index = %d", len(b.Shapes()), p.Index())
	}
	if _, err := w.AddShape(h, nil, geom.Identity()); !errors.Is(err, body.ErrNoShape) {
		t.Errorf("nil shape error = %v", err)
	}
	if err := w.RemoveShape(h, 1); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveShape(h, 1); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("second remove error = %v", err)
	}
	if len(b.Shapes()) != 1 {
		t.Errorf("shapes = %d, want 1", len(b.Shapes()))
	}
}
