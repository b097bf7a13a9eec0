package world

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/broadphase"
	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/integrators"
	"github.com/san-kum/rigidsim/internal/island"
	"github.com/san-kum/rigidsim/internal/narrowphase"
	"github.com/san-kum/rigidsim/internal/solver"
)

type bodyPair struct {
	a, b body.Handle
}

func makeBodyPair(a, b body.Handle) bodyPair {
	if b.Less(a) {
		a, b = b, a
	}
	return bodyPair{a, b}
}

type movedBody struct {
	body *body.Body
	from mgl64.Vec3
}

// World owns bodies, shapes and joints and advances them with Step.
type World struct {
	cfg      Config
	logger   *log.Logger
	observer Observer
	listener contact.Listener

	registry *body.Registry
	broad    *broadphase.BroadPhase
	dispatch *narrowphase.Dispatcher
	contacts *contact.Manager
	builder  *island.Builder[*solver.BallSocketJoint]
	pool     *solverPool
	sleep    *integrators.SleepPolicy
	integ    *integrators.SemiImplicit

	joints    []*solver.BallSocketJoint
	noCollide map[bodyPair]int

	set     narrowphase.ContactSet
	bodies  []*body.Body
	moved   []movedBody
	results []islandResult

	stats StepStats
	step  int
	time  float64
}

// New builds an empty world. The configuration is validated.
func New(cfg Config, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:       cfg,
		logger:    log.NewWithOptions(io.Discard, log.Options{Level: log.WarnLevel}),
		registry:  body.NewRegistry(),
		dispatch:  narrowphase.NewDispatcher(),
		builder:   island.NewBuilder[*solver.BallSocketJoint](),
		sleep:     integrators.NewSleepPolicy(cfg.sleepConfig()),
		integ:     integrators.NewSemiImplicit(),
		noCollide: make(map[bodyPair]int),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.dispatch.SetMargin(cfg.ContactMargin)
	w.broad = broadphase.New(cfg.AABBMargin, cfg.AABBDisplacementMultiplier, w.filterProxies)
	w.contacts = contact.NewManager(cfg.contactConfig(), w.listener)
	w.pool = newSolverPool(cfg.solverSettings(), w.logger)
	return w, nil
}

func (w *World) Config() Config { return w.cfg }

func (w *World) Gravity() mgl64.Vec3 { return w.cfg.Gravity }

// SetGravity changes gravity and wakes every body.
func (w *World) SetGravity(g mgl64.Vec3) {
	w.cfg.Gravity = g
	w.registry.Each(func(b *body.Body) bool {
		w.wake(b)
		return true
	})
}

func (w *World) SetContactListener(l contact.Listener) {
	w.listener = l
	w.contacts.SetListener(l)
}

func (w *World) SetObserver(o Observer) { w.observer = o }

// Stats returns the statistics of the last step.
func (w *World) Stats() StepStats { return w.stats }

// Time is the simulated time in seconds.
func (w *World) Time() float64 { return w.time }

// StepCount is the number of completed steps.
func (w *World) StepCount() int { return w.step }

// Step advances the world by dt seconds. An invalid dt is logged and the
// step skipped. A panic during the step is logged and the step abandoned
// without being counted; bodies keep whatever state they reached.
func (w *World) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		w.logger.Warn("world: step skipped", "err", ErrInvalidTimeStep, "dt", dt)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("world: step failed", "panic", r, "step", w.step)
			w.abandonStep()
		}
	}()

	start := time.Now()
	stats := StepStats{Step: w.step}
	w.dispatch.ResetStats()

	mark := time.Now()
	pairs := w.broad.UpdatePairs()
	stats.Pairs = len(pairs)
	mark = w.phaseDone(&stats, PhaseBroad, mark)

	w.collide(pairs)
	nstats := w.dispatch.Stats()
	stats.NarrowTests = nstats.Tests
	stats.EPAFailed = nstats.EPAFailed
	mark = w.phaseDone(&stats, PhaseNarrow, mark)

	w.bodies = w.registry.Bodies(w.bodies[:0])
	manifolds := w.contacts.Manifolds()
	islands := w.builder.Build(w.bodies, manifolds, w.joints)
	stats.Woken += w.builder.Woken()
	mark = w.phaseDone(&stats, PhaseIslands, mark)

	w.moved = w.moved[:0]
	for _, isl := range islands {
		for _, b := range isl.Bodies {
			w.moved = append(w.moved, movedBody{body: b, from: b.Position()})
		}
	}
	sstats, slept := w.solveIslands(islands, dt)
	w.moveKinematic(dt)
	stats.Islands = sstats.Islands
	stats.VelocityIterations = sstats.VelocityIterations
	stats.PositionIterations = sstats.PositionIterations
	stats.Skipped = sstats.Skipped
	stats.MaxPenetration = sstats.MaxPenetration
	stats.FellAsleep = slept
	mark = w.phaseDone(&stats, PhaseSolve, mark)

	w.syncProxies()
	for _, b := range w.bodies {
		b.ClearForces()
		stats.Bodies++
		switch {
		case b.IsAwake():
			stats.Awake++
		case b.IsSleeping():
			stats.Sleeping++
		}
	}
	stats.Manifolds = w.contacts.Len()
	for _, m := range w.contacts.Manifolds() {
		stats.ContactPoints += len(m.Points)
	}
	w.phaseDone(&stats, PhaseSync, mark)
	clear(w.bodies)
	w.bodies = w.bodies[:0]

	w.step++
	w.time += dt
	stats.Time = w.time
	stats.Duration = time.Since(start)
	w.stats = stats
	if w.observer != nil {
		w.observer.StepDone(stats)
	}
}

func (w *World) phaseDone(stats *StepStats, p Phase, since time.Time) time.Time {
	now := time.Now()
	d := now.Sub(since)
	stats.Phases[p] = d
	if w.observer != nil {
		w.observer.PhaseDone(p, d)
	}
	return now
}

// collide runs the narrow phase over the broad-phase pairs and refreshes
// the manifolds. Pairs where neither body is awake keep their manifold
// untouched.
func (w *World) collide(pairs []broadphase.Pair) {
	w.contacts.Begin()
	for _, pair := range pairs {
		pa, errA := w.registry.Proxy(body.ProxyID(w.broad.Data(pair.A)))
		pb, errB := w.registry.Proxy(body.ProxyID(w.broad.Data(pair.B)))
		if errA != nil || errB != nil {
			w.logger.Debug("world: pair references missing proxy", "a", pair.A, "b", pair.B)
			continue
		}
		if pb.ID() < pa.ID() {
			pa, pb = pb, pa
		}
		ba, bb := pa.Body(), pb.Body()
		if !ba.IsAwake() && !bb.IsAwake() {
			w.contacts.Keep(pa.ID(), pb.ID())
			continue
		}
		if !w.dispatch.Collide(pa.Shape(), pa.WorldTransform(), pb.Shape(), pb.WorldTransform(), &w.set) {
			continue
		}
		fresh := w.contacts.Get(pa.ID(), pb.ID()) == nil
		w.contacts.Update(pa, pb, &w.set)
		if fresh {
			w.wake(ba)
			w.wake(bb)
		}
	}
	w.contacts.End()
}

// moveKinematic advances active kinematic bodies along their velocities.
func (w *World) moveKinematic(dt float64) {
	var s integrators.State
	for _, b := range w.bodies {
		if b.Type() != body.Kinematic || !b.IsAwake() {
			continue
		}
		if b.LinearVelocity().LenSqr() == 0 && b.AngularVelocity().LenSqr() == 0 {
			continue
		}
		w.moved = append(w.moved, movedBody{body: b, from: b.Position()})
		s.Load(b)
		w.integ.Positions(&s, dt)
		s.Store()
	}
}

// syncProxies refits the broad-phase boxes of every body that moved.
func (w *World) syncProxies() {
	for _, m := range w.moved {
		disp := m.body.Position().Sub(m.from)
		for _, p := range m.body.Shapes() {
			if p.TreeID() != body.NoTreeNode {
				w.broad.MoveProxy(p.TreeID(), p.AABB(), disp)
			}
		}
	}
	clear(w.moved)
	w.moved = w.moved[:0]
}

// abandonStep leaves the world consistent after a failed step: proxies of
// bodies that already moved are refitted and accumulated forces dropped.
func (w *World) abandonStep() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("world: cleanup after failed step", "panic", r)
		}
		clear(w.bodies)
		w.bodies = w.bodies[:0]
		clear(w.moved)
		w.moved = w.moved[:0]
	}()
	w.syncProxies()
	w.registry.Each(func(b *body.Body) bool {
		b.ClearForces()
		return true
	})
}

// filterProxies is the broad-phase pair filter.
func (w *World) filterProxies(a, b int) bool {
	pa, err := w.registry.Proxy(body.ProxyID(a))
	if err != nil {
		return false
	}
	pb, err := w.registry.Proxy(body.ProxyID(b))
	if err != nil {
		return false
	}
	return w.shouldCollide(pa, pb)
}

func (w *World) shouldCollide(pa, pb *body.ProxyShape) bool {
	ba, bb := pa.Body(), pb.Body()
	if ba == bb {
		return false
	}
	if !ba.IsDynamic() && !bb.IsDynamic() {
		return false
	}
	if !ba.IsActive() || !bb.IsActive() {
		return false
	}
	return w.noCollide[makeBodyPair(ba.Handle(), bb.Handle())] == 0
}

// wake resets the rest timer of a non-static body and wakes it.
func (w *World) wake(b *body.Body) {
	if b.Type() == body.Static {
		return
	}
	b.SetSleeping(false)
}

// wakeTouching wakes b and every body sharing a manifold or joint with it.
func (w *World) wakeTouching(b *body.Body) {
	w.wake(b)
	for _, m := range w.contacts.Manifolds() {
		switch b {
		case m.BodyA():
			w.wake(m.BodyB())
		case m.BodyB():
			w.wake(m.BodyA())
		}
	}
	for _, j := range w.joints {
		ja, jb := j.Bodies()
		switch b {
		case ja:
			w.wake(jb)
		case jb:
			w.wake(ja)
		}
	}
}
