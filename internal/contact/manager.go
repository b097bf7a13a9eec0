package contact

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/narrowphase"
)

const (
	DefaultTolerance = 0.03
)

type Config struct {
	// MaxPoints caps each manifold, between 1 and 4.
	MaxPoints int
	// Tolerance is the anchor distance within which a new point inherits
	// an old point's impulses.
	Tolerance float64
	Reduction Reduction
}

func DefaultConfig() Config {
	return Config{MaxPoints: MaxPoints, Tolerance: DefaultTolerance, Reduction: ReduceArea}
}

type EventType uint8

const (
	Added EventType = iota
	Persisted
	Removed
)

func (t EventType) String() string {
	switch t {
	case Added:
		return "added"
	case Persisted:
		return "persisted"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event describes a manifold change for listeners.
type Event struct {
	Type     EventType
	BodyA    body.Handle
	BodyB    body.Handle
	ShapeA   int
	ShapeB   int
	Normal   mgl64.Vec3
	Points   int
	MaxDepth float64
}

// Listener receives manifold lifecycle events synchronously during a step.
type Listener interface {
	ContactAdded(Event)
	ContactPersisted(Event)
	ContactRemoved(Event)
}

// Manager owns the persistent manifolds. Per step the world calls Begin,
// then Update or Keep for each live pair, then End, which drops the rest.
type Manager struct {
	cfg       Config
	listener  Listener
	manifolds map[Key]*Manifold
	sorted    []*Manifold
	dirty     bool

	candidates []candidate
}

func NewManager(cfg Config, listener Listener) *Manager {
	if cfg.MaxPoints <= 0 || cfg.MaxPoints > MaxPoints {
		cfg.MaxPoints = MaxPoints
	}
	return &Manager{
		cfg:       cfg,
		listener:  listener,
		manifolds: make(map[Key]*Manifold),
	}
}

func (m *Manager) SetListener(l Listener) { m.listener = l }

func (m *Manager) Len() int { return len(m.manifolds) }

// Manifolds returns every manifold ordered by key.
func (m *Manager) Manifolds() []*Manifold {
	m.sort()
	return m.sorted
}

func (m *Manager) Get(a, b body.ProxyID) *Manifold {
	return m.manifolds[MakeKey(a, b)]
}

func (m *Manager) Begin() {
	for _, mf := range m.manifolds {
		mf.touched = false
	}
}

// Update merges a fresh contact set into the manifold of pa and pb. pa must
// have the smaller proxy id and the set must be computed in that order.
func (m *Manager) Update(pa, pb *body.ProxyShape, set *narrowphase.ContactSet) *Manifold {
	key := Key{A: pa.ID(), B: pb.ID()}
	mf, exists := m.manifolds[key]
	if !exists {
		mf = &Manifold{Key: key, ProxyA: pa, ProxyB: pb, Points: make([]Point, 0, MaxPoints)}
		m.manifolds[key] = mf
		m.dirty = true
	}

	m.candidates = m.candidates[:0]
	for _, p := range set.Points {
		m.candidates = append(m.candidates, candidate{world: p.WorldA, depth: p.Depth})
	}
	keep := reduce(m.candidates, set.Normal, m.cfg.MaxPoints, m.cfg.Reduction)

	var old [MaxPoints]Point
	n := copy(old[:], mf.Points)
	var used [MaxPoints]bool
	tol2 := m.cfg.Tolerance * m.cfg.Tolerance

	mf.Points = mf.Points[:0]
	for _, i := range keep {
		src := set.Points[i]
		pt := Point{
			LocalA: pa.BodyPoint(src.LocalA),
			LocalB: pb.BodyPoint(src.LocalB),
			Depth:  src.Depth,
		}
		best, bestScore := -1, tol2
		for j := 0; j < n; j++ {
			if used[j] {
				continue
			}
			da := pt.LocalA.Sub(old[j].LocalA).LenSqr()
			db := pt.LocalB.Sub(old[j].LocalB).LenSqr()
			if score := min(da, db); score <= bestScore && (best < 0 || score < bestScore) {
				best, bestScore = j, score
			}
		}
		if best >= 0 {
			used[best] = true
			pt.NormalImpulse = old[best].NormalImpulse
			pt.TangentImpulse = old[best].TangentImpulse
			pt.Persisted = true
		}
		mf.Points = append(mf.Points, pt)
	}

	ba, bb := pa.Body(), pb.Body()
	mf.Normal = set.Normal
	mf.Friction = body.MixFriction(ba.Material().Friction, bb.Material().Friction)
	mf.Restitution = body.MixRestitution(ba.Material().Restitution, bb.Material().Restitution)
	mf.touched = true

	if exists {
		m.emit(Persisted, mf)
	} else {
		m.emit(Added, mf)
	}
	return mf
}

// Keep retains a manifold unchanged this step, as for sleeping pairs. It
// reports whether the manifold exists.
func (m *Manager) Keep(a, b body.ProxyID) bool {
	mf, ok := m.manifolds[MakeKey(a, b)]
	if ok {
		mf.touched = true
	}
	return ok
}

// End removes every manifold not updated or kept since Begin.
func (m *Manager) End() {
	m.RemoveIf(func(mf *Manifold) bool { return !mf.touched })
}

// RemoveIf drops matching manifolds in key order, emitting Removed.
func (m *Manager) RemoveIf(pred func(*Manifold) bool) int {
	m.sort()
	removed := 0
	kept := m.sorted[:0]
	for _, mf := range m.sorted {
		if pred(mf) {
			delete(m.manifolds, mf.Key)
			m.emit(Removed, mf)
			removed++
			continue
		}
		kept = append(kept, mf)
	}
	for i := len(kept); i < len(m.sorted); i++ {
		m.sorted[i] = nil
	}
	m.sorted = kept
	return removed
}

// RemoveBody drops every manifold touching b.
func (m *Manager) RemoveBody(b *body.Body) int {
	return m.RemoveIf(func(mf *Manifold) bool {
		return mf.BodyA() == b || mf.BodyB() == b
	})
}

// RemoveProxy drops every manifold of one shape.
func (m *Manager) RemoveProxy(id body.ProxyID) int {
	return m.RemoveIf(func(mf *Manifold) bool {
		return mf.Key.A == id || mf.Key.B == id
	})
}

func (m *Manager) sort() {
	if !m.dirty && len(m.sorted) == len(m.manifolds) {
		return
	}
	m.sorted = m.sorted[:0]
	for _, mf := range m.manifolds {
		m.sorted = append(m.sorted, mf)
	}
	sort.Slice(m.sorted, func(i, j int) bool { return m.sorted[i].Key.Less(m.sorted[j].Key) })
	m.dirty = false
}

func (m *Manager) emit(t EventType, mf *Manifold) {
	if m.listener == nil {
		return
	}
	e := Event{
		Type:     t,
		BodyA:    mf.BodyA().Handle(),
		BodyB:    mf.BodyB().Handle(),
		ShapeA:   mf.ProxyA.Index(),
		ShapeB:   mf.ProxyB.Index(),
		Normal:   mf.Normal,
		Points:   len(mf.Points),
		MaxDepth: mf.MaxDepth(),
	}
	switch t {
	case Added:
		m.listener.ContactAdded(e)
	case Persisted:
		m.listener.ContactPersisted(e)
	case Removed:
		m.listener.ContactRemoved(e)
	}
}
