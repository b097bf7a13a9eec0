package island

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/geom"
)

type link struct{ a, b *body.Body }

func (l link) Bodies() (*body.Body, *body.Body) { return l.a, l.b }

type scene struct {
	t      *testing.T
	reg    *body.Registry
	bodies []*body.Body
	shapes []*body.ProxyShape
}

func newScene(t *testing.T, types ...body.Type) *scene {
	s := &scene{t: t, reg: body.NewRegistry()}
	sphere, _ := geom.NewSphere(0.5)
	for i, typ := range types {
		b := s.reg.Create(typ, geom.Translation(float64(i), 0, 0))
		p, err := s.reg.AddShape(b, sphere, geom.Identity())
		if err != nil {
			t.Fatal(err)
		}
		s.bodies = append(s.bodies, b)
		s.shapes = append(s.shapes, p)
	}
	return s
}

func (s *scene) touch(i, j int) *contact.Manifold {
	return &contact.Manifold{
		Key:    contact.MakeKey(s.shapes[i].ID(), s.shapes[j].ID()),
		ProxyA: s.shapes[i],
		ProxyB: s.shapes[j],
		Normal: mgl64.Vec3{1, 0, 0},
		Points: []contact.Point{{Depth: 0.01}},
	}
}

func members(isl *Island[link]) []body.Handle {
	out := make([]body.Handle, len(isl.Bodies))
	for i, b := range isl.Bodies {
		out[i] = b.Handle()
	}
	return out
}

func TestBuildComponents(t *testing.T) {
	d, st := body.Dynamic, body.Static
	s := newScene(t, d, d, st, d, d, d)
	// 0-1 touch, 1-2 static, 2-3 static: 0,1 and 3 stay apart through the
	// static body; 4-5 joined by a joint.
	manifolds := []*contact.Manifold{s.touch(0, 1), s.touch(1, 2), s.touch(2, 3)}
	joints := []link{{s.bodies[4], s.bodies[5]}}

	islands := NewBuilder[link]().Build(s.bodies, manifolds, joints)
	if len(islands) != 3 {
		t.Fatalf("islands = %d, want 3", len(islands))
	}

	tests := []struct {
		name      string
		bodies    []int
		manifolds int
		joints    int
	}{
		{"pair on static", []int{0, 1}, 2, 0},
		{"single on static", []int{3}, 1, 0},
		{"jointed", []int{4, 5}, 0, 1},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isl := islands[i]
			got := members(isl)
			if len(got) != len(tt.bodies) {
				t.Fatalf("members = %v", got)
			}
			for k, idx := range tt.bodies {
				if got[k] != s.bodies[idx].Handle() {
					t.Errorf("member %d = %v, want %v", k, got[k], s.bodies[idx].Handle())
				}
			}
			if len(isl.Manifolds) != tt.manifolds {
				t.Errorf("manifolds = %d, want %d", len(isl.Manifolds), tt.manifolds)
			}
			if len(isl.Joints) != tt.joints {
				t.Errorf("joints = %d, want %d", len(isl.Joints), tt.joints)
			}
		})
	}
}

func TestBuildSleeping(t *testing.T) {
	d := body.Dynamic
	s := newScene(t, d, d, d, d)
	for _, b := range s.bodies {
		b.SetSleeping(true)
	}
	manifolds := []*contact.Manifold{s.touch(0, 1), s.touch(2, 3)}
	bld := NewBuilder[link]()

	if islands := bld.Build(s.bodies, manifolds, nil); len(islands) != 0 {
		t.Fatalf("sleeping bodies produced %d islands", len(islands))
	}

	s.bodies[1].SetSleeping(false)
	islands := bld.Build(s.bodies, manifolds, nil)
	if len(islands) != 1 {
		t.Fatalf("islands = %d, want 1", len(islands))
	}
	if !s.bodies[0].IsAwake() {
		t.Error("partner of an awake body left asleep")
	}
	if !s.bodies[2].IsSleeping() || !s.bodies[3].IsSleeping() {
		t.Error("unrelated group woken")
	}
	if bld.Woken() != 1 {
		t.Errorf("woken = %d, want 1", bld.Woken())
	}
}

func TestBuildKinematic(t *testing.T) {
	s := newScene(t, body.Kinematic, body.Dynamic, body.Dynamic)
	s.bodies[1].SetSleeping(true)
	s.bodies[2].SetSleeping(true)
	manifolds := []*contact.Manifold{s.touch(0, 1), s.touch(0, 2)}
	bld := NewBuilder[link]()

	if islands := bld.Build(s.bodies, manifolds, nil); len(islands) != 0 {
		t.Fatalf("resting kinematic woke %d islands", len(islands))
	}

	s.bodies[0].SetLinearVelocity(mgl64.Vec3{1, 0, 0})
	islands := bld.Build(s.bodies, manifolds, nil)
	// the kinematic body does not merge what it touches
	if len(islands) != 2 {
		t.Fatalf("islands = %d, want 2", len(islands))
	}
	for _, isl := range islands {
		if len(isl.Bodies) != 1 || len(isl.Manifolds) != 1 {
			t.Errorf("island = %v bodies, %d manifolds", members(isl), len(isl.Manifolds))
		}
	}
}

func TestBuildSkipsInactiveAndEmpty(t *testing.T) {
	d := body.Dynamic
	s := newScene(t, d, d, d)
	s.bodies[1].SetActive(false)
	empty := s.touch(0, 2)
	empty.Points = nil
	manifolds := []*contact.Manifold{s.touch(0, 1), empty}

	islands := NewBuilder[link]().Build(s.bodies, manifolds, nil)
	if len(islands) != 2 {
		t.Fatalf("islands = %d, want 2", len(islands))
	}
	if len(islands[0].Manifolds) != 0 {
		t.Errorf("manifold to inactive body attached")
	}
}

func TestBuildReuse(t *testing.T) {
	d := body.Dynamic
	s := newScene(t, d, d, d)
	bld := NewBuilder[link]()
	manifolds := []*contact.Manifold{s.touch(0, 1), s.touch(1, 2)}

	for i := 0; i < 3; i++ {
		islands := bld.Build(s.bodies, manifolds, nil)
		if len(islands) != 1 || len(islands[0].Bodies) != 3 || len(islands[0].Manifolds) != 2 {
			t.Fatalf("round %d: unexpected islands", i)
		}
	}
	islands := bld.Build(s.bodies, nil, nil)
	if len(islands) != 3 {
		t.Fatalf("islands = %d, want 3", len(islands))
	}
	for _, isl := range islands {
		if len(isl.Bodies) != 1 || len(isl.Manifolds) != 0 {
			t.Errorf("stale island contents: %d bodies, %d manifolds", len(isl.Bodies), len(isl.Manifolds))
		}
	}
}
