package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/scenario"
)

func TestCanvasPixels(t *testing.T) {
	c := NewCanvas(4, 2)
	if w, h := c.Pixels(); w != 8 || h != 8 {
		t.Fatalf("Pixels() = %d, %d", w, h)
	}

	c.Set(3, 5)
	if !c.IsSet(3, 5) {
		t.Error("pixel not set")
	}
	if c.Grid[1][1] != brailleBase|0x10 {
		t.Errorf("cell = %#x", c.Grid[1][1])
	}
	c.Unset(3, 5)
	if c.IsSet(3, 5) || c.Grid[1][1] != brailleBase {
		t.Error("pixel not cleared")
	}

	c.Set(-1, 0)
	c.Set(100, 100)
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Error("out of range pixels were drawn")
	}
}

func TestCanvasShapes(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawLine(0, 0, 10, 5)
	if !c.IsSet(0, 0) || !c.IsSet(10, 5) {
		t.Error("line endpoints missing")
	}

	c.Clear()
	c.DrawCircle(20, 20, 8)
	for _, p := range [][2]int{{28, 20}, {12, 20}, {20, 28}, {20, 12}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("circle misses %v", p)
		}
	}
	if c.IsSet(20, 20) {
		t.Error("circle filled its centre")
	}
}

func TestCameraProjectsTargetToCentre(t *testing.T) {
	cam := NewCamera()
	cam.Target = mgl64.Vec3{3, 2, 1}
	cam.RotateY(0.7)
	x, y, _, ok := cam.Project(cam.Target, 160, 96)
	if !ok || x != 80 || y != 48 {
		t.Errorf("Project(target) = %d, %d, %v", x, y, ok)
	}

	behind := cam.Target.Add(cam.view().Transpose().Mul3x1(mgl64.Vec3{0, 0, cam.Distance + 1}))
	if _, _, _, ok := cam.Project(behind, 160, 96); ok {
		t.Error("point behind the camera reported visible")
	}
}

func TestWireframeEdges(t *testing.T) {
	box, _ := geom.NewBox(1, 1, 1)
	sphere, _ := geom.NewSphere(1)
	capsule, _ := geom.NewCapsule(0.5, 1)
	tetra, err := geom.NewConvexHull([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		shape geom.Shape
		edges int
	}{
		{"box", box, 12},
		{"sphere", sphere, 3 * ringSegments},
		{"capsule", capsule, 2*ringSegments + 4 + 4*ringSegments/2},
		{"tetrahedron", tetra, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWireframe()
			w.AddShape(tt.shape, geom.Identity())
			if len(w.Edges) != tt.edges {
				t.Errorf("edges = %d, want %d", len(w.Edges), tt.edges)
			}
		})
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 3); got != "───" {
		t.Errorf("empty sparkline = %q", got)
	}
	if got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 4); got != "▅▆▇█" {
		t.Errorf("sparkline = %q", got)
	}
	if got := ProgressBar(0.5, 4); got != "[==--]" {
		t.Errorf("progress = %q", got)
	}
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLiveModel(t *testing.T) {
	reg := scenario.NewRegistry()
	cfg := config.DefaultConfig()
	m, err := NewModel(func() (*scenario.Scene, error) { return cfg.Build(reg) }, cfg.Dt)
	if err != nil {
		t.Fatal(err)
	}

	update := func(msg tea.Msg) {
		next, _ := m.Update(msg)
		m = next.(Model)
	}

	update(TickMsg{})
	if n := m.Scene().World.StepCount(); n != 1 {
		t.Fatalf("steps after one tick = %d", n)
	}

	update(key(" "))
	update(TickMsg{})
	if n := m.Scene().World.StepCount(); n != 1 {
		t.Errorf("paused model stepped: %d", n)
	}
	update(key("s"))
	if n := m.Scene().World.StepCount(); n != 2 {
		t.Errorf("single step gave %d steps", n)
	}

	update(key(" "))
	update(key("]"))
	update(TickMsg{})
	if n := m.Scene().World.StepCount(); n != 4 {
		t.Errorf("double speed tick gave %d steps", n)
	}

	view := m.View()
	if !strings.Contains(view, "DROP-BOX") || !strings.Contains(view, "RUNNING x2") {
		t.Errorf("view missing header or status:\n%s", view)
	}

	old := m.Scene()
	update(key("r"))
	if m.Scene() == old || m.Scene().World.StepCount() != 0 {
		t.Error("reset did not rebuild the scene")
	}
}

func TestMenu(t *testing.T) {
	reg := scenario.NewRegistry()
	var app tea.Model = NewInteractiveApp(reg)
	update := func(msg tea.Msg) {
		app, _ = app.Update(msg)
	}

	if !strings.Contains(app.View(), "drop-box") {
		t.Fatal("menu does not list scenarios")
	}
	update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(app.View(), "long") {
		t.Fatalf("preset list missing presets:\n%s", app.View())
	}
	update(tea.KeyMsg{Type: tea.KeyEnter})
	if m := app.(menu); m.state != stateSim || m.live.Scene().Name != m.selected {
		t.Errorf("menu did not open the live view: state %d", m.state)
	}
}
