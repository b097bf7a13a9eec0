package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/scenario"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	maxSpeed        = 16
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Builder creates a fresh scene. The live view calls it again on reset.
type Builder func() (*scenario.Scene, error)

// Model steps a scene in real time and draws it as a wireframe.
type Model struct {
	build    Builder
	scene    *scenario.Scene
	dt       float64
	speed    int
	canvas   *Canvas
	wire     *Wireframe
	camera   *Camera
	theme    Theme
	styles   Styles
	running  bool
	showHelp bool
	energy   []float64
	contacts []float64
	bodies   []*body.Body
	err      error
}

// NewModel builds the first scene and frames the camera on it.
func NewModel(build Builder, dt float64) (Model, error) {
	m := Model{
		build:    build,
		dt:       dt,
		speed:    1,
		canvas:   NewCanvas(width, height),
		wire:     NewWireframe(),
		camera:   NewCamera(),
		theme:    Themes[0],
		styles:   NewStyles(Themes[0]),
		running:  true,
		energy:   make([]float64, 0, historyCapacity),
		contacts: make([]float64, 0, historyCapacity),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Scene() *scenario.Scene { return m.scene }

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.err = m.reset()
		case "s":
			if !m.running {
				m.step()
			}
		case "[":
			m.speed = max(1, m.speed/2)
		case "]":
			m.speed = min(maxSpeed, m.speed*2)
		case "f":
			m.frame()
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			m.theme = NextTheme(m.theme)
			m.styles = NewStyles(m.theme)
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.speed; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances the world once and records the plotted series.
func (m *Model) step() {
	w := m.scene.World
	w.Step(m.dt)

	ke := 0.0
	m.bodies = w.AppendBodies(m.bodies[:0])
	for _, b := range m.bodies {
		ke += metrics.KineticEnergy(b)
	}
	clear(m.bodies)
	m.energy = appendCapped(m.energy, ke)
	m.contacts = appendCapped(m.contacts, float64(w.Stats().ContactPoints))
}

func appendCapped(s []float64, v float64) []float64 {
	if len(s) == historyCapacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

// reset rebuilds the scene from scratch.
func (m *Model) reset() error {
	sc, err := m.build()
	if err != nil {
		return err
	}
	m.scene = sc
	m.energy = m.energy[:0]
	m.contacts = m.contacts[:0]
	m.frame()
	return nil
}

// frame points the camera at the dynamic bodies.
func (m *Model) frame() {
	var box geom.AABB
	found := false
	for _, b := range m.scene.World.Bodies() {
		if !b.IsDynamic() {
			continue
		}
		if !found {
			box, found = b.AABB(), true
			continue
		}
		box = box.Merge(b.AABB())
	}
	if !found {
		return
	}
	m.camera.Frame(box.Inflate(1))
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.wire.Clear()
	m.bodies = m.scene.World.AppendBodies(m.bodies[:0])
	for _, b := range m.bodies {
		m.wire.AddBody(b)
	}
	clear(m.bodies)
	for _, j := range m.scene.World.Joints() {
		a, b := j.WorldAnchors()
		m.wire.AddEdge(a, b)
	}
	Render3D(m.canvas, m.wire, m.camera)
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.Alert.Render("ERROR: " + m.err.Error())
	case !m.running:
		return m.styles.Paused.Render("PAUSED")
	default:
		return m.styles.Running.Render(fmt.Sprintf("RUNNING x%d", m.speed))
	}
}

func (m Model) row(label, value string) string {
	return m.styles.Label.Render(label) + m.styles.Value.Render(value) + "\n"
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	canvasView := m.styles.Canvas.Render(m.canvas.String())

	w := m.scene.World
	stats := w.Stats()

	var s strings.Builder
	s.WriteString(m.styles.Header.Render(strings.ToUpper(m.scene.Name)) + "\n")
	s.WriteString(m.status() + "\n\n")
	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(m.styles.Graph.Render(chart) + "\n\n")
	}
	s.WriteString(m.row("Time", fmt.Sprintf("%.2fs", w.Time())))
	s.WriteString(m.row("Step", fmt.Sprintf("%d", stats.Step)))
	s.WriteString(m.row("Bodies", fmt.Sprintf("%d (%d awake, %d asleep)", stats.Bodies, stats.Awake, stats.Sleeping)))
	s.WriteString(m.row("Contacts", fmt.Sprintf("%d in %d manifolds", stats.ContactPoints, stats.Manifolds)))
	s.WriteString(m.row("Islands", fmt.Sprintf("%d", stats.Islands)))
	s.WriteString(m.row("Iterations", fmt.Sprintf("%d vel / %d pos", stats.VelocityIterations, stats.PositionIterations)))
	s.WriteString(m.row("Penetration", fmt.Sprintf("%.4f", stats.MaxPenetration)))
	s.WriteString(m.row("Step time", stats.Duration.Round(time.Microsecond).String()))
	s.WriteString(m.row("Contacts", Sparkline(m.contacts, 28)))
	s.WriteString(m.styles.Help.Render("─────────────────────\nSP:Pause R:Reset Q:Quit\nS:Step [ ]:Speed F:Frame\nXYZ:Rotate +-:Zoom T:Theme ?:Help"))

	statsView := m.styles.Panel.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  S        - Single step when paused  ║
║  R        - Rebuild the scene        ║
║  [ ]      - Halve/double speed       ║
║  F        - Frame the moving bodies  ║
║  x y z    - Rotate camera (shift -)  ║
║  + -      - Zoom                     ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// RunLive opens the live view on the scene produced by build.
func RunLive(build Builder, dt float64) error {
	m, err := NewModel(build, dt)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
