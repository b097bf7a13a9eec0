package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/scenario"
)

var (
	menuTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuIdle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	menuError    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
)

const (
	stateMenu = iota
	statePreset
	stateSim
)

// defaultPreset stands for the unmodified scenario defaults.
const defaultPreset = "default"

type menu struct {
	registry  *scenario.Registry
	state     int
	cursor    int
	scenarios []string
	presets   []string
	selected  string
	err       error
	live      Model
}

// NewInteractiveApp lists the registered scenarios and opens the live view
// on the chosen one.
func NewInteractiveApp(reg *scenario.Registry) tea.Model {
	return menu{
		registry:  reg,
		state:     stateMenu,
		scenarios: reg.List(),
	}
}

func (m menu) Init() tea.Cmd { return nil }

func (m menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	items := m.items()
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.state == statePreset {
			m.state, m.cursor = stateMenu, 0
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(items) == 0 {
			return m, nil
		}
		if m.state == stateMenu {
			m.selected = items[m.cursor]
			m.presets = append([]string{defaultPreset}, config.ListPresets(m.selected)...)
			m.state, m.cursor, m.err = statePreset, 0, nil
			return m, nil
		}
		return m.start(items[m.cursor])
	}
	return m, nil
}

func (m menu) items() []string {
	if m.state == statePreset {
		return m.presets
	}
	return m.scenarios
}

func (m menu) start(preset string) (tea.Model, tea.Cmd) {
	cfg := config.DefaultConfig()
	cfg.Scenario = m.selected
	if preset != defaultPreset {
		p, err := config.GetPreset(m.selected, preset)
		if err != nil {
			m.err = err
			return m, nil
		}
		cfg = p
	}
	live, err := NewModel(func() (*scenario.Scene, error) { return cfg.Build(m.registry) }, cfg.Dt)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.state = live, stateSim
	return m, m.live.Init()
}

func (m menu) View() string {
	if m.state == stateSim {
		return m.live.View()
	}

	var b strings.Builder
	title, sub := "RIGIDSIM", "rigid body scenarios"
	if m.state == statePreset {
		title = strings.ToUpper(m.selected)
		sub, _ = m.registry.Describe(m.selected)
	}
	b.WriteString("\n\n    " + menuTitle.Render(title) + "\n    " + menuSub.Render(sub) + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")

	for i, name := range m.items() {
		desc := ""
		if m.state == stateMenu {
			desc, _ = m.registry.Describe(name)
		}
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuSelected.Render(fmt.Sprintf("%-12s", name)), menuDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", menuIdle.Render(fmt.Sprintf("%-12s", name)), menuIdle.Render(desc)))
		}
	}

	if m.err != nil {
		b.WriteString("\n    " + menuError.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + menuKey.Render("j/k") + menuIdle.Render(" navigate  ") + menuKey.Render("enter") + menuIdle.Render(" select  "))
	if m.state == statePreset {
		b.WriteString(menuKey.Render("esc") + menuIdle.Render(" back  "))
	}
	b.WriteString(menuKey.Render("q") + menuIdle.Render(" quit") + "\n")
	return b.String()
}

// RunInteractive opens the scenario menu.
func RunInteractive(reg *scenario.Registry) error {
	_, err := tea.NewProgram(NewInteractiveApp(reg), tea.WithAltScreen()).Run()
	return err
}
