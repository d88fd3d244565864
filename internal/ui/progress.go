// Package ui renders terminal output for one-shot checks.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Status is where a project is in a check run.
type Status uint8

const (
	StatusQueued Status = iota
	StatusParsing
	StatusChecking
	StatusDone
	StatusFailed
)

// statusStyles holds the label, bar weight and color of each Status.
var statusStyles = [...]struct {
	label  string
	weight float64
	color  lipgloss.Color
}{
	StatusQueued:   {"queued", 0, "7"},
	StatusParsing:  {"parsing", 0.2, "6"},
	StatusChecking: {"checking", 0.5, "6"},
	StatusDone:     {"done", 1, "2"},
	StatusFailed:   {"error", 1, "1"},
}

func (s Status) String() string {
	if int(s) < len(statusStyles) {
		return statusStyles[s].label
	}
	return ""
}

func (s Status) finished() bool { return s == StatusDone || s == StatusFailed }

func (s Status) weight() float64 {
	if int(s) < len(statusStyles) {
		return statusStyles[s].weight
	}
	return 0
}

func (s Status) style() lipgloss.Style {
	c := lipgloss.Color("7")
	if int(s) < len(statusStyles) {
		c = statusStyles[s].color
	}
	return lipgloss.NewStyle().Foreground(c)
}

// Event reports progress of one project. An event with an empty Project
// sets the stage shown next to the title. Diagnostics is shown once the
// project finishes.
type Event struct {
	Project     string
	Status      Status
	Diagnostics int
}

type progressModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	bar     progress.Model
	rows    []Event
	byName  map[string]int
	stage   string
	width   int
	done    bool
}

type eventMsg Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that shows per-project check
// progress until events is closed.
func NewProgressModel(title string, projects []string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = StatusChecking.style()

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make([]Event, len(projects)),
		byName:  make(map[string]int, len(projects)),
		width:   80,
	}
	for i, name := range projects {
		m.rows[i] = Event{Project: name}
		m.byName[name] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		model, cmd := m.bar.Update(msg)
		m.bar = model.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	header := fmt.Sprintf("%s %d/%d", m.title, m.finished(), len(m.rows))
	if m.stage != "" {
		header += " (" + m.stage + ")"
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(header))
	b.WriteString("\n\n")
	nameWidth := max(m.width-28, 20)
	for _, row := range m.rows {
		status := row.Status.style().Render(fmt.Sprintf("%9s", row.Status))
		fmt.Fprintf(&b, "  %s %s", status, truncate(row.Project, nameWidth))
		if row.Status.finished() && row.Diagnostics > 0 {
			fmt.Fprintf(&b, " (%d diagnostics)", row.Diagnostics)
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev Event) tea.Cmd {
	if ev.Project == "" {
		m.stage = ev.Status.String()
		return nil
	}
	i, ok := m.byName[ev.Project]
	if !ok {
		return nil
	}
	m.rows[i] = ev
	return m.bar.SetPercent(m.fraction())
}

func (m *progressModel) finished() int {
	n := 0
	for _, row := range m.rows {
		if row.Status.finished() {
			n++
		}
	}
	return n
}

func (m *progressModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range m.rows {
		total += row.Status.weight()
	}
	return total / float64(len(m.rows))
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	return runewidth.Truncate(value, width, tail)
}
