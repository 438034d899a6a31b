// Package ui renders live progress of a module check in the terminal.
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

// Stage is the check stage a module is in.
type Stage uint8

const (
	StageQueued Stage = iota
	StageLoad
	StageFinish
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageLoad:
		return "loading"
	case StageFinish:
		return "finishing"
	case StageDone:
		return "done"
	case StageFailed:
		return "error"
	default:
		return ""
	}
}

// weight is the share of a module's work completed when it enters s.
func (s Stage) weight() float64 {
	switch s {
	case StageLoad:
		return 0.2
	case StageFinish:
		return 0.6
	case StageDone, StageFailed:
		return 1
	default:
		return 0
	}
}

// Event reports that Module entered Stage. Detail is shown next to the
// module, e.g. the type count or the error code.
type Event struct {
	Module string
	Stage  Stage
	Detail string
}

type progressModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	items   []item
	index   map[string]int
	width   int
	done    bool
}

type item struct {
	module string
	stage  Stage
	detail string
}

type eventMsg Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that shows each module's stage
// until events is closed.
func NewProgressModel(title string, modules []string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]item, len(modules))
	index := make(map[string]int, len(modules))
	for i, m := range modules {
		items[i] = item{module: m}
		index[m] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(Event(msg)), m.listen())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
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
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 10
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, it := range m.items {
		status := styleStage(it.stage).Render(fmt.Sprintf("%*s", statusWidth, it.stage))
		line := it.module
		if it.detail != "" {
			line += "  " + it.detail
		}
		fmt.Fprintf(&b, "  %s %s\n", status, Truncate(line, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) apply(ev Event) tea.Cmd {
	idx, ok := m.index[ev.Module]
	if !ok {
		// Dependencies loaded on the way are listed as they appear.
		idx = len(m.items)
		m.items = append(m.items, item{module: ev.Module})
		m.index[ev.Module] = idx
	}
	m.items[idx].stage = ev.Stage
	m.items[idx].detail = ev.Detail
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, it := range m.items {
		total += it.stage.weight()
	}
	return total / float64(len(m.items))
}

func styleStage(s Stage) lipgloss.Style {
	switch s {
	case StageDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case StageFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case StageLoad, StageFinish:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

// Truncate shortens value to width terminal cells, marking the cut with an
// ellipsis.
func Truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
