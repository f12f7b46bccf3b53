package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/randalmurphal/argus/pkg/argus"
	"github.com/randalmurphal/argus/pkg/flowgraph/event"
)

type stageState int

const (
	stagePending stageState = iota
	stageRunning
	stageDone
	stageFailed
)

var (
	stageDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	stageFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	stagePendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	stageNameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	spinnerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
)

// stageEventMsg carries a run event into the view.
type stageEventMsg struct {
	evt event.Event
}

// runDoneMsg reports that the run returned.
type runDoneMsg struct {
	err error
}

// progressModel shows one line per stage while a run executes.
type progressModel struct {
	spinner spinner.Model
	stages  []string
	states  map[string]stageState
	took    map[string]time.Duration
	cancel  context.CancelFunc

	canceling bool
	finished  bool
	err       error
}

func newProgressModel(stages []string, cancel context.CancelFunc) progressModel {
	states := make(map[string]stageState, len(stages))
	for _, s := range stages {
		states[s] = stagePending
	}
	return progressModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		stages:  stages,
		states:  states,
		took:    make(map[string]time.Duration),
		cancel:  cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.canceling {
			m.canceling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case stageEventMsg:
		m.apply(msg.evt)
		return m, nil
	case runDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply records a node event. Events for unknown nodes are ignored.
func (m *progressModel) apply(evt event.Event) {
	p := evt.Payload()
	if _, ok := m.states[p.NodeID]; !ok {
		return
	}
	switch evt.Type() {
	case event.TypeNodeStarted:
		m.states[p.NodeID] = stageRunning
	case event.TypeNodeCompleted:
		m.states[p.NodeID] = stageDone
		m.took[p.NodeID] = p.Duration
	case event.TypeNodeFailed:
		m.states[p.NodeID] = stageFailed
	}
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, name := range m.stages {
		var icon string
		switch m.states[name] {
		case stageRunning:
			if m.finished {
				icon = stagePendingStyle.Render("-")
			} else {
				icon = m.spinner.View()
			}
		case stageDone:
			icon = stageDoneStyle.Render("✓")
		case stageFailed:
			icon = stageFailedStyle.Render("✗")
		default:
			icon = stagePendingStyle.Render("·")
		}

		line := fmt.Sprintf("%s %s", icon, stageNameStyle.Render(stageLabel(name)))
		if d, ok := m.took[name]; ok {
			line += " " + detailStyle.Render(d.Round(100*time.Millisecond).String())
		}
		b.WriteString(line + "\n")
	}

	switch {
	case m.canceling && !m.finished:
		b.WriteString(detailStyle.Render("canceling...") + "\n")
	case m.finished && m.err != nil:
		b.WriteString(stageFailedStyle.Render("run failed") + "\n")
	}
	return b.String()
}

// stageLabel turns a stage name into a display label.
func stageLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// runWithProgress runs fn while the progress view renders events from bus.
// It returns after fn has returned.
func runWithProgress(ctx context.Context, out io.Writer, bus event.Bus, stages []string, fn func(context.Context) (argus.RunState, error)) (argus.RunState, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newProgressModel(stages, cancel), tea.WithOutput(out))
	sub := bus.Subscribe([]string{event.TypeNodeStarted, event.TypeNodeCompleted, event.TypeNodeFailed},
		event.HandlerFunc(func(_ context.Context, evt event.Event) error {
			prog.Send(stageEventMsg{evt: evt})
			return nil
		}))
	defer sub.Unsubscribe()

	type result struct {
		state argus.RunState
		err   error
	}
	results := make(chan result, 1)
	go func() {
		state, err := fn(ctx)
		results <- result{state: state, err: err}
		prog.Send(runDoneMsg{err: err})
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
	}
	res := <-results
	return res.state, res.err
}
