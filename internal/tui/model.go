// Package tui provides the Bubble Tea operator console.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
	"github.com/verte-zerg/gesturelab/internal/session"
)

const (
	maxEvents   = 200
	eventHeight = 6
	labelWidth  = 12
)

var (
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	instructionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F0F0F0")).
				Bold(true).
				Padding(0, 2).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A"))
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	redMarker   = lipgloss.NewStyle().Background(lipgloss.Color("#FF4D4F")).Foreground(lipgloss.Color("#FFFFFF"))
	greenMarker = lipgloss.NewStyle().Background(lipgloss.Color("#3FB950")).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	doneStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.DoubleBorder(), true).
			BorderForeground(lipgloss.Color("#3FB950"))
)

// Options configure the console.
type Options struct {
	Participant int
	Modality    int
	FPS         int
}

type tickMsg time.Time

// Model implements the Bubble Tea operator console.
type Model struct {
	runner *session.Runner
	opts   Options
	log    *zap.Logger
	dt     time.Duration

	keys   keyMap
	help   help.Model
	poses  table.Model
	events viewport.Model
	lines  []string

	last     session.Snapshot
	lastTick time.Time
	width    int
	height   int
}

// NewModel constructs the console for a prepared runner.
func NewModel(r *session.Runner, opts Options, log *zap.Logger) *Model {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if log == nil {
		log = zap.NewNop()
	}
	poses := table.New(
		table.WithColumns([]table.Column{
			{Title: "Pose", Width: 16},
			{Title: "Threshold", Width: 9},
			{Title: "Score", Width: 9},
		}),
		table.WithHeight(5),
	)
	m := &Model{
		runner: r,
		opts:   opts,
		log:    log,
		dt:     time.Second / time.Duration(opts.FPS),
		keys:   defaultKeyMap(),
		help:   help.New(),
		poses:  poses,
		events: viewport.New(60, eventHeight),
		last:   r.Snapshot(),
	}
	m.refreshPoses()
	return m
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.dt, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.events.Width = msg.Width - 4
		return m, nil
	case tickMsg:
		m.step(time.Time(msg))
		return m, m.tick()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Idle):
		m.runner.Enqueue(session.CommandIdle)
	case key.Matches(msg, m.keys.Show):
		m.runner.Enqueue(session.CommandShowTechnique)
	case key.Matches(msg, m.keys.FirstPerform):
		m.runner.Enqueue(session.CommandFirstPerform)
	case key.Matches(msg, m.keys.ForceReps):
		m.runner.Enqueue(session.CommandForceRepetitions)
	case key.Matches(msg, m.keys.Reps):
		m.runner.Enqueue(session.CommandRepetitions)
	}
	return nil
}

// step advances the session by the wall time since the previous tick and
// records notable changes.
func (m *Model) step(now time.Time) {
	m.runner.Tick(m.elapsed(now))
	s := m.runner.Snapshot()
	prev := m.last
	m.last = s

	if s.Gesture != prev.Gesture || s.Finished != prev.Finished {
		if s.Finished {
			m.addEvent(s.Now, "modality finished")
		} else {
			m.addEvent(s.Now, fmt.Sprintf("gesture %d/%d: %s (%s)", s.Index, s.Total, s.Gesture, s.Kind))
		}
	}
	if s.Phase != prev.Phase {
		m.addEvent(s.Now, "phase "+s.Phase.String())
	}
	if s.Detected != model.NoDetection {
		m.addEvent(s.Now, "detected "+s.Detected)
	}
	if s.Marker != prev.Marker && s.Marker == session.MarkerGreen {
		m.addEvent(s.Now, "success")
	}
	m.refreshPoses()
}

func (m *Model) elapsed(now time.Time) time.Duration {
	dt := m.dt
	if !m.lastTick.IsZero() {
		dt = now.Sub(m.lastTick)
		if dt < 0 {
			dt = 0
		}
	}
	m.lastTick = now
	return dt
}

func (m *Model) addEvent(at time.Duration, text string) {
	m.lines = append(m.lines, fmt.Sprintf("%8.2fs  %s", at.Seconds(), text))
	if len(m.lines) > maxEvents {
		m.lines = m.lines[len(m.lines)-maxEvents:]
	}
	m.events.SetContent(strings.Join(m.lines, "\n"))
	m.events.GotoBottom()
	m.log.Debug("console event", zap.Duration("at", at), zap.String("event", text))
}

func (m *Model) refreshPoses() {
	live := m.runner.LastFrame().Joints
	set := m.runner.ActiveSet()
	rows := make([]table.Row, 0, len(set))
	seen := map[string]bool{}
	for _, p := range set {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		score := "-"
		if sum, ok := gesture.Score(live, p); ok {
			score = fmt.Sprintf("%.3f", sum)
		}
		rows = append(rows, table.Row{p.Name, fmt.Sprintf("%.3f", p.Threshold), score})
	}
	m.poses.SetRows(rows)
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.last
	if s.Finished {
		done := doneStyle.Render(s.Instruction)
		if m.width == 0 || m.height == 0 {
			return done + "\n"
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, done)
	}

	header := titleStyle.Render(fmt.Sprintf("Participant %d  Modality %d  %s",
		m.opts.Participant, m.opts.Modality, s.Technique))

	status := cardStyle.Render(strings.Join([]string{
		field("Gesture", fmt.Sprintf("%s (%d/%d, %s)", s.Gesture, s.Index, s.Total, s.Kind)),
		field("Phase", s.Phase.String()),
		field("Training", yesNo(s.Training)),
		field("Repetition", fmt.Sprintf("%d/%d", s.Repetition, s.MaxRepetitions)),
		field("Shows", fmt.Sprintf("%d", s.ShowRepeats)),
		field("Demo", m.demoState()),
		field("Sequence", m.sequenceState()),
		field("Clock", fmt.Sprintf("%.1fs", s.Now.Seconds())),
	}, "\n"))

	right := lipgloss.JoinVertical(lipgloss.Left,
		instructionStyle.Render(s.Instruction),
		renderMarker(s.Marker),
		cardStyle.Render(m.poses.View()),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, status, " ", right)
	events := cardStyle.Render(m.events.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, events, m.help.View(m.keys))
}

func (m *Model) demoState() string {
	s := m.last
	switch {
	case s.Smoothing:
		return "smoothing"
	case s.Animating:
		return "playing"
	case s.Phase == model.PhaseShowTechnique:
		return "waiting"
	default:
		return "off"
	}
}

func (m *Model) sequenceState() string {
	seqs := m.runner.Tracker().Sequences()
	if len(seqs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(seqs))
	for _, seq := range seqs {
		progress := m.runner.Tracker().Progress(seq.Name) + 1
		elapsed, running := m.runner.Tracker().Elapsed(seq.Name)
		part := fmt.Sprintf("%d/%d", progress, len(seq.Keyframes))
		if running {
			part += fmt.Sprintf(" %.1fs/%.1fs", elapsed.Seconds(), seq.ExecTime.Seconds())
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func field(label, value string) string {
	return labelStyle.Render(runewidth.FillRight(label, labelWidth)) + valueStyle.Render(value)
}

func renderMarker(mk session.Marker) string {
	switch mk {
	case session.MarkerRed:
		return redMarker.Render("  ●  ")
	case session.MarkerGreen:
		return greenMarker.Render("  ●  ")
	default:
		return mutedStyle.Render("  ·  ")
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
