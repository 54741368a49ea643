package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
	"github.com/verte-zerg/gesturelab/internal/session"
	"github.com/verte-zerg/gesturelab/internal/story"
)

const library = `
poses:
  - name: open
    joints: [[0, 0, 0]]
  - name: fist
    joints: [[0, 1, 0]]
sequences:
  - name: wave
    exec_time: 2
    keyframes: [open, fist, open]
`

type fixedSource struct{}

func (fixedSource) Poll(now time.Duration) (model.PoseFrame, bool) {
	return model.PoseFrame{At: now, Joints: []model.Vec3{{Y: 1}}}, true
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	lib, err := gesture.ParseLibrary([]byte(library))
	require.NoError(t, err)
	plan := story.Plan{Participant: 1, Modality: 2, Technique: model.TechniqueGhost}
	for _, name := range []string{"fist", "wave", "open", "fist"} {
		g, err := lib.Lookup(name)
		require.NoError(t, err)
		plan.Gestures = append(plan.Gestures, g)
	}
	r, err := session.NewRunner(plan, model.DefaultTiming(), session.RunnerDeps{Source: fixedSource{}})
	require.NoError(t, err)
	return NewModel(r, Options{Participant: 1, Modality: 2, FPS: 10}, nil)
}

func press(m *Model, k string) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return cmd
}

func TestKeysDriveTheSession(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, 100*time.Millisecond, m.dt)

	press(m, "1")
	_, cmd := m.Update(tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Equal(t, model.PhaseShowTechnique, m.last.Phase)

	view := m.View()
	assert.Contains(t, view, "Watch the gesture until you understand it")
	assert.Contains(t, view, "SHOW_TECHNIQUE")
	assert.Contains(t, strings.Join(m.lines, "\n"), "phase SHOW_TECHNIQUE")
	assert.Contains(t, strings.Join(m.lines, "\n"), "detected fist")
}

func TestPoseTableShowsScores(t *testing.T) {
	m := newTestModel(t)
	m.Update(tickMsg(time.Now()))

	rows := m.poses.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "fist", rows[0][0])
	assert.Equal(t, "0.000", rows[0][2])
}

func TestClockFollowsTickTimestamps(t *testing.T) {
	m := newTestModel(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		m.Update(tickMsg(base.Add(time.Duration(i) * time.Second)))
	}
	assert.Equal(t, m.dt+9*time.Second, m.last.Now)

	m.Update(tickMsg(base.Add(8 * time.Second)))
	assert.Equal(t, m.dt+9*time.Second, m.last.Now, "a clock step backwards does not rewind the session")

	m.Update(tickMsg(base.Add(10 * time.Second)))
	assert.Equal(t, m.dt+11*time.Second, m.last.Now)
}

func TestSequenceStateForDynamicGesture(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, "-", m.sequenceState())

	press(m, "0")
	m.Update(tickMsg(time.Now()))
	assert.Equal(t, "wave", m.last.Gesture)
	assert.Equal(t, "0/3", m.sequenceState())
	assert.Len(t, m.poses.Rows(), 2)
}

func TestFinalScreen(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 4; i++ {
		press(m, "0")
	}
	m.Update(tickMsg(time.Now()))
	require.True(t, m.last.Finished)
	assert.Contains(t, m.View(), "Please remove the headset")
	assert.Contains(t, strings.Join(m.lines, "\n"), "modality finished")
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t)
	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t)
	press(m, "?")
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "repetitions (force)")
}
