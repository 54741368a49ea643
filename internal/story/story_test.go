package story

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
)

const library = `
poses:
  - name: open
    joints: [[0, 0, 0]]
  - name: fist
    joints: [[0, 0.1, 0]]
  - name: point
    joints: [[0.1, 0, 0]]
sequences:
  - name: grab
    exec_time: 2
    keyframes: [open, fist]
  - name: wave
    exec_time: 4
    keyframes: [open, point, open]
`

const jsonStory = `{
  "Participants": [
    {"Modalities": [
      {"ShowTechnique": "GHOST", "GestureTraining": "open", "GestureStatic": "fist", "GestureShort": "grab", "GestureLong": "wave"},
      {"ShowTechnique": "OVERRIDE", "GestureTraining": "point", "GestureStatic": "open", "GestureShort": "grab", "GestureLong": "missing"}
    ]}
  ]
}`

func loadLibrary(t *testing.T) *gesture.Library {
	t.Helper()
	lib, err := gesture.ParseLibrary([]byte(library))
	require.NoError(t, err)
	return lib
}

func TestResolveJSONStory(t *testing.T) {
	s, err := Parse([]byte(jsonStory))
	require.NoError(t, err)

	plan, err := s.Resolve(1, 1, loadLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, model.TechniqueGhost, plan.Technique)
	require.Len(t, plan.Gestures, GesturesPerModality)
	names := make([]string, len(plan.Gestures))
	for i, g := range plan.Gestures {
		names[i] = g.Name()
	}
	assert.Equal(t, []string{"open", "fist", "grab", "wave"}, names)
}

func TestResolveYAMLStory(t *testing.T) {
	data := `
Participants:
  - Modalities:
      - ShowTechnique: external
        GestureTraining: open
        GestureStatic: fist
        GestureShort: grab
        GestureLong: wave
`
	s, err := Parse([]byte(data))
	require.NoError(t, err)
	plan, err := s.Resolve(1, 1, loadLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, model.TechniqueExternal, plan.Technique)
}

func TestResolveErrors(t *testing.T) {
	s, err := Parse([]byte(jsonStory))
	require.NoError(t, err)
	lib := loadLibrary(t)

	for _, tc := range []struct {
		name        string
		participant int
		modality    int
	}{
		{"participant zero", 0, 1},
		{"participant too high", 2, 1},
		{"modality too high", 1, 3},
		{"missing gesture", 1, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Resolve(tc.participant, tc.modality, lib)
			require.Error(t, err)
			assert.True(t, errors.Is(err, gesture.ErrConfiguration))
		})
	}
}

func TestParseTechnique(t *testing.T) {
	tech, err := ParseTechnique("override_hand")
	require.NoError(t, err)
	assert.Equal(t, model.TechniqueOverride, tech)

	_, err = ParseTechnique("hologram")
	assert.ErrorIs(t, err, gesture.ErrConfiguration)
}
