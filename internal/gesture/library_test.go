package gesture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gesturelab/internal/model"
)

const testLibrary = `
poses:
  - name: open
    threshold: 0.2
    clip_length: 1.5
    joints: [[0, 0, 0], [0, 1, 0]]
  - name: fist
    joints: [[0, 0, 0], [0, 0.2, 0]]
sequences:
  - name: grab
    exec_time: 2.5
    keyframes: [open, fist]
`

func TestParseLibrary(t *testing.T) {
	lib, err := ParseLibrary([]byte(testLibrary))
	require.NoError(t, err)

	assert.Equal(t, []string{"open", "fist", "grab"}, lib.Names())
	assert.Equal(t, 2, lib.JointCount())

	open, err := lib.Lookup("open")
	require.NoError(t, err)
	assert.Equal(t, KindStatic, open.Kind)
	assert.InDelta(t, 0.2, open.Pose.Threshold, 1e-9)
	assert.Equal(t, 1500*time.Millisecond, open.ClipLength)

	fist, err := lib.Lookup("fist")
	require.NoError(t, err)
	assert.InDelta(t, DefaultThreshold, fist.Pose.Threshold, 1e-9)
	assert.Equal(t, DefaultClipLength, fist.ClipLength)

	grab, err := lib.Lookup("grab")
	require.NoError(t, err)
	assert.Equal(t, KindSequence, grab.Kind)
	assert.Equal(t, 2500*time.Millisecond, grab.Sequence.ExecTime)
	assert.Equal(t, []string{"open", "fist"}, grab.ActiveSet().Names())
	assert.Same(t, open.Pose, grab.Sequence.Keyframes[0])
}

func TestParseLibraryErrors(t *testing.T) {
	cases := map[string]string{
		"short sequence": `
poses:
  - name: a
    joints: [[0, 0, 0]]
sequences:
  - name: s
    exec_time: 1
    keyframes: [a]
`,
		"missing keyframe": `
poses:
  - name: a
    joints: [[0, 0, 0]]
sequences:
  - name: s
    exec_time: 1
    keyframes: [a, b]
`,
		"duplicate": `
poses:
  - name: a
    joints: [[0, 0, 0]]
  - name: a
    joints: [[0, 0, 0]]
`,
		"joint count": `
poses:
  - name: a
    joints: [[0, 0, 0]]
  - name: b
    joints: [[0, 0, 0], [1, 1, 1]]
`,
		"negative threshold": `
poses:
  - name: a
    threshold: -1
    joints: [[0, 0, 0]]
`,
		"bad vector": `
poses:
  - name: a
    joints: [[0, 0]]
`,
		"no exec time": `
poses:
  - name: a
    joints: [[0, 0, 0]]
sequences:
  - name: s
    keyframes: [a, a]
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLibrary([]byte(data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration), "unexpected error: %v", err)
		})
	}
}

func TestLookupMissing(t *testing.T) {
	lib, err := ParseLibrary([]byte(testLibrary))
	require.NoError(t, err)

	_, err = lib.Lookup("wave")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "wave", cfgErr.Subject)
}

func TestLoadLibraryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gestures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLibrary), 0o644))

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	assert.Len(t, lib.Gestures(), 3)
}

func TestMarshalPoseRoundsIntoLibrary(t *testing.T) {
	p := &Pose{Name: "captured", Threshold: 0.15, Joints: poseJoints(3)}
	data, err := MarshalPose(p)
	require.NoError(t, err)

	lib, err := ParseLibrary(data)
	require.NoError(t, err)
	g, err := lib.Lookup("captured")
	require.NoError(t, err)
	assert.Equal(t, p.Joints, g.Pose.Joints)
	assert.InDelta(t, 0.15, g.Pose.Threshold, 1e-9)
}

func poseJoints(n int) []model.Vec3 {
	joints := make([]model.Vec3, n)
	for i := range joints {
		joints[i] = model.Vec3{X: float64(i) * 0.25, Y: -0.5, Z: 0.125}
	}
	return joints
}
