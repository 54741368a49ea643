package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abcSequence() *Sequence {
	return &Sequence{
		Name:      "abc",
		Keyframes: []*Pose{{Name: "A"}, {Name: "B"}, {Name: "C"}},
		ExecTime:  5 * time.Second,
	}
}

func TestTrackerCompletesInOrder(t *testing.T) {
	seq := abcSequence()
	tr := NewTracker(seq)

	assert.Empty(t, tr.OnPoseRecognized("A"))
	assert.Equal(t, 0, tr.Progress("abc"))
	tr.Tick(2 * time.Second)
	assert.Empty(t, tr.OnPoseRecognized("B"))
	assert.Equal(t, 1, tr.Progress("abc"))
	tr.Tick(2 * time.Second)

	done := tr.OnPoseRecognized("C")
	require.Len(t, done, 1)
	assert.Same(t, seq, done[0])
	assert.Equal(t, NotStarted, tr.Progress("abc"))
	_, running := tr.Elapsed("abc")
	assert.False(t, running)
}

func TestTrackerIgnoresOutOfOrder(t *testing.T) {
	tr := NewTracker(abcSequence())

	assert.Empty(t, tr.OnPoseRecognized("B"))
	assert.Empty(t, tr.OnPoseRecognized("C"))
	assert.Equal(t, NotStarted, tr.Progress("abc"))

	tr.OnPoseRecognized("A")
	assert.Empty(t, tr.OnPoseRecognized("C"))
	assert.Equal(t, 0, tr.Progress("abc"))
	assert.Empty(t, tr.OnPoseRecognized("A"))
	assert.Equal(t, 0, tr.Progress("abc"))
}

func TestTrackerTimesOut(t *testing.T) {
	tr := NewTracker(abcSequence())

	tr.OnPoseRecognized("A")
	elapsed, running := tr.Elapsed("abc")
	require.True(t, running)
	assert.Zero(t, elapsed)

	tr.Tick(5 * time.Second)
	assert.Equal(t, 0, tr.Progress("abc"))

	tr.Tick(time.Second)
	assert.Equal(t, NotStarted, tr.Progress("abc"))

	assert.Empty(t, tr.OnPoseRecognized("B"))
	assert.Empty(t, tr.OnPoseRecognized("C"))
	assert.Equal(t, NotStarted, tr.Progress("abc"))
}

func TestTrackerIndependentSequences(t *testing.T) {
	abc := abcSequence()
	ab := &Sequence{Name: "ab", Keyframes: []*Pose{{Name: "A"}, {Name: "B"}}, ExecTime: time.Second}
	tr := NewTracker(abc, ab)

	tr.OnPoseRecognized("A")
	done := tr.OnPoseRecognized("B")
	require.Len(t, done, 1)
	assert.Equal(t, "ab", done[0].Name)
	assert.Equal(t, 1, tr.Progress("abc"))
	assert.Equal(t, NotStarted, tr.Progress("ab"))
}

func TestTrackerResetAndTrack(t *testing.T) {
	tr := NewTracker(abcSequence())
	tr.OnPoseRecognized("A")
	tr.Reset()
	assert.Equal(t, NotStarted, tr.Progress("abc"))

	tr.OnPoseRecognized("A")
	tr.Track()
	assert.Empty(t, tr.Sequences())
	assert.Empty(t, tr.OnPoseRecognized("B"))
}
