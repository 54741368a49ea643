package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gesturelab/internal/model"
)

type heldSource struct {
	joints []model.Vec3
	ready  bool
}

func (s *heldSource) Poll(now time.Duration) (model.PoseFrame, bool) {
	if !s.ready {
		return model.PoseFrame{}, false
	}
	return model.PoseFrame{At: now, Joints: s.joints}, true
}

func (s *heldSource) hold(x, y, z float64) {
	s.joints = []model.Vec3{{X: x, Y: y, Z: z}}
}

func newTestRunner(t *testing.T, source *heldSource) (*Runner, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	r, err := NewRunner(testPlan(t, model.TechniqueGhost), model.DefaultTiming(), RunnerDeps{
		Source: source,
		Sink:   sink,
	})
	require.NoError(t, err)
	return r, sink
}

func runUntilExpecting(t *testing.T, r *Runner) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if r.Snapshot().Expecting {
			return
		}
		r.Tick(step)
	}
	t.Fatalf("runner never opened the expecting window")
}

func TestRunnerCommandsApplyOnNextTick(t *testing.T) {
	source := &heldSource{ready: true}
	source.hold(5, 5, 5)
	r, _ := newTestRunner(t, source)

	r.Enqueue(CommandShowTechnique)
	assert.Equal(t, model.PhaseIdle, r.Snapshot().Phase)
	r.Tick(step)
	assert.Equal(t, model.PhaseShowTechnique, r.Snapshot().Phase)

	r.Enqueue(CommandRepetitions)
	r.Tick(step)
	assert.Equal(t, model.PhaseShowTechnique, r.Snapshot().Phase, "illegal commands are ignored")

	r.Enqueue(CommandFirstPerform)
	r.Enqueue(CommandForceRepetitions)
	r.Tick(step)
	assert.Equal(t, model.PhaseRepetitions, r.Snapshot().Phase)
}

func TestRunnerLogsEmptyFramesUntilSourceIsReady(t *testing.T) {
	source := &heldSource{}
	r, sink := newTestRunner(t, source)

	r.Enqueue(CommandShowTechnique)
	for i := 0; i < 5; i++ {
		r.Tick(step)
	}
	require.Len(t, sink.frames, 5)
	for _, rec := range sink.frames {
		assert.Empty(t, rec.Joints)
		assert.Equal(t, model.NoDetection, rec.Detected)
	}
	assert.False(t, r.LastFrame().Ready())

	source.ready = true
	source.hold(5, 5, 5)
	r.Tick(step)
	require.Len(t, sink.frames, 6)
	assert.Equal(t, source.joints, sink.frames[5].Joints)
	assert.Equal(t, model.NoDetection, sink.frames[5].Detected)
}

func TestRunnerStaticGestureFiresOnce(t *testing.T) {
	source := &heldSource{ready: true}
	source.hold(5, 5, 5)
	r, sink := newTestRunner(t, source)
	assert.Equal(t, []string{"fist"}, r.ActiveSet().Names())

	r.Enqueue(CommandShowTechnique)
	r.Tick(step)
	r.Enqueue(CommandFirstPerform)
	r.Tick(step)
	runUntilExpecting(t, r)

	source.hold(0, 1, 0)
	r.Tick(step)
	s := r.Snapshot()
	assert.True(t, s.FirstPerformDone)
	assert.Equal(t, MarkerGreen, s.Marker)
	assert.Equal(t, "fist", sink.frames[len(sink.frames)-1].Detected)

	r.Enqueue(CommandRepetitions)
	r.Tick(step)
	runUntilExpecting(t, r)
	for i := 0; i < 20; i++ {
		r.Tick(step)
	}
	assert.Equal(t, 0, r.Snapshot().Repetition, "holding the pose is not a new recognition")

	source.hold(5, 5, 5)
	r.Tick(step)
	source.hold(0, 1, 0)
	r.Tick(step)
	s = r.Snapshot()
	assert.Equal(t, 1, s.Repetition)
	assert.Equal(t, MarkerGreen, s.Marker)
}

func TestRunnerSequenceGesture(t *testing.T) {
	source := &heldSource{ready: true}
	source.hold(5, 5, 5)
	r, _ := newTestRunner(t, source)

	r.Enqueue(CommandIdle)
	r.Tick(step)
	require.Equal(t, "wave", r.Snapshot().Gesture)
	assert.Len(t, r.Tracker().Sequences(), 1)

	r.Enqueue(CommandShowTechnique)
	r.Tick(step)
	r.Enqueue(CommandFirstPerform)
	r.Tick(step)
	runUntilExpecting(t, r)

	source.hold(0, 0, 0)
	r.Tick(step)
	source.hold(0, 1, 0)
	r.Tick(step)
	assert.False(t, r.Snapshot().FirstPerformDone)
	source.hold(0, 0, 0)
	r.Tick(step)

	s := r.Snapshot()
	assert.True(t, s.FirstPerformDone)
	assert.Equal(t, MarkerGreen, s.Marker)
}

func TestRunnerFinishes(t *testing.T) {
	source := &heldSource{ready: true}
	source.hold(5, 5, 5)
	r, sink := newTestRunner(t, source)

	for i := 0; i < 4; i++ {
		r.Enqueue(CommandIdle)
	}
	r.Tick(step)
	assert.True(t, r.Finished())
	assert.Len(t, sink.cycles, 4)
	assert.Empty(t, r.ActiveSet())
}
