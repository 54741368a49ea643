package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
	"github.com/verte-zerg/gesturelab/internal/story"
)

// PoseSource yields the tracked hand. ok is false until data is available.
type PoseSource interface {
	Poll(now time.Duration) (model.PoseFrame, bool)
}

// Command is an operator request applied at the start of the next tick.
type Command int

const (
	CommandIdle Command = iota
	CommandShowTechnique
	CommandFirstPerform
	CommandRepetitions
	CommandForceRepetitions
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandIdle:
		return "idle"
	case CommandShowTechnique:
		return "show"
	case CommandFirstPerform:
		return "first-perform"
	case CommandRepetitions:
		return "repetitions"
	case CommandForceRepetitions:
		return "force-repetitions"
	default:
		return "unknown"
	}
}

// RunnerDeps are the external collaborators of a Runner.
type RunnerDeps struct {
	Source    PoseSource
	Presenter Presenter
	Sink      Sink
	Logger    *zap.Logger
}

// Runner wires the pose source, static matcher, sequence tracker and machine
// into one tick loop.
//
// Each tick applies queued commands, matches the pose, advances sequence
// timers and finally lets the machine evaluate its own windows.
type Runner struct {
	source  PoseSource
	log     *zap.Logger
	machine *Machine

	active  gesture.ActiveSet
	edge    gesture.EdgeTrigger
	tracker *gesture.Tracker
	queue   []Command
	now     time.Duration
	last    model.PoseFrame
}

// NewRunner builds the machine for plan and binds it to the recognizers.
func NewRunner(plan story.Plan, timing model.Timing, deps RunnerDeps) (*Runner, error) {
	r := &Runner{
		source:  deps.Source,
		log:     deps.Logger,
		tracker: gesture.NewTracker(),
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	m, err := New(plan, timing, Deps{
		Presenter: deps.Presenter,
		Detector:  r,
		Sink:      deps.Sink,
		Logger:    r.log,
	})
	if err != nil {
		return nil, err
	}
	r.machine = m
	return r, nil
}

// Reconfigure implements Detector by swapping the active set and the tracked sequence.
func (r *Runner) Reconfigure(g gesture.Gesture) {
	r.active = g.ActiveSet()
	if g.Kind == gesture.KindSequence {
		r.tracker.Track(g.Sequence)
	} else {
		r.tracker.Track()
	}
	r.edge.Reset()
}

// Reset implements Detector.
func (r *Runner) Reset() {
	r.tracker.Reset()
}

// Enqueue schedules a command for the next tick.
func (r *Runner) Enqueue(cmd Command) {
	r.queue = append(r.queue, cmd)
}

// Tick runs one frame of the study.
func (r *Runner) Tick(dt time.Duration) {
	for _, cmd := range r.queue {
		r.apply(cmd)
	}
	r.queue = r.queue[:0]

	r.now += dt
	var frame model.PoseFrame
	var recognized []string
	if r.source != nil {
		if f, ok := r.source.Poll(r.now); ok && f.Ready() {
			frame = f
			recognized = r.match(f)
		}
	}
	r.last = frame
	r.tracker.Tick(dt)
	r.machine.Tick(dt, frame, recognized)
}

func (r *Runner) match(frame model.PoseFrame) []string {
	name, ok := gesture.Recognize(frame.Joints, r.active)
	var recognized []string
	for _, e := range r.edge.Observe(name, ok) {
		if e.Kind == gesture.EdgeLost {
			r.log.Debug("pose lost", zap.String("pose", e.Name))
			continue
		}
		recognized = append(recognized, e.Name)
		for _, seq := range r.tracker.OnPoseRecognized(e.Name) {
			r.log.Debug("sequence recognized", zap.String("gesture", seq.Name))
			recognized = append(recognized, seq.Name)
		}
	}
	return recognized
}

func (r *Runner) apply(cmd Command) {
	var applied bool
	switch cmd {
	case CommandIdle:
		applied = r.machine.EnterIdle()
	case CommandShowTechnique:
		applied = r.machine.EnterShowTechnique()
	case CommandFirstPerform:
		applied = r.machine.EnterFirstPerform()
	case CommandRepetitions:
		applied = r.machine.EnterRepetitions(false)
	case CommandForceRepetitions:
		applied = r.machine.EnterRepetitions(true)
	}
	r.log.Debug("command", zap.Stringer("command", cmd), zap.Bool("applied", applied))
}

// Snapshot returns the machine state.
func (r *Runner) Snapshot() Snapshot {
	return r.machine.Snapshot()
}

// LastFrame returns the pose used on the last tick, empty when none was ready.
func (r *Runner) LastFrame() model.PoseFrame {
	return r.last
}

// ActiveSet returns the poses currently evaluated by the matcher.
func (r *Runner) ActiveSet() gesture.ActiveSet {
	return r.active
}

// Tracker exposes sequence progress for display.
func (r *Runner) Tracker() *gesture.Tracker {
	return r.tracker
}

// Finished reports whether the modality is complete.
func (r *Runner) Finished() bool {
	return r.machine.Finished()
}
