// Package model defines shared data structures.
package model

import (
	"math"
	"time"
)

// Vec3 is a joint position in hand-relative coordinates.
type Vec3 struct {
	X, Y, Z float64
}

// Distance returns the euclidean distance between two points.
func (v Vec3) Distance(o Vec3) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	dz := v.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// PoseFrame is one sample of the tracked hand.
type PoseFrame struct {
	At     time.Duration
	Joints []Vec3
}

// Ready reports whether the frame carries joint data.
func (f PoseFrame) Ready() bool {
	return len(f.Joints) > 0
}

// Phase is a step of the study for one gesture.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseShowTechnique
	PhaseFirstPerform
	PhaseRepetitions
)

// String returns the log label of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseShowTechnique:
		return "SHOW_TECHNIQUE"
	case PhaseFirstPerform:
		return "FIRST_PERFORM"
	case PhaseRepetitions:
		return "REPETITIONS"
	default:
		return "UNKNOWN"
	}
}

// Technique is the way a gesture is demonstrated to the participant.
type Technique int

const (
	TechniqueGhost Technique = iota
	TechniqueExternal
	TechniqueOverride
)

// String returns the log label of the technique.
func (t Technique) String() string {
	switch t {
	case TechniqueGhost:
		return "GHOST_HAND"
	case TechniqueExternal:
		return "EXTERNAL_HAND"
	case TechniqueOverride:
		return "OVERRIDE_HAND"
	default:
		return "UNKNOWN"
	}
}

// Timing holds the fixed windows of the session state machine.
type Timing struct {
	StaticTimeout  time.Duration
	NeutralDelay   time.Duration
	Cooldown       time.Duration
	AnimDelay      time.Duration
	Smoothing      time.Duration
	SmoothingLead  time.Duration
	MaxRepetitions int
}

// DefaultTiming returns the timing used by the study.
func DefaultTiming() Timing {
	return Timing{
		StaticTimeout:  3 * time.Second,
		NeutralDelay:   4 * time.Second,
		Cooldown:       2 * time.Second,
		AnimDelay:      3500 * time.Millisecond,
		Smoothing:      200 * time.Millisecond,
		SmoothingLead:  50 * time.Millisecond,
		MaxRepetitions: 10,
	}
}

// Config defines settings for one study run.
type Config struct {
	Participant int
	Modality    int
	LibraryPath string
	StoryPath   string
	PosesPath   string
	FPS         int
	Timing      Timing
}

// RunInfo identifies a participant/modality run.
type RunInfo struct {
	ID          string
	Participant int
	Modality    int
	Technique   Technique
	StartedAt   time.Time
}

// NoDetection is the detected-gesture value for ticks without a recognition.
const NoDetection = "n/a"

// FrameRecord is the per-tick log line emitted outside of Idle.
type FrameRecord struct {
	Participant int
	Modality    int
	Technique   Technique
	Timestamp   time.Duration
	Training    bool
	Smoothing   bool
	Phase       Phase
	Animating   bool
	Repetition  int
	ShowRepeats int
	Expected    string
	Detected    string
	Joints      []Vec3
}

// CycleRecord summarizes one gesture cycle, written when Idle is entered.
type CycleRecord struct {
	Participant        int
	Modality           int
	Technique          Technique
	Gesture            string
	Training           bool
	ShowRepeats        int
	TimeToFirstPerform time.Duration
	TimeToRepetitions  time.Duration
	SuccessWhileShow   int
	AskedWhileTry      int
	SuccessWhileTry    int
	SuccessWhileRepeat int
}

// StatsConfig defines filters for report output.
type StatsConfig struct {
	Participant int
	Modality    int
	RunID       string
}

// RunCycle is a stored cycle summary with the run it belongs to.
type RunCycle struct {
	RunID string
	CycleRecord
}
