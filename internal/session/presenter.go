package session

import (
	"time"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
)

// Presenter plays gesture demonstrations to the participant.
type Presenter interface {
	// Play starts the demonstration clip and returns its length.
	Play(g gesture.Gesture, technique model.Technique) time.Duration
	// BeginSmoothing blends the shown hand back to the tracked hand over d.
	BeginSmoothing(d time.Duration)
	// Hide removes the demonstration hand.
	Hide()
}

// Detector is reconfigured by the machine whenever the expected gesture changes.
type Detector interface {
	Reconfigure(g gesture.Gesture)
	Reset()
}

// Sink receives the per-tick frame log and the per-cycle summaries.
type Sink interface {
	WriteFrame(rec model.FrameRecord) error
	WriteCycle(rec model.CycleRecord) error
}

// ClipPresenter uses the library clip length of each gesture and remembers
// what is currently shown.
type ClipPresenter struct {
	showing    string
	technique  model.Technique
	plays      int
	smoothings int
}

// Play implements Presenter.
func (p *ClipPresenter) Play(g gesture.Gesture, technique model.Technique) time.Duration {
	p.showing = g.Name()
	p.technique = technique
	p.plays++
	if g.ClipLength <= 0 {
		return gesture.DefaultClipLength
	}
	return g.ClipLength
}

// BeginSmoothing implements Presenter.
func (p *ClipPresenter) BeginSmoothing(time.Duration) {
	p.smoothings++
}

// Hide implements Presenter.
func (p *ClipPresenter) Hide() {
	p.showing = ""
}

// Showing returns the gesture currently demonstrated.
func (p *ClipPresenter) Showing() (string, bool) {
	return p.showing, p.showing != ""
}

// Plays counts demonstrations started.
func (p *ClipPresenter) Plays() int {
	return p.plays
}

// Smoothings counts smoothing windows requested.
func (p *ClipPresenter) Smoothings() int {
	return p.smoothings
}

type nopSink struct{}

func (nopSink) WriteFrame(model.FrameRecord) error { return nil }
func (nopSink) WriteCycle(model.CycleRecord) error { return nil }

type nopDetector struct{}

func (nopDetector) Reconfigure(gesture.Gesture) {}
func (nopDetector) Reset()                      {}
