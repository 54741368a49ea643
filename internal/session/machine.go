// Package session drives the study phases for one participant and modality.
package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
	"github.com/verte-zerg/gesturelab/internal/story"
)

// Marker is the colour of the detection square shown to the participant.
type Marker int

const (
	MarkerHidden Marker = iota
	MarkerRed
	MarkerGreen
)

// String returns the marker colour name.
func (m Marker) String() string {
	switch m {
	case MarkerRed:
		return "red"
	case MarkerGreen:
		return "green"
	default:
		return "hidden"
	}
}

const (
	instructionStart   = "Press the first button to start"
	instructionWatch   = "Watch the gesture until you understand it"
	instructionPerform = "Perform the gesture"
	instructionNeutral = "Go to neutral position"
	instructionDone    = "Please remove the headset"
)

// demoStage tracks the demonstration loop inside ShowTechnique.
type demoStage int

const (
	demoOff demoStage = iota
	demoWaiting
	demoPlaying
	demoSettling
)

// stamp is a clock reading that may be unset.
type stamp struct {
	at  time.Duration
	set bool
}

func (s *stamp) mark(now time.Duration) {
	if !s.set {
		s.at = now
		s.set = true
	}
}

func since(from, to stamp) time.Duration {
	if !from.set || !to.set {
		return 0
	}
	return to.at - from.at
}

// Deps are the collaborators of a Machine. Nil fields get no-op defaults.
type Deps struct {
	Presenter Presenter
	Detector  Detector
	Sink      Sink
	Logger    *zap.Logger
}

// Machine is the tick-driven study state machine.
//
// It cycles Idle, ShowTechnique, FirstPerform and Repetitions once per
// gesture of the plan and becomes terminal after the last gesture.
type Machine struct {
	plan      story.Plan
	timing    model.Timing
	presenter Presenter
	detector  Detector
	sink      Sink
	log       *zap.Logger

	now      time.Duration
	phase    model.Phase
	index    int
	finished bool
	training bool
	active   gesture.Gesture

	demo          demoStage
	animating     bool
	nextPlayAt    time.Duration
	smoothStartAt time.Duration
	clipEndAt     time.Duration

	smoothing      bool
	smoothingUntil time.Duration

	expecting        bool
	gestureDeadline  time.Duration
	neutralDeadline  time.Duration
	firstPerformDone bool
	marker           Marker

	cooldownArmed bool
	cooldownUntil time.Duration

	repetition    int
	showRepeats   int
	successShow   int
	askedTry      int
	successTry    int
	successRepeat int

	showStartedAt  stamp
	firstPerformAt stamp
	repetitionsAt  stamp

	detected string
}

// New builds a machine for the plan and enters Idle with the first gesture.
func New(plan story.Plan, timing model.Timing, deps Deps) (*Machine, error) {
	if len(plan.Gestures) == 0 {
		return nil, &gesture.ConfigError{Subject: "plan", Reason: "no gestures to run"}
	}
	if timing.MaxRepetitions <= 0 {
		return nil, errors.New("max repetitions must be > 0")
	}
	m := &Machine{
		plan:      plan,
		timing:    timing,
		presenter: deps.Presenter,
		detector:  deps.Detector,
		sink:      deps.Sink,
		log:       deps.Logger,
		detected:  model.NoDetection,
	}
	if m.presenter == nil {
		m.presenter = &ClipPresenter{}
	}
	if m.detector == nil {
		m.detector = nopDetector{}
	}
	if m.sink == nil {
		m.sink = nopSink{}
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.EnterIdle()
	return m, nil
}

// EnterIdle logs the finished gesture and moves to the next one.
// After the last gesture the machine stays in Idle for good.
func (m *Machine) EnterIdle() bool {
	if m.finished {
		return false
	}
	m.stopDemo()
	m.smoothing = false
	m.expecting = false
	m.clearCooldown()

	if m.index >= 1 {
		m.writeCycle()
	}
	m.index++
	m.phase = model.PhaseIdle

	if m.index > len(m.plan.Gestures) {
		m.finished = true
		m.marker = MarkerHidden
		m.active = gesture.Gesture{}
		m.detector.Reconfigure(m.active)
		m.log.Info("modality finished",
			zap.Int("participant", m.plan.Participant),
			zap.Int("modality", m.plan.Modality))
		return true
	}

	m.repetition = 0
	m.showRepeats = 0
	m.successShow = 0
	m.askedTry = 0
	m.successTry = 0
	m.successRepeat = 0
	m.showStartedAt = stamp{}
	m.firstPerformAt = stamp{}
	m.repetitionsAt = stamp{}
	m.training = m.index == 1
	m.firstPerformDone = false
	m.marker = MarkerHidden

	m.active = m.plan.Gestures[m.index-1]
	m.detector.Reconfigure(m.active)
	m.log.Debug("gesture selected",
		zap.Int("index", m.index),
		zap.String("gesture", m.active.Name()),
		zap.Stringer("kind", m.active.Kind),
		zap.Strings("active_set", m.active.ActiveSet().Names()))
	return true
}

// EnterShowTechnique starts the demonstration loop. Not allowed during Repetitions.
func (m *Machine) EnterShowTechnique() bool {
	if m.finished || m.phase == model.PhaseRepetitions {
		return false
	}
	m.detector.Reset()
	m.stopDemo()
	m.expecting = false
	m.clearCooldown()
	m.showStartedAt.mark(m.now)

	m.phase = model.PhaseShowTechnique
	m.showRepeats++
	m.marker = MarkerHidden
	m.demo = demoWaiting
	m.nextPlayAt = m.now
	m.logPhase()
	return true
}

// EnterFirstPerform stops the demonstration and asks for the neutral position.
// Only allowed from ShowTechnique.
func (m *Machine) EnterFirstPerform() bool {
	if m.finished || m.phase != model.PhaseShowTechnique {
		return false
	}
	m.detector.Reset()
	m.stopDemo()
	m.smoothing = false
	m.clearCooldown()
	m.firstPerformAt.mark(m.now)

	m.phase = model.PhaseFirstPerform
	m.logPhase()
	m.endGesture(false)
	return true
}

// EnterRepetitions starts the repetition quota. Only allowed from FirstPerform
// once a first attempt succeeded, unless force is set.
func (m *Machine) EnterRepetitions(force bool) bool {
	if m.finished || m.phase != model.PhaseFirstPerform {
		return false
	}
	if !m.firstPerformDone && !force {
		return false
	}
	m.detector.Reset()
	m.smoothing = false
	m.clearCooldown()
	m.repetitionsAt = stamp{at: m.now, set: true}

	m.phase = model.PhaseRepetitions
	m.repetition = 0
	m.logPhase()
	m.endGesture(false)
	return true
}

// Tick advances the clock by dt, consumes the recognitions of this tick and
// then evaluates timers, so a success wins over a timeout on the same tick.
func (m *Machine) Tick(dt time.Duration, frame model.PoseFrame, recognized []string) {
	m.now += dt
	m.detected = model.NoDetection
	if m.finished {
		return
	}
	if m.smoothing && m.now > m.smoothingUntil {
		m.smoothing = false
	}
	for _, name := range recognized {
		m.recognize(name)
	}
	m.advanceWindows()
	m.advanceDemo()
	m.writeFrame(frame)
	if m.phase == model.PhaseRepetitions && m.repetition >= m.timing.MaxRepetitions {
		m.EnterIdle()
	}
}

func (m *Machine) recognize(name string) {
	if m.smoothing {
		return
	}
	expected := m.active.Name()
	match := name == expected
	if match && m.active.Kind == gesture.KindStatic {
		if m.cooldownArmed && m.now <= m.cooldownUntil {
			m.log.Debug("static recognition suppressed", zap.String("gesture", name))
			return
		}
		m.cooldownArmed = true
		m.cooldownUntil = m.now + m.timing.Cooldown
	}

	switch m.phase {
	case model.PhaseShowTechnique:
		m.detected = name
		if match {
			m.successShow++
		}
	case model.PhaseFirstPerform:
		if !m.expecting {
			return
		}
		m.detected = name
		if match {
			m.firstPerformDone = true
			m.endGesture(true)
		}
	case model.PhaseRepetitions:
		if !m.expecting {
			return
		}
		m.detected = name
		if match {
			m.repetition++
			m.endGesture(true)
		}
	}
	if match {
		m.log.Debug("gesture recognized",
			zap.String("gesture", name),
			zap.Stringer("phase", m.phase),
			zap.Int("repetition", m.repetition))
	}
}

func (m *Machine) advanceWindows() {
	if m.phase != model.PhaseFirstPerform && m.phase != model.PhaseRepetitions {
		return
	}
	if m.expecting {
		if m.now > m.gestureDeadline {
			if m.phase == model.PhaseRepetitions {
				m.repetition++
			}
			m.endGesture(false)
		}
		return
	}
	if m.now > m.neutralDeadline {
		m.endNeutral()
	}
}

// endGesture closes the expecting window and opens the neutral one.
func (m *Machine) endGesture(recognized bool) {
	m.expecting = false
	if recognized {
		m.marker = MarkerGreen
		switch m.phase {
		case model.PhaseFirstPerform:
			m.successTry++
		case model.PhaseRepetitions:
			m.successRepeat++
		}
	} else {
		m.marker = MarkerRed
	}
	m.neutralDeadline = m.now + m.timing.NeutralDelay
	m.detector.Reset()
}

// endNeutral closes the neutral window and asks for the gesture.
func (m *Machine) endNeutral() {
	if m.phase == model.PhaseFirstPerform {
		m.askedTry++
	}
	m.expecting = true
	m.marker = MarkerRed
	m.gestureDeadline = m.now + m.expectTimeout()
	m.detector.Reset()
}

func (m *Machine) expectTimeout() time.Duration {
	if m.active.Kind == gesture.KindSequence && m.active.Sequence != nil {
		return m.active.Sequence.ExecTime
	}
	return m.timing.StaticTimeout
}

// advanceDemo runs the show loop: play, open the smoothing window shortly
// before the clip ends (override only), hide at clip end, wait, replay.
func (m *Machine) advanceDemo() {
	if m.phase != model.PhaseShowTechnique {
		return
	}
	for i := 0; i < 3; i++ {
		switch m.demo {
		case demoWaiting:
			if m.now < m.nextPlayAt {
				return
			}
			clip := m.presenter.Play(m.active, m.plan.Technique)
			m.animating = true
			m.nextPlayAt = m.now + clip + m.timing.AnimDelay
			m.clipEndAt = m.now + clip
			m.smoothStartAt = m.clipEndAt - m.timing.SmoothingLead
			if m.smoothStartAt < m.now {
				m.smoothStartAt = m.now
			}
			m.demo = demoPlaying
		case demoPlaying:
			if m.now < m.smoothStartAt {
				return
			}
			if m.plan.Technique == model.TechniqueOverride {
				m.smoothing = true
				m.smoothingUntil = m.now + m.timing.Smoothing
				m.presenter.BeginSmoothing(m.timing.Smoothing)
			}
			m.demo = demoSettling
		case demoSettling:
			if m.now < m.clipEndAt {
				return
			}
			m.animating = false
			m.presenter.Hide()
			m.demo = demoWaiting
		default:
			return
		}
	}
}

func (m *Machine) stopDemo() {
	if m.demo == demoOff {
		return
	}
	if m.animating {
		m.presenter.Hide()
	}
	m.animating = false
	m.demo = demoOff
}

func (m *Machine) clearCooldown() {
	m.cooldownArmed = false
	m.cooldownUntil = 0
}

func (m *Machine) writeFrame(frame model.PoseFrame) {
	if m.phase == model.PhaseIdle {
		return
	}
	rec := model.FrameRecord{
		Participant: m.plan.Participant,
		Modality:    m.plan.Modality,
		Technique:   m.plan.Technique,
		Timestamp:   m.now,
		Training:    m.training,
		Smoothing:   m.smoothing,
		Phase:       m.phase,
		Animating:   m.animating,
		Repetition:  m.repetition,
		ShowRepeats: m.showRepeats,
		Expected:    m.active.Name(),
		Detected:    m.detected,
		Joints:      frame.Joints,
	}
	if err := m.sink.WriteFrame(rec); err != nil {
		m.log.Warn("failed to write frame", zap.Error(err))
	}
}

func (m *Machine) writeCycle() {
	rec := m.cycleRecord()
	if err := m.sink.WriteCycle(rec); err != nil {
		m.log.Warn("failed to write cycle summary", zap.String("gesture", rec.Gesture), zap.Error(err))
	}
}

func (m *Machine) cycleRecord() model.CycleRecord {
	return model.CycleRecord{
		Participant:        m.plan.Participant,
		Modality:           m.plan.Modality,
		Technique:          m.plan.Technique,
		Gesture:            m.active.Name(),
		Training:           m.training,
		ShowRepeats:        m.showRepeats,
		TimeToFirstPerform: since(m.showStartedAt, m.firstPerformAt),
		TimeToRepetitions:  since(m.firstPerformAt, m.repetitionsAt),
		SuccessWhileShow:   m.successShow,
		AskedWhileTry:      m.askedTry,
		SuccessWhileTry:    m.successTry,
		SuccessWhileRepeat: m.successRepeat,
	}
}

func (m *Machine) logPhase() {
	m.log.Debug("phase changed",
		zap.Stringer("phase", m.phase),
		zap.String("gesture", m.active.Name()),
		zap.Duration("at", m.now))
}

// Snapshot is a read-only view of the machine for display.
type Snapshot struct {
	Now              time.Duration
	Phase            model.Phase
	Technique        model.Technique
	Gesture          string
	Kind             gesture.Kind
	Index            int
	Total            int
	Finished         bool
	Training         bool
	Animating        bool
	Smoothing        bool
	Expecting        bool
	FirstPerformDone bool
	Repetition       int
	MaxRepetitions   int
	ShowRepeats      int
	Marker           Marker
	Instruction      string
	Detected         string
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Now:              m.now,
		Phase:            m.phase,
		Technique:        m.plan.Technique,
		Gesture:          m.active.Name(),
		Kind:             m.active.Kind,
		Index:            m.index,
		Total:            len(m.plan.Gestures),
		Finished:         m.finished,
		Training:         m.training,
		Animating:        m.animating,
		Smoothing:        m.smoothing,
		Expecting:        m.expecting,
		FirstPerformDone: m.firstPerformDone,
		Repetition:       m.repetition,
		MaxRepetitions:   m.timing.MaxRepetitions,
		ShowRepeats:      m.showRepeats,
		Marker:           m.marker,
		Instruction:      m.instruction(),
		Detected:         m.detected,
	}
}

func (m *Machine) instruction() string {
	if m.finished {
		return instructionDone
	}
	switch m.phase {
	case model.PhaseShowTechnique:
		return instructionWatch
	case model.PhaseFirstPerform, model.PhaseRepetitions:
		if m.expecting {
			return instructionPerform
		}
		return instructionNeutral
	default:
		return instructionStart
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() model.Phase {
	return m.phase
}

// Finished reports whether every gesture of the plan has been run.
func (m *Machine) Finished() bool {
	return m.finished
}
