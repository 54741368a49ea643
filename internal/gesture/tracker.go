package gesture

import "time"

// NotStarted is the progress of a sequence with no keyframe reached.
const NotStarted = -1

type sequenceState struct {
	progress int
	elapsed  time.Duration
}

// Tracker follows the keyframe progress of several sequences at once.
//
// Progress only moves forward when the next expected keyframe is recognized;
// other names are ignored. A sequence whose timer exceeds its ExecTime falls
// back to NotStarted without an event.
type Tracker struct {
	sequences []*Sequence
	states    map[string]*sequenceState
}

// NewTracker returns a tracker following the given sequences.
func NewTracker(sequences ...*Sequence) *Tracker {
	t := &Tracker{}
	t.Track(sequences...)
	return t
}

// Track replaces the followed sequences and resets all progress.
func (t *Tracker) Track(sequences ...*Sequence) {
	t.sequences = make([]*Sequence, 0, len(sequences))
	for _, s := range sequences {
		if s != nil && len(s.Keyframes) >= 2 {
			t.sequences = append(t.sequences, s)
		}
	}
	t.Reset()
}

// Reset puts every followed sequence back to NotStarted.
func (t *Tracker) Reset() {
	t.states = make(map[string]*sequenceState, len(t.sequences))
}

// OnPoseRecognized advances every sequence expecting name next and returns
// the sequences completed by this pose.
func (t *Tracker) OnPoseRecognized(name string) []*Sequence {
	var completed []*Sequence
	for _, seq := range t.sequences {
		state := t.states[seq.Name]
		progress := NotStarted
		if state != nil {
			progress = state.progress
		}
		next := progress + 1
		if seq.Keyframes[next].Name != name {
			continue
		}
		if next == len(seq.Keyframes)-1 {
			delete(t.states, seq.Name)
			completed = append(completed, seq)
			continue
		}
		if state == nil {
			// Timer starts when the sequence leaves NotStarted.
			state = &sequenceState{}
			t.states[seq.Name] = state
		}
		state.progress = next
	}
	return completed
}

// Tick advances running timers by dt and drops sequences over budget.
func (t *Tracker) Tick(dt time.Duration) {
	for _, seq := range t.sequences {
		state, ok := t.states[seq.Name]
		if !ok {
			continue
		}
		state.elapsed += dt
		if state.elapsed > seq.ExecTime {
			delete(t.states, seq.Name)
		}
	}
}

// Progress returns the index of the last reached keyframe, or NotStarted.
func (t *Tracker) Progress(name string) int {
	if state, ok := t.states[name]; ok {
		return state.progress
	}
	return NotStarted
}

// Elapsed returns the running time of a sequence and whether its timer runs.
func (t *Tracker) Elapsed(name string) (time.Duration, bool) {
	if state, ok := t.states[name]; ok {
		return state.elapsed, true
	}
	return 0, false
}

// Sequences returns the followed sequences.
func (t *Tracker) Sequences() []*Sequence {
	return append([]*Sequence(nil), t.sequences...)
}
