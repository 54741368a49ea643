package gesture

import "github.com/verte-zerg/gesturelab/internal/model"

// ActiveSet is the ordered list of candidate poses evaluated by Recognize.
// It is replaced as a whole on reconfiguration and never edited in place.
type ActiveSet []*Pose

// NewActiveSet copies the given poses into a fresh set, dropping nils.
func NewActiveSet(poses ...*Pose) ActiveSet {
	set := make(ActiveSet, 0, len(poses))
	for _, p := range poses {
		if p != nil {
			set = append(set, p)
		}
	}
	return set
}

// Names lists the candidate names in registration order.
func (s ActiveSet) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Recognize returns the candidate closest to the live pose.
//
// A candidate is discarded as soon as one joint lies farther than its
// threshold; among the rest the smallest summed distance wins and ties keep
// the earlier candidate.
func Recognize(live []model.Vec3, set ActiveSet) (string, bool) {
	if len(live) == 0 {
		return "", false
	}
	best := ""
	found := false
	var bestSum float64
	for _, candidate := range set {
		sum, ok := Score(live, candidate)
		if !ok {
			continue
		}
		if !found || sum < bestSum {
			best = candidate.Name
			bestSum = sum
			found = true
		}
	}
	return best, found
}

// Score sums per-joint distances between live and the pose. It reports false
// when the joint counts differ or any joint exceeds the pose threshold.
func Score(live []model.Vec3, pose *Pose) (float64, bool) {
	if pose == nil || len(live) != len(pose.Joints) {
		return 0, false
	}
	var sum float64
	for i, joint := range live {
		d := joint.Distance(pose.Joints[i])
		if d > pose.Threshold {
			return 0, false
		}
		sum += d
	}
	return sum, true
}

// EdgeKind distinguishes edge events.
type EdgeKind int

const (
	EdgeRecognized EdgeKind = iota
	EdgeLost
)

// Edge is a change in the matcher output between two consecutive ticks.
type Edge struct {
	Kind EdgeKind
	Name string
}

// EdgeTrigger turns per-tick matcher results into recognized/lost events.
type EdgeTrigger struct {
	current string
	active  bool
}

// Observe feeds the result of one tick and returns the edges it produced.
func (e *EdgeTrigger) Observe(name string, ok bool) []Edge {
	var edges []Edge
	if e.active && (!ok || name != e.current) {
		edges = append(edges, Edge{Kind: EdgeLost, Name: e.current})
		e.active = false
		e.current = ""
	}
	if ok && !e.active {
		edges = append(edges, Edge{Kind: EdgeRecognized, Name: name})
		e.active = true
		e.current = name
	}
	return edges
}

// Current returns the name matched on the last tick.
func (e *EdgeTrigger) Current() (string, bool) {
	return e.current, e.active
}

// Reset forgets the previous match.
func (e *EdgeTrigger) Reset() {
	e.current = ""
	e.active = false
}
