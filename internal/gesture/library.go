// Package gesture holds gesture definitions and the deterministic recognizers.
package gesture

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/gesturelab/internal/model"
)

// DefaultClipLength is used for gestures without a clip_length entry.
const DefaultClipLength = 2 * time.Second

// Kind tags the variant held by a Gesture.
type Kind int

const (
	KindStatic Kind = iota
	KindSequence
)

// String returns a short label for the kind.
func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindSequence:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Pose is a named hand shape with a per-joint match threshold.
type Pose struct {
	Name      string
	Threshold float64
	Joints    []model.Vec3
}

// Sequence is an ordered list of keyframe poses performed within ExecTime.
type Sequence struct {
	Name      string
	Keyframes []*Pose
	ExecTime  time.Duration
}

// Gesture is either a static pose or a keyframe sequence.
type Gesture struct {
	Kind       Kind
	Pose       *Pose
	Sequence   *Sequence
	ClipLength time.Duration
}

// Name returns the library name of the gesture.
func (g Gesture) Name() string {
	switch g.Kind {
	case KindStatic:
		if g.Pose != nil {
			return g.Pose.Name
		}
	case KindSequence:
		if g.Sequence != nil {
			return g.Sequence.Name
		}
	}
	return ""
}

// ActiveSet returns the poses the matcher has to evaluate while this gesture is expected.
func (g Gesture) ActiveSet() ActiveSet {
	switch g.Kind {
	case KindStatic:
		return NewActiveSet(g.Pose)
	case KindSequence:
		return NewActiveSet(g.Sequence.Keyframes...)
	default:
		return nil
	}
}

// Library is the immutable set of gestures loaded for a session.
type Library struct {
	gestures   map[string]Gesture
	order      []string
	jointCount int
}

type libraryFile struct {
	Poses     []poseEntry     `yaml:"poses,omitempty"`
	Sequences []sequenceEntry `yaml:"sequences,omitempty"`
}

type poseEntry struct {
	Name       string      `yaml:"name"`
	Threshold  *float64    `yaml:"threshold"`
	ClipLength float64     `yaml:"clip_length,omitempty"`
	Joints     [][]float64 `yaml:"joints,flow"`
}

type sequenceEntry struct {
	Name       string   `yaml:"name"`
	ExecTime   float64  `yaml:"exec_time"`
	ClipLength float64  `yaml:"clip_length,omitempty"`
	Keyframes  []string `yaml:"keyframes,flow"`
}

// DefaultThreshold is applied to poses without an explicit threshold.
const DefaultThreshold = 0.1

// LoadLibrary reads and validates a YAML gesture library.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gesture library: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary decodes and validates a YAML gesture library.
func ParseLibrary(data []byte) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Subject: "library", Reason: err.Error()}
	}
	lib := &Library{gestures: map[string]Gesture{}}
	poses := map[string]*Pose{}
	for i, entry := range file.Poses {
		pose, err := entry.toPose(i)
		if err != nil {
			return nil, err
		}
		if lib.jointCount == 0 {
			lib.jointCount = len(pose.Joints)
		} else if len(pose.Joints) != lib.jointCount {
			return nil, configErrorf(pose.Name, "has %d joints, expected %d", len(pose.Joints), lib.jointCount)
		}
		if err := lib.add(Gesture{Kind: KindStatic, Pose: pose, ClipLength: clipLength(entry.ClipLength)}); err != nil {
			return nil, err
		}
		poses[pose.Name] = pose
	}
	for i, entry := range file.Sequences {
		seq, err := entry.toSequence(i, poses)
		if err != nil {
			return nil, err
		}
		if err := lib.add(Gesture{Kind: KindSequence, Sequence: seq, ClipLength: clipLength(entry.ClipLength)}); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *Library) add(g Gesture) error {
	name := g.Name()
	if _, ok := l.gestures[name]; ok {
		return configErrorf(name, "duplicate gesture name")
	}
	l.gestures[name] = g
	l.order = append(l.order, name)
	return nil
}

// Lookup returns the gesture registered under name.
func (l *Library) Lookup(name string) (Gesture, error) {
	g, ok := l.gestures[name]
	if !ok {
		return Gesture{}, configErrorf(name, "gesture not found in library")
	}
	return g, nil
}

// Names returns gesture names in file order.
func (l *Library) Names() []string {
	return append([]string(nil), l.order...)
}

// Gestures returns all gestures in file order.
func (l *Library) Gestures() []Gesture {
	out := make([]Gesture, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.gestures[name])
	}
	return out
}

// JointCount is the number of joints every pose carries.
func (l *Library) JointCount() int {
	return l.jointCount
}

func (e poseEntry) toPose(index int) (*Pose, error) {
	if e.Name == "" {
		return nil, configErrorf(fmt.Sprintf("poses[%d]", index), "missing name")
	}
	threshold := DefaultThreshold
	if e.Threshold != nil {
		threshold = *e.Threshold
	}
	if threshold < 0 {
		return nil, configErrorf(e.Name, "threshold must be >= 0")
	}
	if len(e.Joints) == 0 {
		return nil, configErrorf(e.Name, "pose has no joints")
	}
	joints := make([]model.Vec3, len(e.Joints))
	for i, j := range e.Joints {
		if len(j) != 3 {
			return nil, configErrorf(e.Name, "joint %d has %d coordinates, expected 3", i, len(j))
		}
		joints[i] = model.Vec3{X: j[0], Y: j[1], Z: j[2]}
	}
	return &Pose{Name: e.Name, Threshold: threshold, Joints: joints}, nil
}

func (e sequenceEntry) toSequence(index int, poses map[string]*Pose) (*Sequence, error) {
	if e.Name == "" {
		return nil, configErrorf(fmt.Sprintf("sequences[%d]", index), "missing name")
	}
	if len(e.Keyframes) < 2 {
		return nil, configErrorf(e.Name, "sequence needs at least 2 keyframes, got %d", len(e.Keyframes))
	}
	if e.ExecTime <= 0 {
		return nil, configErrorf(e.Name, "exec_time must be > 0")
	}
	keyframes := make([]*Pose, len(e.Keyframes))
	for i, ref := range e.Keyframes {
		pose, ok := poses[ref]
		if !ok {
			return nil, configErrorf(e.Name, "keyframe %q is not a pose in the library", ref)
		}
		keyframes[i] = pose
	}
	return &Sequence{Name: e.Name, Keyframes: keyframes, ExecTime: seconds(e.ExecTime)}, nil
}

// MarshalPose renders a pose as a library entry, used when capturing new poses.
func MarshalPose(p *Pose) ([]byte, error) {
	threshold := p.Threshold
	entry := poseEntry{Name: p.Name, Threshold: &threshold}
	for _, j := range p.Joints {
		entry.Joints = append(entry.Joints, []float64{j.X, j.Y, j.Z})
	}
	return yaml.Marshal(libraryFile{Poses: []poseEntry{entry}})
}

func clipLength(secs float64) time.Duration {
	if secs <= 0 {
		return DefaultClipLength
	}
	return seconds(secs)
}

func seconds(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
