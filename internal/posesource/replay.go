// Package posesource provides hand pose input for the session runner.
package posesource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/gesturelab/internal/model"
)

// Recording is a time-ordered list of captured hand frames.
type Recording struct {
	Frames []model.PoseFrame
}

// LoadRecording reads a semicolon separated recording from path.
func LoadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only file.
			_ = cerr
		}
	}()
	return ParseRecording(f)
}

// ParseRecording reads lines of the form `t;x;y;z;x;y;z;...` where t is in
// seconds. A non-numeric first line is treated as a header; lines starting
// with # are skipped.
func ParseRecording(r io.Reader) (*Recording, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rec := &Recording{}
	joints := -1
	for record := 0; ; record++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read recording: %w", err)
		}
		line, _ := cr.FieldPos(0)
		fields = trimTrailingEmpty(fields)
		if len(fields) == 0 {
			continue
		}
		secs, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			if record == 0 {
				continue
			}
			return nil, fmt.Errorf("recording line %d: invalid timestamp %q", line, fields[0])
		}
		coords := fields[1:]
		if len(coords) == 0 || len(coords)%3 != 0 {
			return nil, fmt.Errorf("recording line %d: expected x;y;z triples, got %d values", line, len(coords))
		}
		if joints >= 0 && len(coords)/3 != joints {
			return nil, fmt.Errorf("recording line %d: expected %d joints, got %d", line, joints, len(coords)/3)
		}
		joints = len(coords) / 3
		frame := model.PoseFrame{
			At:     time.Duration(secs * float64(time.Second)),
			Joints: make([]model.Vec3, 0, joints),
		}
		if n := len(rec.Frames); n > 0 && frame.At < rec.Frames[n-1].At {
			return nil, fmt.Errorf("recording line %d: timestamps must not decrease", line)
		}
		for i := 0; i < len(coords); i += 3 {
			var v [3]float64
			for k := range v {
				v[k], err = strconv.ParseFloat(coords[i+k], 64)
				if err != nil {
					return nil, fmt.Errorf("recording line %d: invalid coordinate %q", line, coords[i+k])
				}
			}
			frame.Joints = append(frame.Joints, model.Vec3{X: v[0], Y: v[1], Z: v[2]})
		}
		rec.Frames = append(rec.Frames, frame)
	}
	if len(rec.Frames) == 0 {
		return nil, errors.New("recording has no frames")
	}
	return rec, nil
}

func trimTrailingEmpty(fields []string) []string {
	for len(fields) > 0 && strings.TrimSpace(fields[len(fields)-1]) == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// Span returns the time covered by the recording.
func (r *Recording) Span() time.Duration {
	if len(r.Frames) == 0 {
		return 0
	}
	return r.Frames[len(r.Frames)-1].At - r.Frames[0].At
}

// JointCount returns the number of joints per frame.
func (r *Recording) JointCount() int {
	if len(r.Frames) == 0 {
		return 0
	}
	return len(r.Frames[0].Joints)
}

// ReplayOptions configure a Replay source.
type ReplayOptions struct {
	// WarmUp is the time during which the source reports no data.
	WarmUp time.Duration
	// Loop restarts the recording after its last frame.
	Loop bool
}

// Replay plays a recording back against the session clock.
type Replay struct {
	rec  *Recording
	opts ReplayOptions
}

// NewReplay returns a source playing rec.
func NewReplay(rec *Recording, opts ReplayOptions) *Replay {
	return &Replay{rec: rec, opts: opts}
}

// Poll returns the newest recorded frame at or before now. The recording
// starts once the warm-up is over; without looping the last frame is held.
func (p *Replay) Poll(now time.Duration) (model.PoseFrame, bool) {
	if p.rec == nil || len(p.rec.Frames) == 0 || now < p.opts.WarmUp {
		return model.PoseFrame{}, false
	}
	frames := p.rec.Frames
	offset := now - p.opts.WarmUp
	if span := p.rec.Span(); p.opts.Loop && span > 0 {
		offset %= span
	}
	at := frames[0].At + offset
	i := sort.Search(len(frames), func(i int) bool { return frames[i].At > at })
	f := frames[i-1]
	f.At = now
	return f, true
}
