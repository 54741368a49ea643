package posesource

import (
	"fmt"
	"time"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
)

// DefaultCaptureThreshold is the threshold given to captured poses.
const DefaultCaptureThreshold = 0.1

// Capture averages the frames recorded in [from, to] into a named pose.
func Capture(rec *Recording, name string, from, to time.Duration, threshold float64) (*gesture.Pose, error) {
	if name == "" {
		return nil, fmt.Errorf("pose name is empty")
	}
	if to < from {
		return nil, fmt.Errorf("capture window ends before it starts")
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must be >= 0")
	}
	var sum []model.Vec3
	n := 0
	for _, f := range rec.Frames {
		if f.At < from || f.At > to {
			continue
		}
		if sum == nil {
			sum = make([]model.Vec3, len(f.Joints))
		}
		for i, j := range f.Joints {
			sum[i].X += j.X
			sum[i].Y += j.Y
			sum[i].Z += j.Z
		}
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("no frames between %s and %s", from, to)
	}
	for i := range sum {
		sum[i].X /= float64(n)
		sum[i].Y /= float64(n)
		sum[i].Z /= float64(n)
	}
	return &gesture.Pose{Name: name, Threshold: threshold, Joints: sum}, nil
}
