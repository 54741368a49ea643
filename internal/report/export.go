package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/gesturelab/internal/model"
)

var frameHeader = []string{
	"participantNb", "modalityNb", "showTechnique", "timeStamp", "isTraining", "isLerping", "studyStep",
	"isAnim", "currentRepetitionNb", "showGestureRepeats", "currentExpectedGestureName", "detectedGestureName",
	"jointsPositions",
}

var cycleHeader = []string{
	"participantNb", "modalityNb", "showTechnique", "gestureName", "isTraining", "showGestureRepeats",
	"timeBeforeTriggerSecondPhase", "timeBeforeTriggerThirdPhase", "nbOfSuccessInFirstPhase",
	"nbGestureAskedWhileTry", "nbOfSuccessInSecondPhase", "nbOfSuccessInThirdPhase",
}

// WriteFrames writes the frame log as semicolon separated values. Data rows
// end with a separator, joints are flattened to x;y;z per joint.
func WriteFrames(w io.Writer, frames []model.FrameRecord) error {
	cw := newWriter(w)
	if err := cw.Write(frameHeader); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	for _, f := range frames {
		row := []string{
			strconv.Itoa(f.Participant),
			strconv.Itoa(f.Modality),
			f.Technique.String(),
			formatSeconds(f.Timestamp.Seconds()),
			formatBool(f.Training),
			formatBool(f.Smoothing),
			f.Phase.String(),
			formatBool(f.Animating),
			strconv.Itoa(f.Repetition),
			strconv.Itoa(f.ShowRepeats),
			f.Expected,
			f.Detected,
		}
		for _, j := range f.Joints {
			row = append(row, formatSeconds(j.X), formatSeconds(j.Y), formatSeconds(j.Z))
		}
		if err := cw.Write(append(row, "")); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCycles writes cycle summaries as semicolon separated values.
func WriteCycles(w io.Writer, cycles []model.CycleRecord) error {
	cw := newWriter(w)
	if err := cw.Write(cycleHeader); err != nil {
		return fmt.Errorf("failed to write cycle header: %w", err)
	}
	for _, c := range cycles {
		row := []string{
			strconv.Itoa(c.Participant),
			strconv.Itoa(c.Modality),
			c.Technique.String(),
			c.Gesture,
			formatBool(c.Training),
			strconv.Itoa(c.ShowRepeats),
			formatSeconds(c.TimeToFirstPerform.Seconds()),
			formatSeconds(c.TimeToRepetitions.Seconds()),
			strconv.Itoa(c.SuccessWhileShow),
			strconv.Itoa(c.AskedWhileTry),
			strconv.Itoa(c.SuccessWhileTry),
			strconv.Itoa(c.SuccessWhileRepeat),
			"",
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write cycle: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
