package report

import (
	"math"
	"strings"

	"github.com/verte-zerg/gesturelab/internal/model"
)

const sparkChars = " .:-=+*#%@"

// CycleMetrics are the success rates of one gesture cycle.
type CycleMetrics struct {
	TryRate        float64
	RepetitionRate float64
}

// Metrics computes the success rates of a cycle against the repetition quota.
func Metrics(c model.CycleRecord, maxReps int) CycleMetrics {
	var m CycleMetrics
	if c.AskedWhileTry > 0 {
		m.TryRate = float64(c.SuccessWhileTry) / float64(c.AskedWhileTry)
	}
	if maxReps > 0 {
		m.RepetitionRate = math.Min(1, float64(c.SuccessWhileRepeat)/float64(maxReps))
	}
	return m
}

// RunSummary aggregates the cycles of a run.
type RunSummary struct {
	Gestures        int
	TryRate         float64
	RepetitionRate  float64
	RepetitionRates []float64
}

// Summarize pools the attempts of all cycles of a run.
func Summarize(cycles []model.CycleRecord, maxReps int) RunSummary {
	s := RunSummary{Gestures: len(cycles)}
	var asked, tryOK, repOK int
	for _, c := range cycles {
		asked += c.AskedWhileTry
		tryOK += c.SuccessWhileTry
		repOK += c.SuccessWhileRepeat
		s.RepetitionRates = append(s.RepetitionRates, Metrics(c, maxReps).RepetitionRate)
	}
	if asked > 0 {
		s.TryRate = float64(tryOK) / float64(asked)
	}
	if maxReps > 0 && len(cycles) > 0 {
		s.RepetitionRate = math.Min(1, float64(repOK)/float64(maxReps*len(cycles)))
	}
	return s
}

// Sparkline renders a single-line ASCII sparkline scaled to [0, 1].
func Sparkline(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round(v * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
