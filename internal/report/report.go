// Package report renders stored study runs as tables and exports them as CSV.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
	"github.com/verte-zerg/gesturelab/internal/store"
)

// Report contains precomputed data for rendering.
type Report struct {
	Runs   []model.RunInfo
	Cycles map[string][]model.CycleRecord
}

// BuildReport loads the runs matching cfg and their cycle summaries.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list runs: %w", err)
	}
	cycles, err := st.ListCycles(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list cycles: %w", err)
	}
	byRun := make(map[string][]model.CycleRecord, len(runs))
	for _, c := range cycles {
		byRun[c.RunID] = append(byRun[c.RunID], c.CycleRecord)
	}
	return Report{Runs: runs, Cycles: byRun}, nil
}

// Options tune the rendered output.
type Options struct {
	// MaxRepetitions is the repetition quota used for the success rate.
	MaxRepetitions int
	// Color forces styled headers even when w is not a terminal.
	Color bool
}

// Render prints every run followed by its cycle table.
func Render(w io.Writer, r Report, opts Options) error {
	if len(r.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	useColor := shouldUseColor(w, opts.Color)
	for _, run := range r.Runs {
		if err := renderRun(w, run, r.Cycles[run.ID], opts.MaxRepetitions, useColor); err != nil {
			return err
		}
	}
	return nil
}

func renderRun(w io.Writer, run model.RunInfo, cycles []model.CycleRecord, maxReps int, useColor bool) error {
	title := fmt.Sprintf("Participant %d / Modality %d (%s)", run.Participant, run.Modality, run.Technique)
	if useColor {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Run: %s  Started: %s\n", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	if len(cycles) == 0 {
		_, err := fmt.Fprint(w, "No completed gestures.\n\n")
		return err
	}

	s := Summarize(cycles, maxReps)
	if _, err := fmt.Fprintf(w, "Gestures: %d  Try success: %s  Repetition success: %s  Trend: %s\n",
		s.Gestures, percent(s.TryRate), percent(s.RepetitionRate), Sparkline(s.RepetitionRates)); err != nil {
		return err
	}

	headers := []string{"Gesture", "Training", "Shows", "To Try (s)", "To Reps (s)", "Show OK", "Asked", "Try OK", "Rep OK", "Rep %"}
	rows := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		m := Metrics(c, maxReps)
		rows = append(rows, []string{
			c.Gesture,
			yesNo(c.Training),
			fmt.Sprintf("%d", c.ShowRepeats),
			fmt.Sprintf("%.2f", c.TimeToFirstPerform.Seconds()),
			fmt.Sprintf("%.2f", c.TimeToRepetitions.Seconds()),
			fmt.Sprintf("%d", c.SuccessWhileShow),
			fmt.Sprintf("%d", c.AskedWhileTry),
			fmt.Sprintf("%d", c.SuccessWhileTry),
			fmt.Sprintf("%d", c.SuccessWhileRepeat),
			percent(m.RepetitionRate),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true}
	lines := formatTable(headers, rows, rightAlign)
	if useColor && len(lines) > 0 {
		lines[0] = lipgloss.NewStyle().Underline(true).Render(lines[0])
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// RenderLibrary lists the gestures of a library.
func RenderLibrary(w io.Writer, lib *gesture.Library) error {
	gestures := lib.Gestures()
	if len(gestures) == 0 {
		_, err := fmt.Fprintln(w, "No gestures found.")
		return err
	}
	headers := []string{"Gesture", "Kind", "Threshold", "Exec (s)", "Clip (s)", "Keyframes"}
	rows := make([][]string, 0, len(gestures))
	for _, g := range gestures {
		row := []string{g.Name(), g.Kind.String(), "-", "-", fmt.Sprintf("%.2f", g.ClipLength.Seconds()), "-"}
		switch g.Kind {
		case gesture.KindStatic:
			row[2] = fmt.Sprintf("%.3f", g.Pose.Threshold)
		case gesture.KindSequence:
			row[3] = fmt.Sprintf("%.2f", g.Sequence.ExecTime.Seconds())
			names := make([]string, len(g.Sequence.Keyframes))
			for i, k := range g.Sequence.Keyframes {
				names[i] = k.Name
			}
			row[5] = strings.Join(names, " > ")
		}
		rows = append(rows, row)
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d gestures, %d joints per pose\n", len(gestures), lib.JointCount())
	return err
}
