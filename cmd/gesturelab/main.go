// Package main provides the CLI entrypoint for gesturelab.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/verte-zerg/gesturelab/internal/config"
	"github.com/verte-zerg/gesturelab/internal/gesture"
	"github.com/verte-zerg/gesturelab/internal/model"
	"github.com/verte-zerg/gesturelab/internal/posesource"
	"github.com/verte-zerg/gesturelab/internal/report"
	"github.com/verte-zerg/gesturelab/internal/session"
	"github.com/verte-zerg/gesturelab/internal/store"
	"github.com/verte-zerg/gesturelab/internal/story"
	"github.com/verte-zerg/gesturelab/internal/tui"
)

const (
	defaultParticipant = 1
	defaultModality    = 1
	defaultFPS         = 60
	defaultWarmUp      = 2 * time.Second
)

var (
	logger  *zap.Logger
	verbose bool
	logPath string

	runParticipant int
	runModality    int
	runLibrary     string
	runStory       string
	runPoses       string
	runFPS         int
	runLoop        bool
	runWarmUp      time.Duration

	timingStatic   float64
	timingNeutral  float64
	timingCooldown float64
	timingAnim     float64
	timingSmooth   float64
	timingLead     float64
	timingMaxReps  int

	captureRecording string
	captureName      string
	captureFrom      float64
	captureTo        float64
	captureThreshold float64

	reportParticipant int
	reportModality    int
	reportRun         string

	exportRun string
	exportDir string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "gesturelab",
		Short:             "Hand gesture learning study console",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: initLogger,
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				// Best-effort flush; stderr sync fails on some terminals.
				_ = logger.Sync()
			}
		},
		RunE: runStudyCmd,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "log file (default: stderr, data dir for the console)")

	defaults := model.DefaultTiming()
	flags := rootCmd.Flags()
	flags.IntVar(&runParticipant, "participant", defaultParticipant, "participant number (1-based)")
	flags.IntVar(&runModality, "modality", defaultModality, "modality number (1-based)")
	flags.StringVar(&runLibrary, "library", config.DefaultLibraryPath(), "gesture library (YAML)")
	flags.StringVar(&runStory, "story", config.DefaultStoryPath(), "study story (JSON or YAML)")
	flags.StringVar(&runPoses, "poses", "", "hand recording to replay as pose input")
	flags.IntVar(&runFPS, "fps", defaultFPS, "ticks per second")
	flags.BoolVar(&runLoop, "loop", false, "loop the hand recording")
	flags.DurationVar(&runWarmUp, "warm-up", defaultWarmUp, "time before hand data becomes available")
	flags.Float64Var(&timingStatic, "static-timeout", defaultTiming(defaults.StaticTimeout), "seconds to perform a static gesture")
	flags.Float64Var(&timingNeutral, "neutral-delay", defaultTiming(defaults.NeutralDelay), "seconds in neutral position between attempts")
	flags.Float64Var(&timingCooldown, "cooldown", defaultTiming(defaults.Cooldown), "seconds between two static recognitions")
	flags.Float64Var(&timingAnim, "anim-delay", defaultTiming(defaults.AnimDelay), "seconds between demonstration replays")
	flags.Float64Var(&timingSmooth, "smoothing", defaultTiming(defaults.Smoothing), "seconds of hand smoothing after an override demonstration")
	flags.Float64Var(&timingLead, "smoothing-lead", defaultTiming(defaults.SmoothingLead), "seconds before clip end when smoothing starts")
	flags.IntVar(&timingMaxReps, "max-repetitions", defaults.MaxRepetitions, "repetition quota per gesture")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGesturesCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

func defaultTiming(d time.Duration) float64 {
	return d.Seconds()
}

func initLogger(cmd *cobra.Command, _ []string) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	path := logPath
	if path == "" && cmd.Name() == "gesturelab" {
		// The console owns the terminal.
		path = config.DefaultLogPath()
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	var err error
	logger, err = cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func runStudyCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "participant", &runParticipant, fileCfg.Study.Participant)
	applyIntConfig(cmd, "modality", &runModality, fileCfg.Study.Modality)
	applyStringConfig(cmd, "library", &runLibrary, fileCfg.Study.Library)
	applyStringConfig(cmd, "story", &runStory, fileCfg.Study.Story)
	applyStringConfig(cmd, "poses", &runPoses, fileCfg.Study.Poses)
	applyIntConfig(cmd, "fps", &runFPS, fileCfg.Study.FPS)
	applyFloatConfig(cmd, "static-timeout", &timingStatic, fileCfg.Timing.StaticTimeout)
	applyFloatConfig(cmd, "neutral-delay", &timingNeutral, fileCfg.Timing.NeutralDelay)
	applyFloatConfig(cmd, "cooldown", &timingCooldown, fileCfg.Timing.Cooldown)
	applyFloatConfig(cmd, "anim-delay", &timingAnim, fileCfg.Timing.AnimDelay)
	applyFloatConfig(cmd, "smoothing", &timingSmooth, fileCfg.Timing.Smoothing)
	applyFloatConfig(cmd, "smoothing-lead", &timingLead, fileCfg.Timing.SmoothingLead)
	applyIntConfig(cmd, "max-repetitions", &timingMaxReps, fileCfg.Timing.MaxRepetitions)

	cfg := model.Config{
		Participant: runParticipant,
		Modality:    runModality,
		LibraryPath: runLibrary,
		StoryPath:   runStory,
		PosesPath:   runPoses,
		FPS:         runFPS,
		Timing: model.Timing{
			StaticTimeout:  config.Seconds(timingStatic),
			NeutralDelay:   config.Seconds(timingNeutral),
			Cooldown:       config.Seconds(timingCooldown),
			AnimDelay:      config.Seconds(timingAnim),
			Smoothing:      config.Seconds(timingSmooth),
			SmoothingLead:  config.Seconds(timingLead),
			MaxRepetitions: timingMaxReps,
		},
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	lib, err := gesture.LoadLibrary(cfg.LibraryPath)
	if err != nil {
		return startupError(err)
	}
	studyStory, err := story.Load(cfg.StoryPath)
	if err != nil {
		return startupError(err)
	}
	plan, err := studyStory.Resolve(cfg.Participant, cfg.Modality, lib)
	if err != nil {
		return startupError(err)
	}

	var source session.PoseSource
	if cfg.PosesPath != "" {
		rec, err := posesource.LoadRecording(cfg.PosesPath)
		if err != nil {
			return fmt.Errorf("failed to load poses: %w", err)
		}
		if rec.JointCount() != lib.JointCount() {
			return fmt.Errorf("recording has %d joints, library poses have %d", rec.JointCount(), lib.JointCount())
		}
		source = posesource.NewReplay(rec, posesource.ReplayOptions{WarmUp: runWarmUp, Loop: runLoop})
	} else {
		logger.Warn("no pose input configured; recognition is disabled")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	run, err := st.CreateRun(context.Background(), plan.Participant, plan.Modality, plan.Technique, time.Now())
	if err != nil {
		return err
	}
	sink := st.NewRunSink(run)
	defer func() {
		if ferr := sink.Flush(); ferr != nil {
			logErrf("failed to save frames: %v\n", ferr)
		}
	}()

	runLog := logger.With(zap.String("run", sink.Run().ID))
	runLog.Info("run started",
		zap.Int("participant", plan.Participant),
		zap.Int("modality", plan.Modality),
		zap.Stringer("technique", plan.Technique),
		zap.Strings("gestures", gestureNames(plan)))

	runner, err := session.NewRunner(plan, cfg.Timing, session.RunnerDeps{
		Source:    source,
		Presenter: &session.ClipPresenter{},
		Sink:      sink,
		Logger:    runLog,
	})
	if err != nil {
		return startupError(err)
	}

	console := tui.NewModel(runner, tui.Options{
		Participant: plan.Participant,
		Modality:    plan.Modality,
		FPS:         cfg.FPS,
	}, runLog)
	program := tea.NewProgram(console, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	runLog.Info("run ended", zap.Bool("finished", runner.Finished()))
	return nil
}

func gestureNames(plan story.Plan) []string {
	names := make([]string, len(plan.Gestures))
	for i, g := range plan.Gestures {
		names[i] = g.Name()
	}
	return names
}

func startupError(err error) error {
	if errors.Is(err, gesture.ErrConfiguration) {
		logger.Error("invalid study configuration", zap.Error(err))
	}
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newGesturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gestures",
		Short: "List the gesture library",
		Args:  cobra.NoArgs,
		RunE:  runGesturesCmd,
	}
	cmd.Flags().StringVar(&runLibrary, "library", config.DefaultLibraryPath(), "gesture library (YAML)")
	return cmd
}

func runGesturesCmd(cmd *cobra.Command, _ []string) error {
	lib, err := gesture.LoadLibrary(runLibrary)
	if err != nil {
		return err
	}
	return report.RenderLibrary(cmd.OutOrStdout(), lib)
}

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Average a recorded hand pose into a library entry",
		Args:  cobra.NoArgs,
		RunE:  runCaptureCmd,
	}
	cmd.Flags().StringVar(&captureRecording, "recording", "", "hand recording (t;x;y;z;...)")
	cmd.Flags().StringVar(&captureName, "name", "", "pose name")
	cmd.Flags().Float64Var(&captureFrom, "from", 0, "window start in seconds")
	cmd.Flags().Float64Var(&captureTo, "to", 0, "window end in seconds (default: end of recording)")
	cmd.Flags().Float64Var(&captureThreshold, "threshold", posesource.DefaultCaptureThreshold, "per-joint match threshold")
	_ = cmd.MarkFlagRequired("recording")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	rec, err := posesource.LoadRecording(captureRecording)
	if err != nil {
		return err
	}
	to := config.Seconds(captureTo)
	if !cmd.Flags().Changed("to") {
		to = rec.Frames[len(rec.Frames)-1].At
	}
	pose, err := posesource.Capture(rec, captureName, config.Seconds(captureFrom), to, captureThreshold)
	if err != nil {
		return fmt.Errorf("failed to capture pose: %w", err)
	}
	out, err := gesture.MarshalPose(pose)
	if err != nil {
		return fmt.Errorf("failed to encode pose: %w", err)
	}
	logger.Debug("pose captured", zap.String("pose", pose.Name), zap.Int("joints", len(pose.Joints)))
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show per-gesture results of stored runs",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().IntVar(&reportParticipant, "participant", 0, "participant filter")
	cmd.Flags().IntVar(&reportModality, "modality", 0, "modality filter")
	cmd.Flags().StringVar(&reportRun, "run", "", "run id filter")
	cmd.Flags().IntVar(&timingMaxReps, "max-repetitions", model.DefaultTiming().MaxRepetitions, "repetition quota used for success rates")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	rep, err := report.BuildReport(context.Background(), st, model.StatsConfig{
		Participant: reportParticipant,
		Modality:    reportModality,
		RunID:       reportRun,
	})
	if err != nil {
		return err
	}
	return report.Render(cmd.OutOrStdout(), rep, report.Options{MaxRepetitions: timingMaxReps})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored runs as semicolon separated files",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().IntVar(&reportParticipant, "participant", 0, "participant filter")
	cmd.Flags().IntVar(&reportModality, "modality", 0, "modality filter")
	cmd.Flags().StringVar(&exportRun, "run", "", "run id filter")
	cmd.Flags().StringVar(&exportDir, "out", "StudyLogs", "output directory")
	return cmd
}

func runExportCmd(_ *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := context.Background()
	filter := model.StatsConfig{Participant: reportParticipant, Modality: reportModality, RunID: exportRun}
	rep, err := report.BuildReport(ctx, st, filter)
	if err != nil {
		return err
	}
	if len(rep.Runs) == 0 {
		return fmt.Errorf("no runs match the filter")
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, run := range rep.Runs {
		frames, err := st.ListFrames(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to load frames: %w", err)
		}
		base := fmt.Sprintf("Participant%d_Modality%d_%d.csv", run.Participant, run.Modality, run.StartedAt.Unix())
		handPath := filepath.Join(exportDir, "Hand_"+base)
		if err := writeFile(handPath, func(f *os.File) error { return report.WriteFrames(f, frames) }); err != nil {
			return err
		}
		mainPath := filepath.Join(exportDir, "Main_"+base)
		if err := writeFile(mainPath, func(f *os.File) error { return report.WriteCycles(f, rep.Cycles[run.ID]) }); err != nil {
			return err
		}
		logger.Info("run exported", zap.String("run", run.ID), zap.Int("frames", len(frames)),
			zap.String("hand", handPath), zap.String("main", mainPath))
		logErrf("Wrote %s and %s\n", handPath, mainPath)
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	t := model.DefaultTiming()
	return fmt.Sprintf(`# gesturelab configuration
# Uncomment a value to enable it. CLI flags override config values.

[study]
# participant = %d           # Participant number (1-based)
# modality = %d              # Modality number (1-based)
# library = %q
# story = %q
# poses = ""                # Hand recording replayed as pose input
# fps = %d                  # Ticks per second

[timing]
# static-timeout = %.2f      # Seconds to perform a static gesture
# neutral-delay = %.2f       # Seconds in neutral position between attempts
# cooldown = %.2f            # Seconds between two static recognitions
# anim-delay = %.2f          # Seconds between demonstration replays
# smoothing = %.2f           # Seconds of hand smoothing (override technique)
# smoothing-lead = %.2f      # Seconds before clip end when smoothing starts
# max-repetitions = %d      # Repetition quota per gesture
`,
		defaultParticipant,
		defaultModality,
		config.DefaultLibraryPath(),
		config.DefaultStoryPath(),
		defaultFPS,
		t.StaticTimeout.Seconds(),
		t.NeutralDelay.Seconds(),
		t.Cooldown.Seconds(),
		t.AnimDelay.Seconds(),
		t.Smoothing.Seconds(),
		t.SmoothingLead.Seconds(),
		t.MaxRepetitions,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Participant <= 0 {
		return fmt.Errorf("--participant must be > 0")
	}
	if cfg.Modality <= 0 {
		return fmt.Errorf("--modality must be > 0")
	}
	if cfg.FPS <= 0 {
		return fmt.Errorf("--fps must be > 0")
	}
	if cfg.LibraryPath == "" {
		return fmt.Errorf("--library must not be empty")
	}
	if cfg.StoryPath == "" {
		return fmt.Errorf("--story must not be empty")
	}
	t := cfg.Timing
	for name, d := range map[string]time.Duration{
		"static-timeout": t.StaticTimeout,
		"neutral-delay":  t.NeutralDelay,
		"cooldown":       t.Cooldown,
		"anim-delay":     t.AnimDelay,
		"smoothing":      t.Smoothing,
		"smoothing-lead": t.SmoothingLead,
	} {
		if d < 0 {
			return fmt.Errorf("--%s must be >= 0", name)
		}
	}
	if t.StaticTimeout == 0 {
		return fmt.Errorf("--static-timeout must be > 0")
	}
	if t.MaxRepetitions <= 0 {
		return fmt.Errorf("--max-repetitions must be > 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
