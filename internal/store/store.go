// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/gesturelab/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for study data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			participant INTEGER NOT NULL,
			modality INTEGER NOT NULL,
			technique TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			training INTEGER NOT NULL,
			smoothing INTEGER NOT NULL,
			phase TEXT NOT NULL,
			animating INTEGER NOT NULL,
			repetition INTEGER NOT NULL,
			show_repeats INTEGER NOT NULL,
			expected TEXT NOT NULL,
			detected TEXT NOT NULL,
			joints TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS cycles (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			gesture TEXT NOT NULL,
			training INTEGER NOT NULL,
			show_repeats INTEGER NOT NULL,
			first_perform_ms INTEGER NOT NULL,
			repetitions_ms INTEGER NOT NULL,
			success_show INTEGER NOT NULL,
			asked_try INTEGER NOT NULL,
			success_try INTEGER NOT NULL,
			success_repeat INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_participant ON runs(participant, modality);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateRun registers a new run and returns its identity.
func (s *Store) CreateRun(ctx context.Context, participant, modality int, technique model.Technique, startedAt time.Time) (model.RunInfo, error) {
	run := model.RunInfo{
		ID:          uuid.NewString(),
		Participant: participant,
		Modality:    modality,
		Technique:   technique,
		StartedAt:   startedAt,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, participant, modality, technique, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Participant, run.Modality, run.Technique.String(), run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.RunInfo{}, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

func (s *Store) insertFrames(ctx context.Context, runID string, first int, frames []model.FrameRecord) (err error) {
	if len(frames) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frames (run_id, seq, timestamp_ms, training, smoothing, phase, animating, repetition, show_repeats, expected, detected, joints)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, f := range frames {
		if _, err = stmt.ExecContext(ctx, runID, first+i, f.Timestamp.Milliseconds(), f.Training, f.Smoothing,
			f.Phase.String(), f.Animating, f.Repetition, f.ShowRepeats, f.Expected, f.Detected, formatJoints(f.Joints)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertCycle(ctx context.Context, runID string, seq int, c model.CycleRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (run_id, seq, gesture, training, show_repeats, first_perform_ms, repetitions_ms, success_show, asked_try, success_try, success_repeat)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq, c.Gesture, c.Training, c.ShowRepeats,
		c.TimeToFirstPerform.Milliseconds(), c.TimeToRepetitions.Milliseconds(),
		c.SuccessWhileShow, c.AskedWhileTry, c.SuccessWhileTry, c.SuccessWhileRepeat)
	return err
}

// ListRuns returns runs matching the filter, oldest first.
func (s *Store) ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunInfo, error) {
	where, args := runFilter(cfg)
	query := fmt.Sprintf(`SELECT id, participant, modality, technique, started_at
		FROM runs
		WHERE %s
		ORDER BY started_at ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunInfo
	for rows.Next() {
		var run model.RunInfo
		var technique, startedAt string
		if err := rows.Scan(&run.ID, &run.Participant, &run.Modality, &technique, &startedAt); err != nil {
			return nil, err
		}
		if run.Technique, err = parseTechnique(technique); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		run.StartedAt = parsed
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListCycles returns the cycle summaries of the runs matching the filter.
func (s *Store) ListCycles(ctx context.Context, cfg model.StatsConfig) ([]model.RunCycle, error) {
	where, args := runFilter(cfg)
	query := fmt.Sprintf(`SELECT r.id, r.participant, r.modality, r.technique, c.gesture, c.training, c.show_repeats,
			c.first_perform_ms, c.repetitions_ms, c.success_show, c.asked_try, c.success_try, c.success_repeat
		FROM cycles c
		JOIN runs r ON r.id = c.run_id
		WHERE %s
		ORDER BY r.started_at ASC, c.seq ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var cycles []model.RunCycle
	for rows.Next() {
		var c model.RunCycle
		var technique string
		var firstMs, repsMs int64
		if err := rows.Scan(&c.RunID, &c.Participant, &c.Modality, &technique, &c.Gesture, &c.Training, &c.ShowRepeats,
			&firstMs, &repsMs, &c.SuccessWhileShow, &c.AskedWhileTry, &c.SuccessWhileTry, &c.SuccessWhileRepeat); err != nil {
			return nil, err
		}
		if c.Technique, err = parseTechnique(technique); err != nil {
			return nil, err
		}
		c.TimeToFirstPerform = time.Duration(firstMs) * time.Millisecond
		c.TimeToRepetitions = time.Duration(repsMs) * time.Millisecond
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cycles, nil
}

// ListFrames returns the frame log of one run in write order.
func (s *Store) ListFrames(ctx context.Context, runID string) ([]model.FrameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.participant, r.modality, r.technique, f.timestamp_ms, f.training, f.smoothing, f.phase, f.animating,
			f.repetition, f.show_repeats, f.expected, f.detected, f.joints
		FROM frames f
		JOIN runs r ON r.id = f.run_id
		WHERE f.run_id = ?
		ORDER BY f.seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var frames []model.FrameRecord
	for rows.Next() {
		var f model.FrameRecord
		var technique, phase, joints string
		var ts int64
		if err := rows.Scan(&f.Participant, &f.Modality, &technique, &ts, &f.Training, &f.Smoothing, &phase, &f.Animating,
			&f.Repetition, &f.ShowRepeats, &f.Expected, &f.Detected, &joints); err != nil {
			return nil, err
		}
		if f.Technique, err = parseTechnique(technique); err != nil {
			return nil, err
		}
		if f.Phase, err = parsePhase(phase); err != nil {
			return nil, err
		}
		if f.Joints, err = parseJoints(joints); err != nil {
			return nil, err
		}
		f.Timestamp = time.Duration(ts) * time.Millisecond
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

func runFilter(cfg model.StatsConfig) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Participant > 0 {
		clauses = append(clauses, "participant = ?")
		args = append(args, cfg.Participant)
	}
	if cfg.Modality > 0 {
		clauses = append(clauses, "modality = ?")
		args = append(args, cfg.Modality)
	}
	if cfg.RunID != "" {
		clauses = append(clauses, "id = ?")
		args = append(args, cfg.RunID)
	}
	return strings.Join(clauses, " AND "), args
}

func parseTechnique(s string) (model.Technique, error) {
	for _, t := range []model.Technique{model.TechniqueGhost, model.TechniqueExternal, model.TechniqueOverride} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown technique %q", s)
}

func parsePhase(s string) (model.Phase, error) {
	for _, p := range []model.Phase{model.PhaseIdle, model.PhaseShowTechnique, model.PhaseFirstPerform, model.PhaseRepetitions} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

func formatJoints(joints []model.Vec3) string {
	parts := make([]string, 0, len(joints)*3)
	for _, j := range joints {
		parts = append(parts,
			strconv.FormatFloat(j.X, 'g', -1, 64),
			strconv.FormatFloat(j.Y, 'g', -1, 64),
			strconv.FormatFloat(j.Z, 'g', -1, 64))
	}
	return strings.Join(parts, ";")
}

func parseJoints(s string) ([]model.Vec3, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	if len(parts)%3 != 0 {
		return nil, fmt.Errorf("malformed joints %q", s)
	}
	joints := make([]model.Vec3, 0, len(parts)/3)
	for i := 0; i < len(parts); i += 3 {
		var v [3]float64
		for k := range v {
			f, err := strconv.ParseFloat(parts[i+k], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed joints %q: %w", s, err)
			}
			v[k] = f
		}
		joints = append(joints, model.Vec3{X: v[0], Y: v[1], Z: v[2]})
	}
	return joints, nil
}
