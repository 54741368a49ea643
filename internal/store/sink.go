package store

import (
	"context"
	"fmt"

	"github.com/verte-zerg/gesturelab/internal/model"
)

// frameBatch is the number of frame records written per transaction.
const frameBatch = 120

// RunSink writes the session log of one run. Frames are buffered and written
// in batches; cycles flush the pending frames first.
type RunSink struct {
	store   *Store
	run     model.RunInfo
	pending []model.FrameRecord
	frames  int
	cycles  int
}

// NewRunSink returns a sink bound to run.
func (s *Store) NewRunSink(run model.RunInfo) *RunSink {
	return &RunSink{store: s, run: run}
}

// Run returns the run the sink writes to.
func (k *RunSink) Run() model.RunInfo {
	return k.run
}

// WriteFrame buffers a frame record.
func (k *RunSink) WriteFrame(rec model.FrameRecord) error {
	k.pending = append(k.pending, rec)
	if len(k.pending) >= frameBatch {
		return k.Flush()
	}
	return nil
}

// WriteCycle stores a cycle summary.
func (k *RunSink) WriteCycle(rec model.CycleRecord) error {
	if err := k.Flush(); err != nil {
		return err
	}
	if err := k.store.insertCycle(context.Background(), k.run.ID, k.cycles, rec); err != nil {
		return fmt.Errorf("failed to write cycle: %w", err)
	}
	k.cycles++
	return nil
}

// Flush writes buffered frames.
func (k *RunSink) Flush() error {
	if len(k.pending) == 0 {
		return nil
	}
	if err := k.store.insertFrames(context.Background(), k.run.ID, k.frames, k.pending); err != nil {
		return fmt.Errorf("failed to write frames: %w", err)
	}
	k.frames += len(k.pending)
	k.pending = k.pending[:0]
	return nil
}
