package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SweepWorker is a periodic background job that deletes submission
// directories (downloaded or uploaded videos) once they outlive retention.
type SweepWorker struct {
	workDir   string
	retention time.Duration
	interval  time.Duration
	stopCh    chan struct{}
	now       func() time.Time
}

// NewSweepWorker creates a worker that ticks every interval.
func NewSweepWorker(workDir string, retention, interval time.Duration) *SweepWorker {
	return &SweepWorker{
		workDir:   workDir,
		retention: retention,
		interval:  interval,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Start runs one sweep immediately, then every interval, until ctx is
// cancelled or Stop is called.
func (w *SweepWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Dur("retention", w.retention).Msg("sweep-worker: starting")

	w.tick()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-ctx.Done():
			log.Info().Msg("sweep-worker: stopping (context cancelled)")
			return
		case <-w.stopCh:
			log.Info().Msg("sweep-worker: stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *SweepWorker) Stop() {
	close(w.stopCh)
}

func (w *SweepWorker) tick() {
	start := time.Now()
	removed, err := w.Sweep()
	if err != nil {
		log.Error().Err(err).Msg("sweep-worker: error")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Dur("elapsed", time.Since(start)).Msg("sweep-worker: tick complete")
	}
}

// Sweep removes every submission directory last modified before
// now - retention and returns how many were removed. Only UUID-named
// directories are submissions; anything else in workDir is left alone.
func (w *SweepWorker) Sweep() (int, error) {
	entries, err := os.ReadDir(w.workDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := w.now().Add(-w.retention)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !isSubmissionID(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.workDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("dir", path).Msg("sweep-worker: remove failed")
			continue
		}
		removed++
	}
	return removed, nil
}

// isSubmissionID reports whether name is a UUID in the canonical form
// uuid.NewString produces.
func isSubmissionID(name string) bool {
	id, err := uuid.Parse(name)
	return err == nil && id.String() == name
}
