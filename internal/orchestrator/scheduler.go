package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/cronexpr"

	"github.com/tonimelisma/internxt-backup/internal/engineerr"
)

// RunFunc executes one firing. Scheduler is agnostic to what it runs —
// SyncOnce in the usual case, but any nullary run fits.
type RunFunc func(ctx context.Context) error

// Scheduler hosts the cron-driven daemon loop.
type Scheduler struct {
	logger  *slog.Logger
	running atomic.Bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Scheduler{logger: logger}
}

// RunDaemon validates expr, runs once immediately, then invokes run at every
// subsequent firing until ctx is canceled. A firing whose predecessor has not yet completed is skipped
// — overlap protection.
func (s *Scheduler) RunDaemon(ctx context.Context, expr string, run RunFunc) error {
	schedule, err := cronexpr.Parse(expr)
	if err != nil {
		return &engineerr.ValidationError{Field: "schedule", Message: err.Error()}
	}

	s.fire(ctx, run)

	for {
		next := schedule.Next(time.Now())
		if next.IsZero() {
			return &engineerr.ValidationError{Field: "schedule", Message: "cron expression never fires again"}
		}

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil
		case <-timer.C:
			s.fire(ctx, run)
		}
	}
}

// fire launches one firing if the predecessor has completed, and skips it
// otherwise.
func (s *Scheduler) fire(ctx context.Context, run RunFunc) {
	firingID := uuid.New().String()

	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("orchestrator: skipping overlapping firing, prior run still in progress",
			slog.String("firing_id", firingID))

		return
	}

	go func() {
		defer s.running.Store(false)

		if err := run(ctx); err != nil {
			s.logger.Error("orchestrator: scheduled run failed", slog.String("firing_id", firingID), slog.Any("error", err))
		}
	}()
}
