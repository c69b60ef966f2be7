// Package scheduler runs the unlock sweep on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/services"
)

// UnlockTrigger runs one unlock sweep.
type UnlockTrigger interface {
	TriggerUnlocks(ctx context.Context) (*services.UnlockReport, error)
}

type Scheduler struct {
	trigger  UnlockTrigger
	interval time.Duration
	log      logging.Logger
}

func New(trigger UnlockTrigger, interval time.Duration, log logging.Logger) *Scheduler {
	return &Scheduler{
		trigger:  trigger,
		interval: interval,
		log:      log.With("module", "scheduler"),
	}
}

// Run sweeps once immediately, then on every tick until ctx is done.
// A non-positive interval disables the loop.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info(ctx, "unlock scheduler disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(ctx, "unlock scheduler started", "interval", s.interval)
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "unlock scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.trigger.TriggerUnlocks(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error(ctx, "unlock sweep failed", "error", err)
		}
		return
	}
	if report.Skipped {
		s.log.Debug(ctx, "unlock sweep skipped, lock held elsewhere")
		return
	}
	s.log.Info(ctx, "unlock sweep done", "capsules", len(report.Capsules), "boundary", report.Boundary)
}
