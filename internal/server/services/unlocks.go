package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/memorylane/internal/logging"
	"github.com/dmitrijs2005/memorylane/internal/server/auth"
	"github.com/dmitrijs2005/memorylane/internal/server/lock"
	"github.com/dmitrijs2005/memorylane/internal/server/models"
	"github.com/dmitrijs2005/memorylane/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memorylane/internal/timex"
)

const (
	sweepLockKey = "memorylane:unlock-sweep"
	sweepLockTTL = time.Minute
)

// UnlockedCapsule describes one capsule handled by a sweep.
type UnlockedCapsule struct {
	ID         string
	Title      string
	Recipients []string
	// Failed lists recipients whose email could not be sent.
	Failed []string
	// MarkedSent is false when another sweep flagged the capsule first.
	MarkedSent bool
}

// UnlockReport is the outcome of one TriggerUnlocks call.
type UnlockReport struct {
	// Skipped is set when another sweep held the lock.
	Skipped  bool
	Boundary time.Time
	Capsules []UnlockedCapsule
}

// UnlockService finds sealed capsules whose unlock day has come, emails
// every recipient once and flags the capsule as sent.
type UnlockService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mailer      UnlockMailer
	locker      lock.Locker
	log         logging.Logger
	now         timex.Clock
	loc         *time.Location
	group       singleflight.Group
	leaseTTL    time.Duration
}

func NewUnlockService(db *sql.DB, m repomanager.RepositoryManager, mailer UnlockMailer, locker lock.Locker,
	log logging.Logger, now timex.Clock, loc *time.Location) *UnlockService {
	if locker == nil {
		locker = lock.LocalLocker{}
	}
	return &UnlockService{
		db:          db,
		repomanager: m,
		mailer:      mailer,
		locker:      locker,
		log:         log.With("module", "unlocks"),
		now:         now,
		loc:         loc,
		leaseTTL:    sweepLockTTL,
	}
}

// TriggerUnlocks runs one sweep. Concurrent calls in this process share a
// single sweep; a sweep held by another process makes the call return a
// Skipped report.
func (s *UnlockService) TriggerUnlocks(ctx context.Context) (*UnlockReport, error) {
	v, err, _ := s.group.Do(sweepLockKey, func() (any, error) {
		lease, err := s.locker.TryLock(ctx, sweepLockKey, s.leaseTTL)
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				s.log.Info(ctx, "unlock sweep already running elsewhere")
				return &UnlockReport{Skipped: true}, nil
			}
			return nil, fmt.Errorf("error acquiring sweep lock: %w", err)
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn(ctx, "releasing sweep lock failed", "error", err)
			}
		}()

		sweepCtx, cancel := context.WithCancelCause(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.keepAlive(sweepCtx, lease, cancel)
		}()
		report, err := s.sweep(sweepCtx)
		cancel(nil)
		<-done
		if cause := context.Cause(sweepCtx); errors.Is(cause, lock.ErrLeaseLost) {
			return nil, fmt.Errorf("unlock sweep aborted: %w", cause)
		}
		return report, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*UnlockReport), nil
}

// keepAlive extends the sweep lease every third of its TTL until ctx is
// done. A lost lease stops the sweep so another replica cannot overlap it.
func (s *UnlockService) keepAlive(ctx context.Context, lease lock.Lease, cancel context.CancelCauseFunc) {
	t := time.NewTicker(s.leaseTTL / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := lease.Extend(ctx, s.leaseTTL)
			switch {
			case err == nil:
			case errors.Is(err, lock.ErrLeaseLost):
				s.log.Error(ctx, "unlock sweep lease lost, stopping")
				cancel(err)
				return
			case ctx.Err() == nil:
				s.log.Warn(ctx, "extending sweep lease failed", "error", err)
			}
		}
	}
}

func (s *UnlockService) sweep(ctx context.Context) (*UnlockReport, error) {
	boundary := timex.EndOfDay(s.now(), s.loc)
	repo := s.repomanager.Capsules(s.db)

	due, err := repo.ListPendingUnlock(ctx, boundary)
	if err != nil {
		return nil, fmt.Errorf("error listing capsules to unlock: %w", err)
	}

	report := &UnlockReport{Boundary: boundary, Capsules: make([]UnlockedCapsule, 0, len(due))}
	for _, c := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Capsules = append(report.Capsules, s.unlock(ctx, c))
	}

	s.log.Info(ctx, "unlock sweep finished", "boundary", boundary, "capsules", len(report.Capsules))
	return report, nil
}

// unlock notifies the recipients of c and then flags it as sent, whatever
// the individual deliveries did. When the recipient set cannot be built the
// capsule is left unsent for the next sweep.
func (s *UnlockService) unlock(ctx context.Context, c *models.Capsule) UnlockedCapsule {
	out := UnlockedCapsule{ID: c.ID, Title: c.Title}

	recipients, err := s.recipients(ctx, c)
	if err != nil {
		s.log.Error(ctx, "loading participant emails failed, capsule deferred", "capsule_id", c.ID, "error", err)
		return out
	}
	out.Recipients = recipients

	for _, to := range recipients {
		if err := s.mailer.SendUnlock(ctx, to, c.ID, c.Title); err != nil {
			s.log.Error(ctx, "unlock email failed", "capsule_id", c.ID, "error", err)
			out.Failed = append(out.Failed, to)
		}
	}

	ok, err := s.repomanager.Capsules(s.db).MarkSent(ctx, c.ID)
	if err != nil {
		s.log.Error(ctx, "marking capsule sent failed", "capsule_id", c.ID, "error", err)
		return out
	}
	if !ok {
		s.log.Warn(ctx, "capsule already marked sent", "capsule_id", c.ID)
	}
	out.MarkedSent = ok
	return out
}

// recipients is the emails of registered participants followed by the
// invited addresses that no participant already covers.
func (s *UnlockService) recipients(ctx context.Context, c *models.Capsule) ([]string, error) {
	registered, err := s.repomanager.Users(s.db).GetEmailsByIDs(ctx, c.Participants)
	if err != nil {
		return nil, err
	}
	return mergeRecipients(registered, c.Emails), nil
}

func mergeRecipients(registered, invited []string) []string {
	out := make([]string, 0, len(registered)+len(invited))
	seen := make(map[string]struct{}, cap(out))
	for _, list := range [][]string{registered, invited} {
		for _, e := range list {
			e = auth.NormalizeEmail(e)
			if e == "" {
				continue
			}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
