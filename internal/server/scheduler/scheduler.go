// Package scheduler runs the remote sync for every connected user on a cron
// schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/workhub/internal/logging"
	"github.com/dmitrijs2005/workhub/internal/server/models"
	"github.com/dmitrijs2005/workhub/internal/server/reconcile"
)

// UserLister returns the users that hold remote credentials.
type UserLister interface {
	ListConnected(ctx context.Context) ([]*models.User, error)
}

type Syncer interface {
	SyncUser(ctx context.Context, userID string) (reconcile.Result, error)
}

// Summary reports one SyncAll pass.
type Summary struct {
	Users   int
	Failed  int
	Created int
	Updated int
	Deleted int
}

type Scheduler struct {
	users       UserLister
	syncer      Syncer
	schedule    string
	concurrency int
	log         logging.Logger
	running     atomic.Bool
}

func New(users UserLister, syncer Syncer, schedule string, concurrency int, log logging.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		users:       users,
		syncer:      syncer,
		schedule:    schedule,
		concurrency: concurrency,
		log:         log.With("module", "scheduler"),
	}
}

// SyncAll syncs every connected user, at most concurrency at a time. A user
// whose sync fails is logged and counted; the others still run. Each user
// gets its own context so mirror guards never cross users.
func (s *Scheduler) SyncAll(ctx context.Context) (Summary, error) {
	users, err := s.users.ListConnected(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list connected users: %w", err)
	}

	var failed, created, updated, deleted atomic.Int64
	sum := Summary{Users: len(users)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, u := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, err := s.syncer.SyncUser(reconcile.WithGuard(gctx), u.ID)
			if err != nil {
				failed.Add(1)
				s.log.Warn(gctx, "background sync failed", "user_id", u.ID, "error", err)
				return nil
			}
			created.Add(int64(res.Created))
			updated.Add(int64(res.Updated))
			deleted.Add(int64(res.Deleted))
			return nil
		})
	}
	err = g.Wait()

	sum.Failed = int(failed.Load())
	sum.Created = int(created.Load())
	sum.Updated = int(updated.Load())
	sum.Deleted = int(deleted.Load())
	return sum, err
}

// Run starts the cron loop and blocks until ctx is cancelled. An empty schedule
// disables background sync. Overlapping ticks are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.schedule == "" {
		s.log.Info(ctx, "background sync disabled")
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}

	s.log.Info(ctx, "background sync scheduled", "schedule", s.schedule, "concurrency", s.concurrency)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn(ctx, "previous background sync still running, skipping")
		return
	}
	defer s.running.Store(false)

	sum, err := s.SyncAll(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error(ctx, "background sync aborted", "error", err)
		return
	}
	s.log.Info(ctx, "background sync finished",
		"users", sum.Users, "failed", sum.Failed,
		"created", sum.Created, "updated", sum.Updated, "deleted", sum.Deleted)
}
