// Package scheduler moves delayed jobs whose run time has come into the
// default queue.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/relayq/internal/queue"
)

const (
	DefaultIdle    = 10 * time.Second
	DefaultBackoff = 60 * time.Second
)

var ErrNotDefaultQueue = errors.New("scheduler must run against the default queue")

type Options struct {
	// Idle is the pause after a pass that found nothing due.
	Idle time.Duration
	// Backoff is the pause after a pass that failed.
	Backoff time.Duration
	// OnPromote is called with the number of jobs moved by each pass that
	// moved any.
	OnPromote func(n int64)
	Now       func() time.Time
}

type Scheduler struct {
	Queue  *queue.Queue
	Logger *slog.Logger

	idle      time.Duration
	backoff   time.Duration
	onPromote func(int64)
	now       func() time.Time
}

func New(q *queue.Queue, logger *slog.Logger, opts Options) (*Scheduler, error) {
	if !q.IsDefault() {
		return nil, ErrNotDefaultQueue
	}
	if opts.Idle <= 0 {
		opts.Idle = DefaultIdle
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.OnPromote == nil {
		opts.OnPromote = func(int64) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		Queue:     q,
		Logger:    logger,
		idle:      opts.Idle,
		backoff:   opts.Backoff,
		onPromote: opts.OnPromote,
		now:       opts.Now,
	}, nil
}

// RunOnce promotes every job due at the current time.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.Queue.PromoteDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.onPromote(n)
	}
	return n, nil
}

// Run loops until ctx is canceled. A pass that promoted jobs is followed
// immediately by another, since more may have come due meanwhile.
func (s *Scheduler) Run(ctx context.Context) {
	s.Logger.Info("scheduler starting",
		"queue", s.Queue.Name,
		"idle", s.idle,
		"backoff", s.backoff)

	for {
		if ctx.Err() != nil {
			s.Logger.Info("scheduler stopped")
			return
		}

		n, err := s.RunOnce(ctx)
		var perr *queue.ProtocolError
		switch {
		case errors.As(err, &perr):
			s.Logger.Error("scheduler: unexpected promote reply", "reply", perr.Reply)
			wait(ctx, s.idle)
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			s.Logger.Error("scheduler: promote failed", "err", err, "retry_in", s.backoff)
			wait(ctx, s.backoff)
		case n == 0:
			wait(ctx, s.idle)
		default:
			s.Logger.Info("scheduler: promoted jobs", "count", n)
		}
	}
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
