package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/relayq/internal/queue"
	"github.com/yourorg/relayq/internal/registry"
)

// Options wires a Worker. Queue, Registry and Logger are required.
type Options struct {
	ID       uuid.UUID
	Hostname string
	Queue    *queue.Queue
	Registry *registry.Registry
	Logger   *slog.Logger
	Recorder Recorder
	Observer Observer
	// Now is the clock used for lock arithmetic. Defaults to time.Now.
	Now func() time.Time
}

type Worker struct {
	ID       uuid.UUID
	Hostname string
	Queue    *queue.Queue
	Registry *registry.Registry
	Logger   *slog.Logger

	recorder      Recorder
	observer      Observer
	now           func() time.Time
	startDone     chan struct{}
	startDoneOnce sync.Once
}

func New(opts Options) *Worker {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{
		ID:        opts.ID,
		Hostname:  opts.Hostname,
		Queue:     opts.Queue,
		Registry:  opts.Registry,
		Logger:    opts.Logger.With("worker_id", opts.ID, "queue", opts.Queue.Name),
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		now:       opts.Now,
		startDone: make(chan struct{}),
	}
}

// Start runs the dequeue loop until ctx is canceled. Jobs are executed one
// at a time on the calling goroutine.
func (w *Worker) Start(ctx context.Context) {
	defer w.startDoneOnce.Do(func() { close(w.startDone) })

	w.Logger.Info("worker starting", "handlers", w.Registry.Names())

	for {
		if ctx.Err() != nil {
			w.Logger.Info("worker stopped")
			return
		}
		w.step(ctx)
	}
}

// step performs one dequeue and acts on its result.
func (w *Worker) step(ctx context.Context) {
	res, err := w.Queue.Dequeue(ctx, w.now())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var perr *queue.ProtocolError
		if errors.As(err, &perr) {
			w.Logger.Error("unexpected dequeue reply", "reply", perr.Reply)
		} else {
			w.Logger.Error("dequeue error", "err", err)
		}
		w.observer.Dequeued(w.Queue.Name, "error")
		w.sleep(ctx, queue.DefaultSleep)
		return
	}

	w.observer.Dequeued(w.Queue.Name, res.Status.String())

	switch res.Status {
	case queue.StatusHandle:
		w.runJob(ctx, res.Handle)
	case queue.StatusSkip:
		w.Logger.Debug("skipped", "mid", res.Skip.MID, "reason", res.Skip.Reason)
	case queue.StatusSleep:
		w.sleep(ctx, res.Sleep)
	}
}

func (w *Worker) sleep(ctx context.Context, hint queue.SleepHint) {
	woke, err := w.Queue.Sleep(ctx, hint)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.Logger.Error("sleep error", "on", hint.On, "err", err)
		// The relay list is unreachable; wait out the timeout locally so a
		// broken connection does not turn into a hot loop.
		select {
		case <-ctx.Done():
		case <-time.After(queue.SleepTimeout(hint.DryRuns)):
		}
		return
	}
	w.Logger.Debug("slept", "on", hint.On, "dry_runs", hint.DryRuns, "woke", woke)
}

// DrainAndWait blocks until the loop exits (usually after ctx cancellation)
// or until the caller's timeout/cancelation is reached.
func (w *Worker) DrainAndWait(ctx context.Context) error {
	select {
	case <-w.startDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
