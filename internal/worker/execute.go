package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/yourorg/relayq/internal/domain"
	"github.com/yourorg/relayq/internal/queue"
)

// runJob executes one claimed job and settles it in the queue.
func (w *Worker) runJob(ctx context.Context, h queue.Handle) {
	exec := domain.Execution{
		ID:        uuid.New(),
		WorkerID:  w.ID,
		Hostname:  w.Hostname,
		Queue:     w.Queue.Name,
		MID:       h.MID,
		Lock:      h.Lock,
		StartedAt: w.now(),
		Outcome:   domain.OutcomeRunning,
	}
	log := w.Logger.With("mid", h.MID, "exec_id", exec.ID, "lock", h.Lock)

	if err := w.recorder.Start(ctx, &exec); err != nil {
		log.Warn("failed to record execution start", "err", err)
	}
	log.Info("job started")

	jobType, handlerErr := w.execute(ctx, h)
	exec.JobType = jobType
	log = log.With("job_type", jobType)

	outcome := w.settle(ctx, h, handlerErr, log)
	exec.Finish(w.now(), outcome, handlerErr)
	w.observer.Executed(w.Queue.Name, jobType, string(outcome), exec.Duration())

	// Record the finish on a context that survives shutdown so an abandoned
	// execution is still closed out.
	if err := w.recorder.Finish(context.WithoutCancel(ctx), &exec); err != nil {
		log.Warn("failed to record execution finish", "err", err)
	}
}

// execute dispatches the job and converts a handler panic into an error.
func (w *Worker) execute(ctx context.Context, h queue.Handle) (jobType string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.Logger.Error("handler panic", "mid", h.MID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return w.Registry.Dispatch(ctx, h.MID, h.Content)
}

// settle reports the handler result to the queue. Settlement failures are
// logged only: the lock will expire and the job will be handed out again.
func (w *Worker) settle(ctx context.Context, h queue.Handle, handlerErr error, log *slog.Logger) domain.Outcome {
	if ctx.Err() != nil {
		log.Info("job execution abandoned due to worker shutdown; leaving state unchanged")
		return domain.OutcomeAbandoned
	}

	if handlerErr != nil {
		if err := w.Queue.Fail(ctx, h.MID, h.Content, handlerErr); err != nil {
			log.Error("failed to mark failed", "err", err)
		}
		log.Warn("job failed", "err", handlerErr)
		return domain.OutcomeFailed
	}

	if err := w.Queue.Finish(ctx, h.MID); err != nil {
		log.Error("failed to mark completed", "err", err)
	}
	log.Info("job completed")
	return domain.OutcomeCompleted
}
