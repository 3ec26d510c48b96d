package worker

import (
	"context"
	"time"

	"github.com/yourorg/relayq/internal/domain"
)

// Recorder persists an audit trail of executions. Start is called before
// the handler runs so a crash mid-execution still leaves a row behind.
type Recorder interface {
	Start(ctx context.Context, exec *domain.Execution) error
	Finish(ctx context.Context, exec *domain.Execution) error
}

// Observer receives loop events for metrics.
type Observer interface {
	Dequeued(queue, status string)
	Executed(queue, jobType, outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Start(context.Context, *domain.Execution) error  { return nil }
func (nopRecorder) Finish(context.Context, *domain.Execution) error { return nil }

type nopObserver struct{}

func (nopObserver) Dequeued(string, string)                       {}
func (nopObserver) Executed(string, string, string, time.Duration) {}
