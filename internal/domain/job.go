package domain

import (
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeAbandoned means the worker shut down mid-execution. Queue state
	// is left alone and the job is redelivered once its lock expires.
	OutcomeAbandoned Outcome = "abandoned"
)

// Execution is one attempt at running a claimed job. A mid can have several
// executions when locks expire.
type Execution struct {
	ID         uuid.UUID
	WorkerID   uuid.UUID
	Hostname   string
	Queue      string
	MID        int64
	JobType    string
	Lock       time.Duration
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcome    Outcome
	Error      string
}

func (e *Execution) Finish(at time.Time, outcome Outcome, err error) {
	e.FinishedAt = &at
	e.Outcome = outcome
	if err != nil {
		e.Error = err.Error()
	}
}

// Duration is zero until the execution has finished.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
