package queue

import (
	"context"
	"fmt"
	"time"
)

// Status is the outcome of one Dequeue attempt.
type Status int

const (
	// StatusHandle means a job was claimed and must be executed.
	StatusHandle Status = iota + 1
	// StatusSkip means maintenance happened; dequeue again without sleeping.
	StatusSkip
	// StatusSleep means nothing is claimable; call Sleep with the hint.
	StatusSleep
)

func (s Status) String() string {
	switch s {
	case StatusHandle:
		return "handle"
	case StatusSkip:
		return "skip"
	case StatusSleep:
		return "sleep"
	}
	return "unknown"
}

// Channel names one of the two wake relay lists.
type Channel string

const (
	ChannelA Channel = "a"
	ChannelB Channel = "b"
)

// Handle is a claimed job. The claim lasts Lock from the dequeue time.
type Handle struct {
	MID     int64
	Content string
	Lock    time.Duration
}

// SleepHint tells an idle worker where and how long to wait.
type SleepHint struct {
	On      Channel
	DryRuns int64
}

// DefaultSleep is used after a failed dequeue, when the queue state is
// unknown.
var DefaultSleep = SleepHint{On: ChannelA, DryRuns: 1}

// Skip describes a mid that was examined but not handed out.
type Skip struct {
	Reason string // done, failed, locked or missing
	MID    int64
}

// Result is what Dequeue returns. Only the field matching Status is set.
type Result struct {
	Status Status
	Handle Handle
	Sleep  SleepHint
	Skip   Skip
}

// Dequeue claims the next workable job, or sweeps the circle for expired
// locks, or reports that there is nothing to do.
func (q *Queue) Dequeue(ctx context.Context, now time.Time) (Result, error) {
	k := q.Keys
	keys := []string{
		k.Messages, k.LockTimes, k.Locks, k.Done, k.Err,
		k.MidsReady, k.MidCircle, k.NDryRuns, k.ISleepA, k.ISleepB,
		k.SleepOn, k.SweepPos,
	}

	vals, err := dequeueScript.Run(ctx, q.rc, keys,
		now.UnixMilli(), q.DefaultLock.Milliseconds(), q.SweepBatch).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("dequeue: %w", err)
	}
	return parseDequeue(vals)
}

func parseDequeue(vals []any) (Result, error) {
	action, _ := replyString(vals, 0)

	switch action {
	case "handle":
		mid, ok1 := replyInt(vals, 1)
		content, ok2 := replyString(vals, 2)
		lockMs, ok3 := replyInt(vals, 3)
		if !ok1 || !ok2 || !ok3 {
			break
		}
		return Result{Status: StatusHandle, Handle: Handle{
			MID:     mid,
			Content: content,
			Lock:    time.Duration(lockMs) * time.Millisecond,
		}}, nil

	case "skip":
		reason, ok1 := replyString(vals, 1)
		mid, ok2 := replyInt(vals, 2)
		if !ok1 || !ok2 {
			break
		}
		return Result{Status: StatusSkip, Skip: Skip{Reason: reason, MID: mid}}, nil

	case "sleep":
		on, ok1 := replyString(vals, 2)
		ndry, ok2 := replyInt(vals, 3)
		if !ok1 || !ok2 {
			break
		}
		return Result{Status: StatusSleep, Sleep: SleepHint{On: Channel(on), DryRuns: ndry}}, nil
	}

	return Result{}, unknown("dequeue", vals)
}
