package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrScheduleQueue is returned by EnqueueAt on a queue other than the
// default one. The schedule is shared by every queue under a prefix and is
// always promoted into the default queue.
var ErrScheduleQueue = errors.New("delayed jobs can only target the default queue")

// EnqueueOptions configures a single job submission.
type EnqueueOptions struct {
	// LockTTL overrides the queue's default lock duration for this job.
	LockTTL time.Duration
}

// EnqueueResult is returned by Enqueue.
type EnqueueResult struct {
	MID int64
	// Woke is the relay channel the wake token was offered on.
	Woke Channel
}

// Enqueue admits content into the ready path and wakes at most one idle
// worker. It never blocks.
func (q *Queue) Enqueue(ctx context.Context, content string, opts EnqueueOptions) (EnqueueResult, error) {
	k := q.Keys
	keys := []string{k.MidSeq, k.Messages, k.LockTimes, k.MidsReady, k.MidCircle, k.SleepOn, k.ISleepA, k.ISleepB}

	lockMs := int64(-1)
	if opts.LockTTL > 0 {
		lockMs = opts.LockTTL.Milliseconds()
	}

	vals, err := enqueueScript.Run(ctx, q.rc, keys, content, lockMs).Slice()
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("enqueue: %w", err)
	}

	action, _ := replyString(vals, 0)
	if action != "added" {
		return EnqueueResult{}, unknown("enqueue", vals)
	}
	woke, ok1 := replyString(vals, 1)
	mid, ok2 := replyInt(vals, 2)
	if !ok1 || !ok2 {
		return EnqueueResult{}, unknown("enqueue", vals)
	}
	return EnqueueResult{MID: mid, Woke: Channel(woke)}, nil
}

// EnqueueAt stores content and schedules it for runAt. The job stays
// invisible to workers until the scheduler promotes it.
func (q *Queue) EnqueueAt(ctx context.Context, content string, runAt time.Time) (int64, error) {
	if !q.IsDefault() {
		return 0, ErrScheduleQueue
	}

	k := q.Keys
	keys := []string{k.MidSeq, k.Messages, k.Schedule}

	vals, err := enqueueAtScript.Run(ctx, q.rc, keys, content, runAt.UnixMilli()).Slice()
	if err != nil {
		return 0, fmt.Errorf("enqueue at: %w", err)
	}

	action, _ := replyString(vals, 0)
	mid, ok := replyInt(vals, 1)
	if action != "added" || !ok {
		return 0, unknown("enqueue at", vals)
	}
	return mid, nil
}
