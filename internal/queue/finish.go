package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Finish marks mid irrevocably complete and releases its lock. The next
// circle sweep drops it.
func (q *Queue) Finish(ctx context.Context, mid int64) error {
	_, err := q.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, q.Keys.Done, mid)
		pipe.HDel(ctx, q.Keys.Locks, fmt.Sprint(mid))
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish %d: %w", mid, err)
	}
	return nil
}

// Fail records a failed execution for operator inspection. A failed job is
// terminal: the circle sweep drops it like a finished one.
func (q *Queue) Fail(ctx context.Context, mid int64, content string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	field := fmt.Sprint(mid)

	_, err := q.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.Keys.ErrMessages, field, content)
		pipe.HSet(ctx, q.Keys.Err, field, msg)
		pipe.HDel(ctx, q.Keys.Locks, field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail %d: %w", mid, err)
	}
	return nil
}
