package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SleepTimeout is the relay wait for a given dry-run count: 1s right after
// the first empty poll, growing by 3s per dry run, capped at 18s.
func SleepTimeout(ndryRuns int64) time.Duration {
	switch {
	case ndryRuns > 6:
		return 18 * time.Second
	case ndryRuns <= 0:
		return time.Second
	default:
		return time.Duration(ndryRuns*3) * time.Second
	}
}

// Sleep blocks on the hinted relay channel until a wake token arrives or the
// timeout passes. A received token is pushed onto the opposite channel so the
// next sleeper there can be woken by it. Reports whether a token arrived.
func (q *Queue) Sleep(ctx context.Context, hint SleepHint) (bool, error) {
	src, dst := q.Keys.ISleepA, q.Keys.ISleepB
	if hint.On == ChannelB {
		src, dst = q.Keys.ISleepB, q.Keys.ISleepA
	}

	err := q.rc.BRPopLPush(ctx, src, dst, SleepTimeout(hint.DryRuns)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sleep on %s: %w", hint.On, err)
	}
	return true, nil
}
