package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/relayq/internal/queue"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newQueue(t *testing.T, name string) (*queue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	return queue.New(rc, queue.DefaultPrefix, name, queue.Options{}), mr
}

func TestNewRejectsNamedQueue(t *testing.T) {
	q, _ := newQueue(t, "emails")
	_, err := New(q, discard(), Options{})
	assert.ErrorIs(t, err, ErrNotDefaultQueue)
}

func TestRunOncePromotesDueJobs(t *testing.T) {
	q, _ := newQueue(t, queue.DefaultQueueName)
	ctx := context.Background()

	_, err := q.EnqueueAt(ctx, "past", t0.Add(-time.Minute))
	require.NoError(t, err)
	_, err = q.EnqueueAt(ctx, "future", t0.Add(time.Hour))
	require.NoError(t, err)

	var promoted int64
	s, err := New(q, discard(), Options{
		Now:       func() time.Time { return t0 },
		OnPromote: func(n int64) { promoted += n },
	})
	require.NoError(t, err)

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), promoted)

	n, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := q.Dequeue(ctx, t0)
	require.NoError(t, err)
	require.Equal(t, queue.StatusHandle, res.Status)
	assert.Equal(t, "past", res.Handle.Content)
}

func TestRunPromotesAsTimePasses(t *testing.T) {
	q, _ := newQueue(t, queue.DefaultQueueName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := q.EnqueueAt(ctx, "later", t0.Add(time.Minute))
	require.NoError(t, err)

	var clock atomic.Int64
	clock.Store(t0.UnixMilli())
	s, err := New(q, discard(), Options{
		Idle: 10 * time.Millisecond,
		Now:  func() time.Time { return time.UnixMilli(clock.Load()) },
	})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Scheduled)

	clock.Store(t0.Add(time.Minute).UnixMilli())
	assert.Eventually(t, func() bool {
		st, err := q.Stats(context.Background())
		return err == nil && st.Ready == 1 && st.Scheduled == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunBacksOffOnError(t *testing.T) {
	q, mr := newQueue(t, queue.DefaultQueueName)
	mr.SetError("ERR simulated outage")

	var calls atomic.Int64
	s, err := New(q, discard(), Options{
		Backoff: time.Hour,
		Now: func() time.Time {
			calls.Add(1)
			return t0
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load(), "one attempt, then waiting out the backoff")

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop during backoff")
	}
}
