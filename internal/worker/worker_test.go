package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/relayq/internal/domain"
	"github.com/yourorg/relayq/internal/envelope"
	"github.com/yourorg/relayq/internal/queue"
	"github.com/yourorg/relayq/internal/registry"
)

type fakeRecorder struct {
	mu       sync.Mutex
	started  []domain.Execution
	finished []domain.Execution
}

func (r *fakeRecorder) Start(_ context.Context, e *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, *e)
	return nil
}

func (r *fakeRecorder) Finish(_ context.Context, e *domain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, *e)
	return nil
}

func (r *fakeRecorder) last(t *testing.T) domain.Execution {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.finished)
	return r.finished[len(r.finished)-1]
}

type fakeObserver struct {
	mu       sync.Mutex
	dequeues map[string]int
	outcomes map[string]int
}

func (o *fakeObserver) Dequeued(_, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dequeues[status]++
}

func (o *fakeObserver) Executed(_, _, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

type fixture struct {
	q   *queue.Queue
	reg *registry.Registry
	rec *fakeRecorder
	obs *fakeObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	return &fixture{
		q:   queue.New(rc, queue.DefaultPrefix, queue.DefaultQueueName, queue.Options{}),
		reg: registry.New(),
		rec: &fakeRecorder{},
		obs: &fakeObserver{dequeues: map[string]int{}, outcomes: map[string]int{}},
	}
}

func (f *fixture) options() Options {
	return Options{
		Hostname: "test-host",
		Queue:    f.q,
		Registry: f.reg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder: f.rec,
		Observer: f.obs,
	}
}

func (f *fixture) enqueue(t *testing.T, jobType string) int64 {
	t.Helper()
	res, err := f.q.Enqueue(context.Background(), envelope.Wrap(jobType, []byte(`{}`)), queue.EnqueueOptions{})
	require.NoError(t, err)
	return res.MID
}

func (f *fixture) stats(t *testing.T) queue.Stats {
	t.Helper()
	s, err := f.q.Stats(context.Background())
	require.NoError(t, err)
	return s
}

func TestStepCompletesJob(t *testing.T) {
	f := newFixture(t)
	var got int64
	require.NoError(t, f.reg.Register("noop", func(_ context.Context, mid int64, _ []byte) error {
		got = mid
		return nil
	}))
	mid := f.enqueue(t, "noop")

	w := New(f.options())
	w.step(context.Background())

	assert.Equal(t, mid, got)
	s := f.stats(t)
	assert.Equal(t, int64(1), s.Done)
	assert.Zero(t, s.Locked)

	exec := f.rec.last(t)
	assert.Equal(t, domain.OutcomeCompleted, exec.Outcome)
	assert.Equal(t, "noop", exec.JobType)
	assert.Equal(t, mid, exec.MID)
	assert.Equal(t, w.ID, exec.WorkerID)
	assert.Equal(t, "test-host", exec.Hostname)
	assert.Equal(t, queue.DefaultLock, exec.Lock)
	assert.Equal(t, 1, f.obs.outcomes["completed"])
	assert.Equal(t, 1, f.obs.dequeues["handle"])
}

func TestStepRecordsHandlerError(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register("fail", func(context.Context, int64, []byte) error {
		return errors.New("boom")
	}))
	mid := f.enqueue(t, "fail")

	New(f.options()).step(context.Background())

	failures, err := f.q.Failures(context.Background())
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, mid, failures[0].MID)
	assert.Equal(t, "boom", failures[0].Error)
	assert.Zero(t, f.stats(t).Locked)

	exec := f.rec.last(t)
	assert.Equal(t, domain.OutcomeFailed, exec.Outcome)
	assert.Equal(t, "boom", exec.Error)
}

func TestStepRecoversHandlerPanic(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register("panic", func(context.Context, int64, []byte) error {
		panic("kaboom")
	}))
	f.enqueue(t, "panic")

	New(f.options()).step(context.Background())

	failures, err := f.q.Failures(context.Background())
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "kaboom")
}

func TestStepFailsUnknownJobType(t *testing.T) {
	f := newFixture(t)
	f.enqueue(t, "nobody_home")

	New(f.options()).step(context.Background())

	failures, err := f.q.Failures(context.Background())
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error, "no handler registered")
}

func TestStepAbandonsOnShutdown(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.reg.Register("slow", func(ctx context.Context, _ int64, _ []byte) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}))
	f.enqueue(t, "slow")

	New(f.options()).step(ctx)

	s := f.stats(t)
	assert.Zero(t, s.Done)
	assert.Zero(t, s.Failed)
	assert.Equal(t, int64(1), s.Locked, "lock stays until it expires")
	assert.Equal(t, domain.OutcomeAbandoned, f.rec.last(t).Outcome)
}

func TestStepSleepsOnEmptyQueue(t *testing.T) {
	f := newFixture(t)
	w := New(f.options())

	// Empty queue: one dry run and a short relay wait.
	w.step(context.Background())

	assert.Equal(t, 1, f.obs.dequeues["sleep"])
	assert.Equal(t, int64(1), f.stats(t).DryRuns)
}

func TestStartDrainsOnCancel(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Register("noop", func(context.Context, int64, []byte) error { return nil }))
	for i := 0; i < 5; i++ {
		f.enqueue(t, "noop")
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := New(f.options())
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return f.stats(t).Done == 5 }, 5*time.Second, 20*time.Millisecond)
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer drainCancel()
	require.NoError(t, w.DrainAndWait(drainCtx))
}

func TestRunPoolProcessesEachJobOnce(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	seen := map[int64]int{}
	require.NoError(t, f.reg.Register("count", func(_ context.Context, mid int64, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		seen[mid]++
		return nil
	}))
	const jobs = 30
	for i := 0; i < jobs; i++ {
		f.enqueue(t, "count")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunPool(ctx, 4, f.options()) }()

	assert.Eventually(t, func() bool { return f.stats(t).Done == jobs }, 10*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(25 * time.Second):
		t.Fatal("pool did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, jobs)
	for mid, n := range seen {
		assert.Equal(t, 1, n, "mid %d", mid)
	}

	f.rec.mu.Lock()
	defer f.rec.mu.Unlock()
	workers := map[string]bool{}
	for _, e := range f.rec.started {
		workers[e.WorkerID.String()] = true
	}
	assert.NotEmpty(t, workers)
}

func TestRunPoolRejectsNonPositiveSize(t *testing.T) {
	f := newFixture(t)
	err := RunPool(context.Background(), 0, f.options())
	assert.Error(t, err)
}
