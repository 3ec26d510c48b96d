package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/relayq/internal/queue"
)

func TestObserverCounters(t *testing.T) {
	m := New()
	m.Dequeued("default", "handle")
	m.Dequeued("default", "handle")
	m.Dequeued("default", "sleep")
	m.Executed("default", "send_email", "completed", 250*time.Millisecond)
	m.Promoted(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dequeues.WithLabelValues("default", "handle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dequeues.WithLabelValues("default", "sleep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("default", "send_email", "completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.promoted))
}

func TestQueueCollector(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	q := queue.New(rc, queue.DefaultPrefix, queue.DefaultQueueName, queue.Options{})
	ctx := context.Background()
	for _, c := range []string{"a", "b"} {
		_, err := q.Enqueue(ctx, c, queue.EnqueueOptions{})
		require.NoError(t, err)
	}

	m := New()
	m.WatchQueues(q)

	expected := `
# HELP relayq_queue_last_mid Highest message id allotted
# TYPE relayq_queue_last_mid counter
relayq_queue_last_mid{prefix="yq",queue="default"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "relayq_queue_last_mid"))

	n, err := testutil.GatherAndCount(m.Registry(), "relayq_queue_jobs")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.Promoted(1)

	rec := httptest.NewRecorder()
	m.Server(":0").Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relayq_promoted_total 1")
}
