// Package metrics exposes queue depth and worker activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/relayq/internal/queue"
)

const collectTimeout = 5 * time.Second

// Metrics owns a private registry. It implements worker.Observer.
type Metrics struct {
	registry   *prometheus.Registry
	dequeues   *prometheus.CounterVec
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	promoted   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dequeues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relayq_dequeues_total",
			Help: "Dequeue attempts by result",
		}, []string{"queue", "status"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relayq_executions_total",
			Help: "Job executions by outcome",
		}, []string{"queue", "job_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relayq_execution_duration_seconds",
			Help:    "Handler run time",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue", "outcome"}),
		promoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relayq_promoted_total",
			Help: "Delayed jobs moved into the default queue",
		}),
	}
	m.registry.MustRegister(m.dequeues, m.executions, m.duration, m.promoted)
	return m
}

// WatchQueues adds a collector that reads queue counters on every scrape.
func (m *Metrics) WatchQueues(queues ...*queue.Queue) {
	m.registry.MustRegister(newQueueCollector(queues))
}

func (m *Metrics) Dequeued(queue, status string) {
	m.dequeues.WithLabelValues(queue, status).Inc()
}

func (m *Metrics) Executed(queue, jobType, outcome string, d time.Duration) {
	m.executions.WithLabelValues(queue, jobType, outcome).Inc()
	m.duration.WithLabelValues(queue, outcome).Observe(d.Seconds())
}

func (m *Metrics) Promoted(n int64) {
	m.promoted.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves Handler on addr under /metrics.
func (m *Metrics) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type queueCollector struct {
	queues []*queue.Queue
	depth  *prometheus.Desc
	dry    *prometheus.Desc
	last   *prometheus.Desc
}

func newQueueCollector(queues []*queue.Queue) *queueCollector {
	return &queueCollector{
		queues: queues,
		depth: prometheus.NewDesc(
			"relayq_queue_jobs",
			"Number of entries in each queue structure",
			[]string{"prefix", "queue", "structure"}, nil,
		),
		dry: prometheus.NewDesc(
			"relayq_queue_dry_runs",
			"Consecutive empty dequeue attempts",
			[]string{"prefix", "queue"}, nil,
		),
		last: prometheus.NewDesc(
			"relayq_queue_last_mid",
			"Highest message id allotted",
			[]string{"prefix", "queue"}, nil,
		),
	}
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.depth
	ch <- c.dry
	ch <- c.last
}

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	for _, q := range c.queues {
		s, err := q.Stats(ctx)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(c.depth, err)
			continue
		}
		for _, v := range []struct {
			name  string
			count int64
		}{
			{"ready", s.Ready},
			{"circle", s.Circle},
			{"locked", s.Locked},
			{"done", s.Done},
			{"failed", s.Failed},
			{"scheduled", s.Scheduled},
		} {
			ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue,
				float64(v.count), q.Prefix, q.Name, v.name)
		}
		ch <- prometheus.MustNewConstMetric(c.dry, prometheus.GaugeValue,
			float64(s.DryRuns), q.Prefix, q.Name)
		ch <- prometheus.MustNewConstMetric(c.last, prometheus.CounterValue,
			float64(s.LastMID), q.Prefix, q.Name)
	}
}
