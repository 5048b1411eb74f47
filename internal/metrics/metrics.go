// Package metrics holds the writer's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tender_writer"

type Metrics struct {
	Registry *prometheus.Registry

	Messages        *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	DeadLetterFails prometheus.Counter
	DeleteFails     prometheus.Counter
	BatchDuration   prometheus.Histogram
	Polls           prometheus.Counter
	LastDrainOK     prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.Messages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Messages handled, by outcome (persisted, dead_lettered, retained).",
	}, []string{"outcome"})
	m.Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Per-message failures by category.",
	}, []string{"category"})
	m.DeadLetterFails = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dead_letter_submission_failures_total",
		Help:      "Dead-letter entries the destination did not accept.",
	})
	m.DeleteFails = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delete_failures_total",
		Help:      "Acknowledgements the source queue did not accept.",
	})
	m.BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Time to process one received batch.",
		Buckets:   prometheus.DefBuckets,
	})
	m.Polls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Receive calls made against the source queue.",
	})
	m.LastDrainOK = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_drain_success_timestamp_seconds",
		Help:      "Unix time of the last drain that finished without error.",
	})

	m.Registry.MustRegister(
		m.Messages, m.Failures, m.DeadLetterFails, m.DeleteFails,
		m.BatchDuration, m.Polls, m.LastDrainOK,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(d.Seconds())
}

func (m *Metrics) Outcome(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Messages.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) Failure(category string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(category).Inc()
}

func (m *Metrics) DeadLetterFailed(n int) {
	if m == nil {
		return
	}
	m.DeadLetterFails.Add(float64(n))
}

func (m *Metrics) DeleteFailed(n int) {
	if m == nil {
		return
	}
	m.DeleteFails.Add(float64(n))
}

func (m *Metrics) Poll() {
	if m == nil {
		return
	}
	m.Polls.Inc()
}

func (m *Metrics) DrainSucceeded(at time.Time) {
	if m == nil {
		return
	}
	m.LastDrainOK.Set(float64(at.Unix()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
