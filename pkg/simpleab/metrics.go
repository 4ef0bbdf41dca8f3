package simpleab

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes SDK activity as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Assignments   *prometheus.CounterVec
	CacheLookups  *prometheus.CounterVec
	Fetches       *prometheus.CounterVec
	Flushes       *prometheus.CounterVec
	BufferedKeys  prometheus.Gauge
	TrackedEvents *prometheus.CounterVec
}

// NewMetrics creates the SDK collectors and registers them with reg.
// A nil reg leaves the collectors unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleab",
			Name:      "assignments_total",
			Help:      "Treatment resolutions by experiment and resulting treatment.",
		}, []string{"experiment", "treatment"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleab",
			Name:      "cache_lookups_total",
			Help:      "Experiment cache lookups by result (hit or miss).",
		}, []string{"result"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleab",
			Name:      "experiment_fetches_total",
			Help:      "Remote experiment fetches by outcome.",
		}, []string{"outcome"}),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleab",
			Name:      "metric_flushes_total",
			Help:      "Metric buffer flushes by outcome (success, rejected, error).",
		}, []string{"outcome"}),
		BufferedKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simpleab",
			Name:      "buffered_keys",
			Help:      "Distinct metric keys waiting to be flushed.",
		}),
		TrackedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleab",
			Name:      "tracked_metrics_total",
			Help:      "trackMetric calls by outcome (accepted or invalid).",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Assignments,
			m.CacheLookups,
			m.Fetches,
			m.Flushes,
			m.BufferedKeys,
			m.TrackedEvents,
		)
	}
	return m
}

func (m *Metrics) assignment(experimentID string, t Treatment) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(experimentID, string(t)).Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) cacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) fetch(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Fetches.WithLabelValues("error").Inc()
		return
	}
	m.Fetches.WithLabelValues("success").Inc()
}

func (m *Metrics) flush(outcome string) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) buffered(n int) {
	if m == nil {
		return
	}
	m.BufferedKeys.Set(float64(n))
}

func (m *Metrics) tracked(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.TrackedEvents.WithLabelValues("invalid").Inc()
		return
	}
	m.TrackedEvents.WithLabelValues("accepted").Inc()
}
