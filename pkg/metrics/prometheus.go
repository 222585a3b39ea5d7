package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registerOnce sync.Once
	ingested     *prometheus.CounterVec
	failures     *prometheus.CounterVec
	dailyCount   *prometheus.GaugeVec
	opSeconds    *prometheus.HistogramVec
)

func register() {
	registerOnce.Do(func() {
		ingested = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admissions_events_ingested_total",
				Help: "Admission events written to a backend",
			},
			[]string{"backend", "source"},
		)
		failures = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admissions_errors_total",
				Help: "Errors by kind across the pipeline",
			},
			[]string{"type"},
		)
		dailyCount = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "admissions_last_daily_count",
				Help: "Most recent daily admission count seen per data source",
			},
			[]string{"source"},
		)
		opSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admissions_operation_duration_seconds",
				Help:    "Operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)
	})
}

// Recorder publishes pipeline counters to Prometheus. It satisfies the
// repository Metrics interface without pulling Prometheus into domain
// packages. Safe to construct more than once; collectors register once.
type Recorder struct{}

func New() *Recorder {
	register()
	return &Recorder{}
}

func (Recorder) RecordEventsIngested(backend, source string, n int) {
	ingested.WithLabelValues(backend, source).Add(float64(n))
}

func (Recorder) RecordError(kind string) {
	failures.WithLabelValues(kind).Inc()
}

func (Recorder) RecordLastDailyCount(source string, count float64) {
	dailyCount.WithLabelValues(source).Set(count)
}

func (Recorder) RecordLatency(op string, seconds float64) {
	opSeconds.WithLabelValues(op).Observe(seconds)
}
