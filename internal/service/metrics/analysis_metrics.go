package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalysisLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "admissions",
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "Latency of analysis endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalysisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admissions",
			Subsystem: "analysis",
			Name:      "errors_total",
			Help:      "Errors by analysis endpoint",
		},
		[]string{"endpoint"},
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "admissions",
			Subsystem: "analysis",
			Name:      "training_duration_seconds",
			Help:      "Wall time of one model selection run",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	ModelCandidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admissions",
			Subsystem: "analysis",
			Name:      "model_candidates_total",
			Help:      "Model candidates by family and outcome (fitted, excluded, selected)",
		},
		[]string{"family", "outcome"},
	)

	ReportCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admissions",
			Subsystem: "analysis",
			Name:      "report_cache_total",
			Help:      "Report cache lookups by report kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DroppedRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "admissions",
			Subsystem: "analysis",
			Name:      "dropped_records_last_load",
			Help:      "Source rows dropped for unparseable timestamps in the most recent load",
		},
		[]string{"backend"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysisLatency,
			AnalysisErrors,
			TrainingDuration,
			ModelCandidates,
			ReportCacheLookups,
			DroppedRecords,
		)
	})
}
