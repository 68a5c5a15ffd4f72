package calls

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK                = "ok"
	outcomeSourceUnavailable = "source_unavailable"
	outcomeDataFormat        = "data_format"
	outcomeInternal          = "internal"
)

var (
	detectionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdr_detection_runs_total",
			Help: "Total number of detection runs by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	detectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cdr_detection_duration_seconds",
			Help:    "Time spent loading and analysing a call record batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	recordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdr_records_processed_total",
			Help: "Total number of call records analysed",
		},
		[]string{"source"},
	)

	suspiciousCallers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cdr_suspicious_callers",
			Help: "Suspicious callers in the latest analysed batch by risk level",
		},
		[]string{"risk_level"},
	)

	reportCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdr_report_cache_total",
			Help: "Report cache lookups by result",
		},
		[]string{"result"},
	)
)

func recordSummary(s Summary) {
	suspiciousCallers.WithLabelValues(string(RiskCritical)).Set(float64(s.CriticalCallers))
	suspiciousCallers.WithLabelValues(string(RiskHigh)).Set(float64(s.HighCallers))
	suspiciousCallers.WithLabelValues(string(RiskModerate)).Set(float64(s.ModerateCallers))
}
