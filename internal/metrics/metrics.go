package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Batch outcomes: success, partial, failed, invalid
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "conversions_total",
			Help:      "Total conversion batches by output format and outcome",
		},
		[]string{"format", "status"},
	)

	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "files_total",
			Help:      "Total converted files by output format and outcome",
		},
		[]string{"format", "status"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a conversion batch",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"format"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome",
		},
		[]string{"result"},
	)

	PurgesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webpeditor",
			Subsystem: "converter",
			Name:      "purges_total",
			Help:      "Total artifact purges by outcome",
		},
		[]string{"status"},
	)
)
