package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventOperations tracks the number of event operations by outcome
	EventOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_service_operations_total",
			Help: "The total number of event operations",
		},
		[]string{"operation", "status"},
	)

	// EventOperationDuration tracks the duration of event operations
	EventOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_service_operation_duration_seconds",
			Help:    "The duration of event operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DetailPageViews tracks rendered detail pages
	DetailPageViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_service_detail_page_views_total",
			Help: "The total number of rendered event detail pages",
		},
	)

	// SampleBytesStored tracks uploaded sample payload sizes
	SampleBytesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_service_sample_bytes_stored_total",
			Help: "The total number of sample bytes stored",
		},
	)
)
