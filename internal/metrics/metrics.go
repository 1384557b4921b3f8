package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanderkit_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wanderkit_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wanderkit_upstream_duration_seconds",
			Help:    "Upstream API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanderkit_upstream_errors_total",
			Help: "Total number of upstream API failures",
		},
		[]string{"service"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanderkit_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"route"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanderkit_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"route"},
	)

	ImagesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wanderkit_images_generated_total",
			Help: "Total number of images generated",
		},
	)
)
