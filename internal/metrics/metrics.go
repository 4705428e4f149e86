// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes recorded by SimilarityLookups.
const (
	LookupCacheHit = "cache_hit"
	LookupFetched  = "fetched"
	LookupDegraded = "degraded"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time spent building one recommendation response",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	SeedArtists = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_seed_artists",
			Help:    "Number of seed artists per recommendation request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
	)

	SimilarityLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_lookups_total",
			Help: "Similarity lookups by outcome",
		},
		[]string{"outcome"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_cache_errors_total",
			Help: "Similarity cache read/write failures",
		},
		[]string{"op"},
	)

	CacheJobsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similarity_cache_jobs_dropped_total",
			Help: "Cache writes dropped because the worker queue was full",
		},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retried upstream HTTP requests",
		},
		[]string{"upstream"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
