// Package metrics declares the gateway's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bedrock_gateway_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	ChatPath = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_chat_path_total",
			Help: "Chat requests by processing path",
		},
		[]string{"path"},
	)

	Fallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_fallbacks_total",
			Help: "Tool-path requests answered by the model instead",
		},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bedrock_gateway_upstream_latency_seconds",
			Help:    "Latency of calls to upstream services",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"target", "outcome"},
	)

	Artifacts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_artifacts_total",
			Help: "Extracted artifacts by upload outcome",
		},
		[]string{"outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bedrock_gateway_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
