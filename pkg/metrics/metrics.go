package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dluzirna_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ThrottleRejections counts requests rejected by the rate limiter per rule.
	ThrottleRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dluzirna_throttle_rejections_total",
			Help: "Total number of rate limited requests",
		},
		[]string{"rule"},
	)

	// NotificationsSent counts outbound debt notifications by outcome (sent|failed).
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dluzirna_notifications_total",
			Help: "Total number of debt notification emails by outcome",
		},
		[]string{"outcome"},
	)

	// DebtViews counts public token resolutions by disclosure result (owner|token|miss).
	DebtViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dluzirna_debt_views_total",
			Help: "Total number of public debt view resolutions",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dluzirna_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
