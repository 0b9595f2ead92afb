// Package metrics provides Prometheus metrics for Sentinela.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "sentinela"
)

// Engine metrics
var (
	// RunsTotal counts evaluation passes by job and outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total evaluation passes",
		},
		[]string{"job", "status"},
	)

	// RunDuration tracks evaluation pass latency.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Evaluation pass latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"job"},
	)

	// RuleErrorsTotal counts per-rule query failures (recovered).
	RuleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rule_errors_total",
			Help:      "Total per-rule processing errors",
		},
		[]string{"rule"},
	)

	// UnknownRulesTotal counts enabled rules with no dispatch entry.
	UnknownRulesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "unknown_rules_total",
			Help:      "Total enabled rules skipped for lacking a dispatch entry",
		},
	)

	// IssuesTotal counts issues produced per rule.
	IssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "issues_total",
			Help:      "Total issues produced by rule evaluation",
		},
		[]string{"rule"},
	)

	// AlertsCreatedTotal counts alerts written per rule.
	AlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "alerts_created_total",
			Help:      "Total alerts created",
		},
		[]string{"rule"},
	)

	// AlertsSuppressedTotal counts alerts skipped by the dedup check.
	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "alerts_suppressed_total",
			Help:      "Total alerts suppressed as duplicates",
		},
		[]string{"rule"},
	)

	// AlertWriteErrorsTotal counts failed alert writes (recovered).
	AlertWriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "alert_write_errors_total",
			Help:      "Total failed alert writes",
		},
		[]string{"rule"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Notifier metrics
var (
	// NotificationsSentTotal counts outbound notifications per channel.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "sent_total",
			Help:      "Total notifications sent",
		},
		[]string{"channel"},
	)

	// NotificationsDroppedTotal counts notifications dropped by rate limiting.
	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "dropped_total",
			Help:      "Total notifications dropped due to rate limiting",
		},
	)
)
