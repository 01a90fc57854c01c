package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkwait_store_queries_total",
			Help: "Total repository queries by query name and outcome",
		},
		[]string{"query", "status"},
	)

	StoreQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parkwait_store_query_latency_seconds",
			Help:    "Repository query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parkwait_store_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkwait_reports_total",
			Help: "Total assessment reports by outcome",
		},
		[]string{"outcome"},
	)

	ResultsByCategory = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkwait_results_total",
			Help: "Total assessed attractions by displayed category",
		},
		[]string{"category"},
	)

	HistoryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parkwait_history_failures_total",
			Help: "Historical window fetches that failed and left an attraction without a baseline",
		},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkwait_session_transitions_total",
			Help: "Wizard state transitions by event and result",
		},
		[]string{"event", "result"},
	)
)
