package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal            = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "matches_total", Help: "Total ranking passes"})
	AssignmentsTotal        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "assignments_total", Help: "Total successful auto-assignments"})
	AssignConflictsTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "assign_conflicts_total", Help: "Auto-assign attempts that lost the atomic race"})
	NarrativeFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "dispatch", Name: "narrative_fallbacks_total", Help: "Match rationales served from the fixed template"})

	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "verifications_total", Help: "Price verifications by decision"},
		[]string{"decision"},
	)
	ApprovalsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "approvals_resolved_total", Help: "Approval requests reaching a terminal state"},
		[]string{"status"},
	)

	ProsReporting = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "dispatch", Name: "pros_reporting", Help: "Pro location updates ingested"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
