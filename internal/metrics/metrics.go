// Package metrics holds the Prometheus collectors for the daily cycle and
// streak engine and the HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Engine ─────────────────────────────────────────────────────────────────

// ResetsTotal counts daily resets that actually cleared task state.
var ResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kidtasks",
	Name:      "resets_total",
	Help:      "Total daily resets performed, by reset policy.",
}, []string{"policy"})

// PerfectDaysTotal counts newly recorded perfect days across all kids.
var PerfectDaysTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kidtasks",
	Name:      "perfect_days_total",
	Help:      "Total perfect days recorded.",
})

// StreakTransitions counts streak evaluations by outcome (none, unchanged, increment, restart).
var StreakTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kidtasks",
	Name:      "streak_transitions_total",
	Help:      "Streak evaluations by outcome.",
}, []string{"outcome"})

// EngineErrors counts failed engine operations by operation and error kind.
var EngineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kidtasks",
	Name:      "engine_errors_total",
	Help:      "Failed engine operations.",
}, []string{"op", "kind"})

// ─── Locks ──────────────────────────────────────────────────────────────────

// LockLeasesLost counts Redis locks whose lease expired before the holder released them.
var LockLeasesLost = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "kidtasks",
	Subsystem: "lock",
	Name:      "leases_lost_total",
	Help:      "Redis lock leases that expired while still held.",
})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts served requests by method, route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kidtasks",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests served.",
}, []string{"method", "route", "status"})

// HTTPDuration observes request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "kidtasks",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})
