// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "walleet"

// Replay outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
	OutcomeBusy      = "busy"
	OutcomeOffline   = "offline"
)

var LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Ledger mutations by operation and result.",
}, []string{"op", "result"})

var LedgerSize = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "expenses",
	Help:      "Number of expenses currently in the ledger.",
})

var QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "queue",
	Name:      "pending_images",
	Help:      "Receipt images waiting for analysis.",
})

var ReplayOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "replay",
	Name:      "outcomes_total",
	Help:      "Replay attempts by outcome.",
}, []string{"outcome"})

var CandidatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "gateway",
	Name:      "candidates_skipped_total",
	Help:      "Gateway candidates dropped for lacking a positive amount.",
})

var GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "gateway",
	Name:      "request_duration_seconds",
	Help:      "Image analysis call latency by result.",
	Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
}, []string{"result"})

var GatewayCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "gateway",
	Name:      "cache_lookups_total",
	Help:      "Analysis result cache lookups by outcome (hit or miss).",
}, []string{"outcome"})

var Online = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "connectivity",
	Name:      "online",
	Help:      "1 when the device reports network connectivity.",
})

// Result labels an operation by its error.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by a rate limiter.",
}, []string{"limiter"})
