// Package metrics exposes the process-wide Prometheus counters/gauges
// named in the domain-stack notes: cache hit/miss/eviction counts
// (the design note on making cache presence observable), criterion
// pass/fail counters, the backtest bars-processed counter, and the
// rate-limiter bucket level. Grounded on
// poorman-SynapseStrike's internal/metrics package: a custom
// prometheus.Registry (not the global DefaultRegisterer, so a test
// process can spin up its own registry per test) populated via
// promauto.With, namespaced rather than left bare the way
// chidi150c-coinbase's single global package does it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom registry every metric below registers
// against. No HTTP /metrics endpoint in this module serves it.
var Registry = prometheus.NewRegistry()

var (
	// CacheHits/CacheMisses/CacheEvictions mirror
	// internal/provider/market.CacheStats, exported for dashboards
	// instead of only being queryable in-process.
	CacheHits = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "signalctl", Subsystem: "cache", Name: "hits_total", Help: "Cache hits by provider."},
		[]string{"provider"},
	)
	CacheMisses = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "signalctl", Subsystem: "cache", Name: "misses_total", Help: "Cache misses by provider."},
		[]string{"provider"},
	)
	CacheEvictions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "signalctl", Subsystem: "cache", Name: "evictions_total", Help: "Cache evictions by provider."},
		[]string{"provider"},
	)

	// CriterionPass/CriterionFail count each filter criterion's
	// outcome, labeled by tier and criterion name, so a dashboard can
	// show which gates are actually rejecting candidates.
	CriterionPass = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "signalctl", Subsystem: "filter", Name: "criterion_pass_total", Help: "Criterion evaluations that passed."},
		[]string{"tier", "criterion"},
	)
	CriterionFail = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "signalctl", Subsystem: "filter", Name: "criterion_fail_total", Help: "Criterion evaluations that failed."},
		[]string{"tier", "criterion"},
	)

	// BacktestBarsProcessed counts bars run through Engine.Run, labeled
	// by symbol, so a long backtest's progress is observable.
	BacktestBarsProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "signalctl", Subsystem: "backtest", Name: "bars_processed_total", Help: "Bars processed by the backtest engine."},
		[]string{"symbol"},
	)

	// RateLimiterTokens reports the current token level of a
	// cache.HostLimiter bucket, labeled by host.
	RateLimiterTokens = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "signalctl", Subsystem: "ratelimit", Name: "tokens", Help: "Current token bucket level per upstream host."},
		[]string{"host"},
	)
)

// RecordCriterion increments CriterionPass or CriterionFail for one
// evaluation outcome.
func RecordCriterion(tier, criterion string, passed bool) {
	if passed {
		CriterionPass.WithLabelValues(tier, criterion).Inc()
		return
	}
	CriterionFail.WithLabelValues(tier, criterion).Inc()
}
