// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every engine metric. One instance per engine; pass a
// dedicated registerer in tests to avoid global registration clashes.
type Collector struct {
	// Classification
	classifications *prometheus.CounterVec

	// Search pipeline
	searchesTotal  *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	escalations    prometheus.Counter
	qualityScore   prometheus.Histogram

	// Cache
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions prometheus.Counter

	// Circuit breaker
	breakerTransitions *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec

	// Memory retrieval
	retrievalsTotal   *prometheus.CounterVec
	memoriesReturned  prometheus.Histogram
	retrievalDuration prometheus.Histogram
}

// NewCollector creates and registers the engine metrics under the
// given namespace. A nil registerer uses the default registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Query classifications by type and intensity",
		}, []string{"query_type", "intensity"}),

		searchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Search requests by pipeline strategy and outcome",
		}, []string{"strategy", "outcome"}),

		searchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search execution duration by mode",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),

		escalations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progressive_escalations_total",
			Help:      "Progressive searches escalated to comprehensive",
		}),

		qualityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "progressive_quality_score",
			Help:      "First-pass quality scores in progressive search",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by tier",
		}, []string{"tier"}),

		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by tier",
		}, []string{"tier"}),

		cacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted under capacity pressure",
		}),

		breakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"dependency", "to"}),

		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"dependency"}),

		retrievalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_retrievals_total",
			Help:      "Memory retrievals by outcome",
		}, []string{"outcome"}),

		memoriesReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memories_returned",
			Help:      "Memories returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
		}),

		retrievalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_retrieval_duration_seconds",
			Help:      "Memory retrieval duration",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordClassification counts one classification verdict.
func (c *Collector) RecordClassification(queryType, intensity string) {
	if c == nil {
		return
	}
	c.classifications.WithLabelValues(queryType, intensity).Inc()
}

// RecordSearch counts one search request.
func (c *Collector) RecordSearch(strategy, outcome string) {
	if c == nil {
		return
	}
	c.searchesTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveSearchDuration records how long one execution mode took.
func (c *Collector) ObserveSearchDuration(mode string, d time.Duration) {
	if c == nil {
		return
	}
	c.searchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordEscalation counts a progressive-search escalation and its
// triggering first-pass quality score.
func (c *Collector) RecordEscalation(score float64) {
	if c == nil {
		return
	}
	c.escalations.Inc()
	c.qualityScore.Observe(score)
}

// ObserveQuality records a first-pass quality score that did not
// trigger escalation.
func (c *Collector) ObserveQuality(score float64) {
	if c == nil {
		return
	}
	c.qualityScore.Observe(score)
}

// RecordCacheHit counts a hit on the named tier.
func (c *Collector) RecordCacheHit(tier string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss counts a miss on the named tier.
func (c *Collector) RecordCacheMiss(tier string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(tier).Inc()
}

// RecordBreakerTransition counts a state transition and updates the
// state gauge.
func (c *Collector) RecordBreakerTransition(dependency, to string, stateValue float64) {
	if c == nil {
		return
	}
	c.breakerTransitions.WithLabelValues(dependency, to).Inc()
	c.breakerState.WithLabelValues(dependency).Set(stateValue)
}

// RecordRetrieval counts one memory retrieval and its result size.
func (c *Collector) RecordRetrieval(outcome string, memories int, d time.Duration) {
	if c == nil {
		return
	}
	c.retrievalsTotal.WithLabelValues(outcome).Inc()
	c.memoriesReturned.Observe(float64(memories))
	c.retrievalDuration.Observe(d.Seconds())
}
