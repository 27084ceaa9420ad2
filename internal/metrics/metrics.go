// README: Prometheus instruments for planning, place resolution and provider health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "friendus",
		Name:      "plans_total",
		Help:      "Plan generations by outcome.",
	}, []string{"outcome"})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "friendus",
		Name:      "plan_duration_seconds",
		Help:      "Wall time of a full plan generation.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
	})

	PlanSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "friendus",
		Name:      "plan_steps",
		Help:      "Number of steps in generated plans.",
		Buckets:   prometheus.LinearBuckets(0, 1, 10),
	})

	ResolverFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "friendus",
		Name:      "resolver_fallbacks_total",
		Help:      "Place searches that produced the unresolved fallback place.",
	})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "friendus",
		Name:      "provider_errors_total",
		Help:      "Failed calls to external providers.",
	}, []string{"provider"})

	IntentFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "friendus",
		Name:      "intent_fallbacks_total",
		Help:      "Intent extractions that fell back to the secondary source.",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "friendus",
		Name:      "place_cache_lookups_total",
		Help:      "Place-search cache lookups by result.",
	}, []string{"result"})
)
