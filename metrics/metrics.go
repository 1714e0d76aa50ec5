// Package metrics declares the Prometheus collectors of the recipe service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecipeQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cookbook",
		Name:      "recipe_queries_total",
		Help:      "Composed recipe queries by sort key and result.",
	}, []string{"sort", "result"})

	RecipeQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cookbook",
		Name:      "recipe_query_duration_seconds",
		Help:      "Latency of composed recipe queries.",
		Buckets:   prometheus.DefBuckets,
	})

	RatingUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cookbook",
		Name:      "rating_updates_total",
		Help:      "Average rating maintenance after a review, by path taken.",
	}, []string{"path"})

	SaveToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cookbook",
		Name:      "save_toggles_total",
		Help:      "Save membership toggles by direction.",
	}, []string{"direction"})

	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cookbook",
		Name:      "reconciliations_total",
		Help:      "Denormalized aggregate reconciliations by aggregate and outcome.",
	}, []string{"aggregate", "outcome"})

	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cookbook",
		Name:      "generations_total",
		Help:      "AI generation steps by step and result.",
	}, []string{"step", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cookbook",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})
)
