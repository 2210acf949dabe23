// Package metrics exposes Prometheus collectors for the request pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PipelineRequestsTotal counts processed questions by intent and outcome.
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coopassist_pipeline_requests_total",
			Help: "Total number of questions processed, by intent and outcome.",
		},
		[]string{"intent", "outcome"},
	)

	// PlannerAttemptsTotal counts SQL planner attempts by result.
	PlannerAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coopassist_planner_attempts_total",
			Help: "SQL planner attempts, by attempt result.",
		},
		[]string{"result"},
	)

	// GenerationDurationSeconds observes latency of text-generation calls.
	GenerationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coopassist_generation_duration_seconds",
			Help:    "Latency of text-generation calls by purpose.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"},
	)

	// ChartsRenderedTotal counts rendered charts by chart kind.
	ChartsRenderedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coopassist_charts_rendered_total",
			Help: "Charts rendered, by chart kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		PipelineRequestsTotal,
		PlannerAttemptsTotal,
		GenerationDurationSeconds,
		ChartsRenderedTotal,
	)
}
