// Package metrics declares the Prometheus collectors of the app.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// grade submission outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

var (
	GradeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shule_grade_submissions_total",
			Help: "Total number of grade submissions by outcome",
		},
		[]string{"outcome"},
	)

	GradeScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shule_grade_score",
			Help:    "Distribution of accepted scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"letter_grade"},
	)

	ScaleReplacements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shule_grading_scale_replacements_total",
			Help: "Total number of grading scale replacements by outcome",
		},
		[]string{"outcome"},
	)

	ReportsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shule_reports_built_total",
			Help: "Total number of academic reports built",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shule_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

// Outcome returns the outcome label of err.
func Outcome(err error) string {
	if err != nil {
		return OutcomeRejected
	}
	return OutcomeAccepted
}
