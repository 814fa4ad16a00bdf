// Package metrics provides Prometheus metrics for monitoring the plan tracking engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Plan tracking engine metrics
var (
	// commitValidationTotal records the outcome of every target commit validation.
	// Labels:
	//   - outcome: Validation outcome (e.g., "accepted", "rejected")
	//   - reason: Rejection reason (e.g., "none", "non_positive", "exceeds_available")
	commitValidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_commit_validations_total",
			Help: "Total number of activity target commit validations",
		},
		[]string{"outcome", "reason"},
	)

	// evidenceAttachTotal records evidence attachment attempts.
	// Labels:
	//   - status: Attachment status (e.g., "success", "rejected", "not_persisted")
	evidenceAttachTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_evidence_attachments_total",
			Help: "Total number of evidence attachment attempts",
		},
		[]string{"status"},
	)

	// resultCacheLookupTotal records result cache lookups.
	// Labels:
	//   - result: Lookup result (e.g., "hit", "miss", "expired")
	resultCacheLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_result_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// analyticsRecomputeDuration records the duration of analytics recomputation.
	// Labels:
	//   - scope: Recompute scope (e.g., "year", "all_years")
	// Buckets: 1ms .. 5s
	analyticsRecomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plan_analytics_recompute_duration_seconds",
			Help:    "Duration of analytics aggregation recomputation in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"scope"},
	)
)

func init() {
	// Register all engine metrics with Prometheus
	prometheus.MustRegister(commitValidationTotal)
	prometheus.MustRegister(evidenceAttachTotal)
	prometheus.MustRegister(resultCacheLookupTotal)
	prometheus.MustRegister(analyticsRecomputeDuration)
}

// RecordCommitValidation records a commit validation outcome.
// Parameters:
//   - outcome: "accepted" or "rejected"
//   - reason: rejection reason, "none" when accepted
func RecordCommitValidation(outcome, reason string) {
	commitValidationTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordEvidenceAttachment records an evidence attachment attempt.
// Parameters:
//   - status: "success", "rejected" or "not_persisted"
func RecordEvidenceAttachment(status string) {
	evidenceAttachTotal.WithLabelValues(status).Inc()
}

// RecordCacheLookup records a result cache lookup.
// Parameters:
//   - result: "hit", "miss" or "expired"
func RecordCacheLookup(result string) {
	resultCacheLookupTotal.WithLabelValues(result).Inc()
}

// RecordAnalyticsRecompute records the duration of an analytics recomputation.
// Parameters:
//   - scope: "year" or "all_years"
//   - durationSeconds: recomputation duration in seconds
func RecordAnalyticsRecompute(scope string, durationSeconds float64) {
	analyticsRecomputeDuration.WithLabelValues(scope).Observe(durationSeconds)
}
