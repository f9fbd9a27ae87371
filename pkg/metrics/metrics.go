// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsScoredTotal tracks scored source items by confidence tier
	ItemsScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "items_scored_total",
			Help:      "Total number of source items scored by confidence tier",
		},
		[]string{"tenant_id", "tier"},
	)

	// ItemScoreDuration tracks per-item scoring duration in seconds
	ItemScoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "matching",
			Name:      "item_score_duration_seconds",
			Help:      "Duration of per-item scoring in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tenant_id"},
	)

	// JobsTotal tracks finished matching runs by outcome
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Total number of finished matching runs by outcome",
		},
		[]string{"tenant_id", "outcome"},
	)

	// JobsInFlight tracks runs currently executing
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "jobs_in_flight",
			Help:      "Number of matching runs currently executing",
		},
	)

	// EmbeddingRequestsTotal tracks embedding provider calls by status
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Total number of embedding provider calls by status",
		},
		[]string{"status"},
	)

	// EmbeddingRequestDuration tracks embedding provider call duration
	EmbeddingRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Duration of embedding provider calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// CandidateQueryDuration tracks nearest-neighbor query duration
	CandidateQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "retrieval",
			Name:      "candidate_query_duration_seconds",
			Help:      "Duration of nearest-neighbor candidate queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// ItemsIngestedTotal tracks catalog items ingested by side
	ItemsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "ingest",
			Name:      "items_total",
			Help:      "Total number of catalog items ingested by side",
		},
		[]string{"tenant_id", "side"},
	)
)

// RecordItemScored records a scored item metric
func RecordItemScored(tenantID, tier string, durationSeconds float64) {
	ItemsScoredTotal.WithLabelValues(tenantID, tier).Inc()
	ItemScoreDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordJobFinished records a finished run metric
func RecordJobFinished(tenantID, outcome string) {
	JobsTotal.WithLabelValues(tenantID, outcome).Inc()
}

// RecordEmbeddingRequest records an embedding provider call metric
func RecordEmbeddingRequest(status string, durationSeconds float64) {
	EmbeddingRequestsTotal.WithLabelValues(status).Inc()
	EmbeddingRequestDuration.Observe(durationSeconds)
}

// RecordItemIngested records an ingested item metric
func RecordItemIngested(tenantID, side string) {
	ItemsIngestedTotal.WithLabelValues(tenantID, side).Inc()
}
