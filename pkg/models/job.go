package models

import (
	"encoding/json"
	"time"
)

// JobStage is the pipeline state machine over a matching job. Stages are
// strictly sequential; no stage is re-entered except failed.
type JobStage string

const (
	StagePending              JobStage = "pending"
	StageEmbeddingSource      JobStage = "embedding_source"
	StageEmbeddingTarget      JobStage = "embedding_target"
	StageRetrievingCandidates JobStage = "retrieving_candidates"
	StageScoring              JobStage = "scoring"
	StageClassifying          JobStage = "classifying"
	StageCompleted            JobStage = "completed"
	StageFailed               JobStage = "failed"
)

// Job is one matching run between a source and a target catalog
type Job struct {
	ID             string          `json:"id" db:"id"`
	TenantID       string          `json:"tenant_id" db:"tenant_id"`
	SourceSite     string          `json:"source_site" db:"source_site"`
	TargetSite     string          `json:"target_site" db:"target_site"`
	Stage          JobStage        `json:"stage" db:"stage"`
	TotalCount     int             `json:"total_count" db:"total_count"`
	ProcessedCount int             `json:"processed_count" db:"processed_count"`
	Counters       json.RawMessage `json:"counters" db:"counters"`
	Config         json.RawMessage `json:"config" db:"config"`
	LastError      *string         `json:"last_error,omitempty" db:"last_error"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// JobCounters are the job-scoped counts surfaced to the orchestrator.
// Field names are stable, they are read by an external review UI.
type JobCounters struct {
	Matched         int64 `json:"matched"`
	HighConfidence  int64 `json:"high_confidence"`
	NoMatch         int64 `json:"no_match"`
	NeedsReview     int64 `json:"needs_review"`
	EmbeddingFailed int64 `json:"embedding_failed"`
}

// JobProgressSnapshot is the polled progress view of a job. It is not a
// source of truth for results.
type JobProgressSnapshot struct {
	JobID           string      `json:"job_id"`
	Stage           JobStage    `json:"stage"`
	ProcessedCount  int64       `json:"processed_count"`
	TotalCount      int64       `json:"total_count"`
	Rate            float64     `json:"rate"`
	ETASeconds      float64     `json:"eta_seconds"`
	Counters        JobCounters `json:"counters"`
	CountersMessage string      `json:"counters_message"`
	LastError       string      `json:"last_error,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// StartJobRequest starts a matching run for an existing job
type StartJobRequest struct {
	Config *MatchConfig `json:"config,omitempty"`
}
