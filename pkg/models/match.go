package models

import (
	"fmt"
	"time"
)

// ConfidenceTier is a discrete label summarizing a combined score range
type ConfidenceTier string

const (
	TierExactMatch     ConfidenceTier = "exact_match"
	TierHighConfidence ConfidenceTier = "high_confidence"
	TierGoodMatch      ConfidenceTier = "good_match"
	TierLikelyMatch    ConfidenceTier = "likely_match"
	TierManualReview   ConfidenceTier = "manual_review"
	TierNoMatch        ConfidenceTier = "no_match"
)

// TierRank returns the ladder position of a tier, highest first.
// Used for monotonicity checks and review filtering.
func TierRank(t ConfidenceTier) int {
	switch t {
	case TierExactMatch:
		return 5
	case TierHighConfidence:
		return 4
	case TierGoodMatch:
		return 3
	case TierLikelyMatch:
		return 2
	case TierManualReview:
		return 1
	default:
		return 0
	}
}

// CandidatePair is a transient comparison unit between one source item and one
// retrieved target candidate. Only the top candidates survive per source item.
type CandidatePair struct {
	Source         *CatalogItem
	Target         *CatalogItem
	SemanticScore  float64
	TokenScore     float64
	AttributeScore float64
	CombinedScore  float64
}

// TopCandidate is one entry of a MatchResult's retained candidate list
type TopCandidate struct {
	TargetItemID  string  `json:"target_item_id"`
	CombinedScore float64 `json:"combined_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// ReviewStatus constants for manual review of a match result
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// MatchResult is the persisted outcome for one source item. Re-running a job
// overwrites the result for that source item, it never appends.
type MatchResult struct {
	ID               string         `json:"id" db:"id"`
	TenantID         string         `json:"tenant_id" db:"tenant_id"`
	JobID            string         `json:"job_id" db:"job_id"`
	SourceItemID     string         `json:"source_item_id" db:"source_item_id"`
	BestTargetItemID *string        `json:"best_target_item_id" db:"best_target_item_id"`
	CombinedScore    float64        `json:"combined_score" db:"combined_score"`
	ConfidenceTier   ConfidenceTier `json:"confidence_tier" db:"confidence_tier"`
	NeedsReview      bool           `json:"needs_review" db:"needs_review"`
	ReviewStatus     string         `json:"review_status" db:"review_status"`
	Explanation      string         `json:"explanation" db:"explanation"`
	TopCandidates    []TopCandidate `json:"top_candidates" db:"-"`
	TopCandidatesRaw string         `json:"-" db:"top_candidates"`
	IsNoMatch        bool           `json:"is_no_match" db:"is_no_match"`
	NoMatchReason    *string        `json:"no_match_reason,omitempty" db:"no_match_reason"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// MatchConfig is the scoring and pipeline configuration for one job. It is
// snapshotted at job start; no field is read from live configuration mid-run.
type MatchConfig struct {
	SemanticWeight  float64 `json:"semantic_weight"`
	TokenWeight     float64 `json:"token_weight"`
	AttributeWeight float64 `json:"attribute_weight"`

	CandidateLimit int `json:"candidate_limit"`
	TopCandidates  int `json:"top_candidates"`

	NoMatchThreshold   float64 `json:"no_match_threshold"`
	ExactOverrideScore float64 `json:"exact_override_score"`

	ExactMatchThreshold     float64 `json:"exact_match_threshold"`
	HighConfidenceThreshold float64 `json:"high_confidence_threshold"`
	GoodMatchThreshold      float64 `json:"good_match_threshold"`
	LikelyMatchThreshold    float64 `json:"likely_match_threshold"`
	ManualReviewThreshold   float64 `json:"manual_review_threshold"`

	// Borderline band handed to an optional refinement collaborator
	RefineMinScore float64 `json:"refine_min_score"`
	RefineMaxScore float64 `json:"refine_max_score"`

	Workers int `json:"workers"`

	// Fraction of processed items that may fail before the whole job is
	// declared failed. Only evaluated after FailureMinSample items.
	FailureAbortFraction float64 `json:"failure_abort_fraction"`
	FailureMinSample     int     `json:"failure_min_sample"`
}

// DefaultMatchConfig returns the default scoring configuration. The weight
// ratios are load-bearing for compatibility with previously persisted results.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		SemanticWeight:          0.60,
		TokenWeight:             0.25,
		AttributeWeight:         0.15,
		CandidateLimit:          100,
		TopCandidates:           5,
		NoMatchThreshold:        0.50,
		ExactOverrideScore:      0.95,
		ExactMatchThreshold:     0.95,
		HighConfidenceThreshold: 0.90,
		GoodMatchThreshold:      0.80,
		LikelyMatchThreshold:    0.70,
		ManualReviewThreshold:   0.50,
		RefineMinScore:          0.70,
		RefineMaxScore:          0.94,
		Workers:                 8,
		FailureAbortFraction:    0.5,
		FailureMinSample:        20,
	}
}

// Validate rejects configurations before any item is processed
func (c MatchConfig) Validate() error {
	if c.SemanticWeight <= 0 || c.TokenWeight <= 0 || c.AttributeWeight <= 0 {
		return fmt.Errorf("scoring weights must be positive")
	}
	sum := c.SemanticWeight + c.TokenWeight + c.AttributeWeight
	if sum < 1-1e-9 || sum > 1+1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", sum)
	}
	if c.CandidateLimit <= 0 {
		return fmt.Errorf("candidate limit must be positive, got %d", c.CandidateLimit)
	}
	if c.TopCandidates <= 0 {
		return fmt.Errorf("top candidates must be positive, got %d", c.TopCandidates)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	thresholds := []float64{
		c.ExactMatchThreshold,
		c.HighConfidenceThreshold,
		c.GoodMatchThreshold,
		c.LikelyMatchThreshold,
		c.ManualReviewThreshold,
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] >= thresholds[i-1] {
			return fmt.Errorf("confidence thresholds must be strictly descending")
		}
	}
	if c.RefineMinScore > c.RefineMaxScore {
		return fmt.Errorf("refine band min %.2f exceeds max %.2f", c.RefineMinScore, c.RefineMaxScore)
	}
	return nil
}
