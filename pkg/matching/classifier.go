package matching

import "github.com/Ramsey-B/fern/pkg/models"

// Classifier maps a combined score onto the confidence ladder. Thresholds are
// inclusive on the lower bound; ties go to the higher tier.
type Classifier struct {
	config models.MatchConfig
}

// NewClassifier creates a new Classifier
func NewClassifier(config models.MatchConfig) *Classifier {
	return &Classifier{config: config}
}

// Classify returns the confidence tier and review flag for a combined score
func (c *Classifier) Classify(combinedScore float64) (models.ConfidenceTier, bool) {
	switch {
	case combinedScore >= c.config.ExactMatchThreshold:
		return models.TierExactMatch, false
	case combinedScore >= c.config.HighConfidenceThreshold:
		return models.TierHighConfidence, false
	case combinedScore >= c.config.GoodMatchThreshold:
		return models.TierGoodMatch, false
	case combinedScore >= c.config.LikelyMatchThreshold:
		return models.TierLikelyMatch, true
	case combinedScore >= c.config.ManualReviewThreshold:
		return models.TierManualReview, true
	default:
		// no_match items need review in principle but are surfaced through
		// the no-match list, not the normal review queue
		return models.TierNoMatch, true
	}
}
