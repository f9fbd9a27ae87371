package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestClassify(t *testing.T) {
	classifier := NewClassifier(models.DefaultMatchConfig())

	tests := []struct {
		name        string
		score       float64
		tier        models.ConfidenceTier
		needsReview bool
	}{
		{"perfect score is exact match", 1.0, models.TierExactMatch, false},
		{"exact threshold is inclusive", 0.95, models.TierExactMatch, false},
		{"just below exact is high confidence", 0.949, models.TierHighConfidence, false},
		{"high threshold is inclusive", 0.90, models.TierHighConfidence, false},
		{"good threshold is inclusive", 0.80, models.TierGoodMatch, false},
		{"just below good needs review", 0.799, models.TierLikelyMatch, true},
		{"likely threshold is inclusive", 0.70, models.TierLikelyMatch, true},
		{"manual review threshold is inclusive", 0.50, models.TierManualReview, true},
		{"below manual review is no match", 0.499, models.TierNoMatch, true},
		{"zero is no match", 0, models.TierNoMatch, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tier, needsReview := classifier.Classify(tc.score)
			assert.Equal(t, tc.tier, tier)
			assert.Equal(t, tc.needsReview, needsReview)
		})
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	config := models.DefaultMatchConfig()
	config.GoodMatchThreshold = 0.85
	classifier := NewClassifier(config)

	tier, needsReview := classifier.Classify(0.82)
	assert.Equal(t, models.TierLikelyMatch, tier)
	assert.True(t, needsReview)
}
