package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// QuickScoreRequest scores two ad-hoc titles without persistence or
// embeddings, for interactive "would these match" checks
type QuickScoreRequest struct {
	SourceTitle string  `json:"source_title" validate:"required"`
	TargetTitle string  `json:"target_title" validate:"required"`
	SourceBrand *string `json:"source_brand,omitempty"`
	TargetBrand *string `json:"target_brand,omitempty"`
}

// QuickScoreResponse is the non-persisted scoring outcome
type QuickScoreResponse struct {
	TokenScore     float64               `json:"token_score"`
	AttributeScore float64               `json:"attribute_score"`
	CombinedScore  float64               `json:"combined_score"`
	ConfidenceTier models.ConfidenceTier `json:"confidence_tier"`
	NeedsReview    bool                  `json:"needs_review"`
	Explanation    string                `json:"explanation"`
}

// Service exposes engine-independent scoring operations
type Service struct {
	logger     ectologger.Logger
	scorer     *Scorer
	classifier *Classifier
	explainer  *Explainer
	config     models.MatchConfig
}

// NewService creates a new matching service
func NewService(logger ectologger.Logger, config models.MatchConfig) *Service {
	return &Service{
		logger:     logger,
		scorer:     NewScorer(config),
		classifier: NewClassifier(config),
		explainer:  NewExplainer(config),
		config:     config,
	}
}

// QuickScore scores two titles on the text signals alone. No embedding is
// involved, so the combined score is re-weighted over token and attribute.
func (s *Service) QuickScore(ctx context.Context, req QuickScoreRequest) *QuickScoreResponse {
	_, span := tracing.StartSpan(ctx, "matching.Service.QuickScore")
	defer span.End()

	source := &models.CatalogItem{Title: req.SourceTitle, Brand: req.SourceBrand}
	target := &models.CatalogItem{Title: req.TargetTitle, Brand: req.TargetBrand}
	PrepareItem(source)
	PrepareItem(target)

	pair := &models.CandidatePair{Source: source, Target: target}
	pair.TokenScore = s.scorer.TokenScore(source.TokenSet, target.TokenSet)

	attrScore, attrPresent := s.scorer.AttributeScore(source, target)
	pair.AttributeScore = attrScore

	textWeight := s.config.TokenWeight + s.config.AttributeWeight
	if attrPresent {
		pair.CombinedScore = (s.config.TokenWeight*pair.TokenScore +
			s.config.AttributeWeight*pair.AttributeScore) / textWeight
	} else {
		pair.CombinedScore = pair.TokenScore
	}
	pair.CombinedScore = clamp01(pair.CombinedScore)
	s.scorer.ApplyExactOverride(pair)

	tier, needsReview := s.classifier.Classify(pair.CombinedScore)

	return &QuickScoreResponse{
		TokenScore:     pair.TokenScore,
		AttributeScore: pair.AttributeScore,
		CombinedScore:  pair.CombinedScore,
		ConfidenceTier: tier,
		NeedsReview:    needsReview,
		Explanation:    s.explainer.Explain(pair),
	}
}
