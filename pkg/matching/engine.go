// Package matching implements the multi-signal product matching pipeline core
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CandidateRetriever fetches the nearest target-side items for a query
// vector, scoped to one job, ordered by descending similarity
type CandidateRetriever interface {
	NearestNeighbors(ctx context.Context, tenantID, jobID string, side models.ItemSide, vector []float32, limit int) ([]models.Neighbor, error)
}

// ResultWriter persists match results. Upsert overwrites the result for the
// source item, all-or-nothing.
type ResultWriter interface {
	Upsert(ctx context.Context, result *models.MatchResult) error
}

// Engine evaluates one source item against the target catalog: retrieval,
// scoring, optional refinement, classification, explanation and persistence
type Engine struct {
	logger     ectologger.Logger
	retriever  CandidateRetriever
	results    ResultWriter
	scorer     *Scorer
	classifier *Classifier
	aggregator *Aggregator
	refiner    Refiner
	visualText VisualText
	config     models.MatchConfig
}

// NewEngine creates a new match engine. refiner and visualText may be nil;
// their absence is a no-op.
func NewEngine(
	logger ectologger.Logger,
	retriever CandidateRetriever,
	results ResultWriter,
	config models.MatchConfig,
	refiner Refiner,
	visualText VisualText,
) *Engine {
	return &Engine{
		logger:     logger,
		retriever:  retriever,
		results:    results,
		scorer:     NewScorer(config),
		classifier: NewClassifier(config),
		aggregator: NewAggregator(config),
		refiner:    refiner,
		visualText: visualText,
		config:     config,
	}
}

// MatchItem evaluates one source item and persists its MatchResult. Per-item
// failures never abort the batch; callers decide what a returned error means
// for the whole job.
func (e *Engine) MatchItem(ctx context.Context, source *models.CatalogItem) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.MatchItem")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":      source.TenantID,
		"job_id":         source.JobID,
		"source_item_id": source.ID,
	})

	PrepareItem(source)

	if source.Embedding == nil {
		log.Warn("Source item has no embedding, recording no-match")
		return e.persist(ctx, e.aggregator.NoMatchResult(source, NoMatchReasonEmbeddingFailed))
	}

	neighbors, err := e.retriever.NearestNeighbors(ctx, source.TenantID, source.JobID, models.ItemSideTarget, source.Embedding, e.config.CandidateLimit)
	if err != nil {
		log.WithError(err).Error("Candidate retrieval failed, recording no-match")
		return e.persist(ctx, e.aggregator.NoMatchResult(source, NoMatchReasonRetrievalFailed))
	}

	if len(neighbors) == 0 {
		log.Debug("No candidates retrieved")
		return e.persist(ctx, e.aggregator.NoMatchResult(source, NoMatchReasonNoCandidates))
	}

	sourceTokens := e.sourceTokens(ctx, source, log)

	ranked := newTopList(e.config.TopCandidates)
	for _, neighbor := range neighbors {
		PrepareItem(neighbor.Item)
		pair := &models.CandidatePair{
			Source:        source,
			Target:        neighbor.Item,
			SemanticScore: neighbor.Similarity,
		}
		e.scorer.ScorePair(pair, sourceTokens)
		e.refine(ctx, pair, log)
		ranked.Add(pair)
	}

	result := e.aggregator.BuildResult(source, ranked)

	log.WithFields(map[string]any{
		"combined_score":  result.CombinedScore,
		"confidence_tier": result.ConfidenceTier,
		"is_no_match":     result.IsNoMatch,
	}).Debug("Scored source item")

	return e.persist(ctx, result)
}

// sourceTokens returns the source token set, augmented with OCR text when a
// visual-text collaborator is configured and the item carries an image
func (e *Engine) sourceTokens(ctx context.Context, source *models.CatalogItem, log ectologger.Logger) []string {
	if e.visualText == nil || source.ImageURL == nil || *source.ImageURL == "" {
		return source.TokenSet
	}

	text, err := e.visualText.ExtractText(ctx, *source.ImageURL)
	if err != nil {
		log.WithError(err).Warn("Visual text extraction failed, scoring text-only")
		return source.TokenSet
	}
	if text == "" {
		return source.TokenSet
	}

	merged := make([]string, 0, len(source.TokenSet))
	merged = append(merged, source.TokenSet...)
	seen := make(map[string]bool, len(merged))
	for _, tok := range merged {
		seen[tok] = true
	}
	for _, tok := range normalizers.Tokenize(text) {
		if !seen[tok] {
			merged = append(merged, tok)
			seen[tok] = true
		}
	}
	return merged
}

// refine consults the optional refinement collaborator for borderline pairs
// and re-applies the exact override so refinement can never undo it
func (e *Engine) refine(ctx context.Context, pair *models.CandidatePair, log ectologger.Logger) {
	if e.refiner == nil {
		return
	}
	if pair.CombinedScore < e.config.RefineMinScore || pair.CombinedScore > e.config.RefineMaxScore {
		return
	}

	refined, err := e.refiner.Refine(ctx, pair)
	if err != nil {
		log.WithError(err).WithFields(map[string]any{
			"target_item_id": pair.Target.ID,
		}).Warn("Refinement failed, keeping original score")
		return
	}
	if refined == nil {
		return
	}

	pair.CombinedScore = clamp01(refined.Score)
	e.scorer.ApplyExactOverride(pair)
}

func (e *Engine) persist(ctx context.Context, result *models.MatchResult) (*models.MatchResult, error) {
	if err := e.results.Upsert(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}
