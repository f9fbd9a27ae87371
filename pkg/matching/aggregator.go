package matching

import (
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
)

// NoMatchReasonNoCandidates is the persisted reason when retrieval returned
// an empty candidate set
const NoMatchReasonNoCandidates = "no candidates retrieved"

// NoMatchReasonEmbeddingFailed is the persisted reason when the source item
// could not be embedded
const NoMatchReasonEmbeddingFailed = "embedding failed"

// NoMatchReasonRetrievalFailed is the persisted reason when the vector store
// errored before any candidate could be scored
const NoMatchReasonRetrievalFailed = "candidate retrieval failed"

// topList is a small fixed-capacity ordered candidate list. Insertion keeps
// the deterministic ranking: combined score descending, then semantic score
// descending, then target item id ascending. Cheaper than sorting the full
// candidate set when the retrieval limit is large.
type topList struct {
	capacity int
	pairs    []*models.CandidatePair
}

func newTopList(capacity int) *topList {
	return &topList{capacity: capacity, pairs: make([]*models.CandidatePair, 0, capacity)}
}

// Add inserts a pair in rank order, evicting the lowest when full
func (t *topList) Add(pair *models.CandidatePair) {
	pos := len(t.pairs)
	for i, existing := range t.pairs {
		if ranksHigher(pair, existing) {
			pos = i
			break
		}
	}
	if pos >= t.capacity {
		return
	}
	t.pairs = append(t.pairs, nil)
	copy(t.pairs[pos+1:], t.pairs[pos:])
	t.pairs[pos] = pair
	if len(t.pairs) > t.capacity {
		t.pairs = t.pairs[:t.capacity]
	}
}

// Best returns the highest ranked pair, nil when empty
func (t *topList) Best() *models.CandidatePair {
	if len(t.pairs) == 0 {
		return nil
	}
	return t.pairs[0]
}

func ranksHigher(a, b *models.CandidatePair) bool {
	if a.CombinedScore != b.CombinedScore {
		return a.CombinedScore > b.CombinedScore
	}
	if a.SemanticScore != b.SemanticScore {
		return a.SemanticScore > b.SemanticScore
	}
	return a.Target.ID < b.Target.ID
}

// Aggregator turns a source item's ranked candidates into one MatchResult
type Aggregator struct {
	config     models.MatchConfig
	classifier *Classifier
	explainer  *Explainer
}

// NewAggregator creates a new Aggregator
func NewAggregator(config models.MatchConfig) *Aggregator {
	return &Aggregator{
		config:     config,
		classifier: NewClassifier(config),
		explainer:  NewExplainer(config),
	}
}

// BuildResult assembles the MatchResult for a source item from its ranked
// candidates. An empty list or a best score below the no-match floor yields
// a no-match result; otherwise the best candidate is classified and
// explained and the ranked list is retained as alternates.
func (a *Aggregator) BuildResult(source *models.CatalogItem, ranked *topList) *models.MatchResult {
	result := &models.MatchResult{
		TenantID:     source.TenantID,
		JobID:        source.JobID,
		SourceItemID: source.ID,
		ReviewStatus: models.ReviewStatusPending,
	}

	best := ranked.Best()
	if best == nil {
		return a.noMatch(result, 0, NoMatchReasonNoCandidates)
	}

	result.TopCandidates = make([]models.TopCandidate, 0, len(ranked.pairs))
	for _, pair := range ranked.pairs {
		result.TopCandidates = append(result.TopCandidates, models.TopCandidate{
			TargetItemID:  pair.Target.ID,
			CombinedScore: pair.CombinedScore,
			SemanticScore: pair.SemanticScore,
		})
	}

	if best.CombinedScore < a.config.NoMatchThreshold {
		reason := fmt.Sprintf("Best candidate scored %.0f%% - below %.0f%% threshold",
			best.CombinedScore*100, a.config.NoMatchThreshold*100)
		return a.noMatch(result, best.CombinedScore, reason)
	}

	tier, needsReview := a.classifier.Classify(best.CombinedScore)
	targetID := best.Target.ID

	result.BestTargetItemID = &targetID
	result.CombinedScore = best.CombinedScore
	result.ConfidenceTier = tier
	result.NeedsReview = needsReview
	result.Explanation = a.explainer.Explain(best)
	return result
}

// NoMatchResult builds a no-match result with an explicit reason, used when
// retrieval or embedding failed before any candidate could be scored
func (a *Aggregator) NoMatchResult(source *models.CatalogItem, reason string) *models.MatchResult {
	result := &models.MatchResult{
		TenantID:     source.TenantID,
		JobID:        source.JobID,
		SourceItemID: source.ID,
		ReviewStatus: models.ReviewStatusPending,
	}
	return a.noMatch(result, 0, reason)
}

func (a *Aggregator) noMatch(result *models.MatchResult, score float64, reason string) *models.MatchResult {
	result.BestTargetItemID = nil
	result.CombinedScore = score
	result.ConfidenceTier = models.TierNoMatch
	result.NeedsReview = true
	result.IsNoMatch = true
	result.NoMatchReason = &reason
	result.Explanation = ""
	return result
}
