package matching

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Attribute sub-weights within the attribute score. Brand dominates because it
// is the strongest disambiguator between near-identical cosmetics listings.
const (
	brandWeight   = 0.40
	codeWeight    = 0.35
	variantWeight = 0.25 // split evenly across shade, color and finish
)

// Scorer composes the three similarity signals into one combined score
type Scorer struct {
	config models.MatchConfig
}

// NewScorer creates a new Scorer with a snapshotted configuration
func NewScorer(config models.MatchConfig) *Scorer {
	return &Scorer{config: config}
}

// Config returns the snapshotted configuration
func (s *Scorer) Config() models.MatchConfig {
	return s.config
}

// ScorePair scores one candidate pair. The semantic score comes from the
// vector store; token and attribute scores are computed here. sourceTokens
// lets the caller augment the source token set (e.g. with OCR text) without
// mutating the item.
func (s *Scorer) ScorePair(pair *models.CandidatePair, sourceTokens []string) {
	if sourceTokens == nil {
		sourceTokens = pair.Source.TokenSet
	}

	pair.SemanticScore = clamp01(pair.SemanticScore)
	pair.TokenScore = s.TokenScore(sourceTokens, pair.Target.TokenSet)

	attrScore, attrPresent := s.AttributeScore(pair.Source, pair.Target)
	pair.AttributeScore = attrScore

	if attrPresent {
		pair.CombinedScore = s.config.SemanticWeight*pair.SemanticScore +
			s.config.TokenWeight*pair.TokenScore +
			s.config.AttributeWeight*pair.AttributeScore
	} else {
		// Neither side carries any attribute; rescale over the remaining
		// signals instead of penalizing metadata-poor listings.
		textWeight := s.config.SemanticWeight + s.config.TokenWeight
		pair.CombinedScore = (s.config.SemanticWeight*pair.SemanticScore +
			s.config.TokenWeight*pair.TokenScore) / textWeight
	}

	pair.CombinedScore = clamp01(pair.CombinedScore)
	s.ApplyExactOverride(pair)
}

// TokenScore is the Jaccard similarity of two token sets, 0 when the union
// is empty
func (s *Scorer) TokenScore(a, b []string) float64 {
	setA := normalizers.TokenSet(a)
	setB := normalizers.TokenSet(b)

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// AttributeScore is the weighted average over the attribute sub-components.
// A sub-component missing on both sides is omitted from the denominator;
// missing on one side scores 0. The second return is false when every
// sub-component was omitted.
func (s *Scorer) AttributeScore(source, target *models.CatalogItem) (float64, bool) {
	var weightedSum, totalWeight float64

	if score, ok := s.BrandScore(source.Brand, target.Brand); ok {
		weightedSum += score * brandWeight
		totalWeight += brandWeight
	}
	if score, ok := exactComponent(source.Attributes.ProductCode, target.Attributes.ProductCode); ok {
		weightedSum += score * codeWeight
		totalWeight += codeWeight
	}

	perVariant := variantWeight / 3
	for _, comp := range []struct{ a, b *string }{
		{source.Attributes.Shade, target.Attributes.Shade},
		{source.Attributes.Color, target.Attributes.Color},
		{source.Attributes.Finish, target.Attributes.Finish},
	} {
		if score, ok := exactComponent(comp.a, comp.b); ok {
			weightedSum += score * perVariant
			totalWeight += perVariant
		}
	}

	if totalWeight == 0 {
		return 0, false
	}
	return weightedSum / totalWeight, true
}

// BrandScore scores the brand sub-component: 1.0 on an exact normalized
// match, 0.5 when one brand string contains the other. Returns false when
// both sides lack a brand.
func (s *Scorer) BrandScore(a, b *string) (float64, bool) {
	if a == nil && b == nil {
		return 0, false
	}
	if a == nil || b == nil {
		return 0, true
	}
	na := normalizers.NormalizeBrand(*a)
	nb := normalizers.NormalizeBrand(*b)
	if na == nb {
		return 1.0, true
	}
	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return 0.5, true
	}
	return 0, true
}

// ApplyExactOverride forces the combined score up to the override floor when
// the pair is definitionally the same product: same brand plus same product
// code, or same brand plus an identical normalized title. Idempotent.
func (s *Scorer) ApplyExactOverride(pair *models.CandidatePair) {
	if !s.brandsMatchExactly(pair.Source, pair.Target) {
		return
	}

	codesMatch := bothEqual(pair.Source.Attributes.ProductCode, pair.Target.Attributes.ProductCode)
	titlesMatch := pair.Source.NormalizedTitle != "" &&
		pair.Source.NormalizedTitle == pair.Target.NormalizedTitle

	if codesMatch || titlesMatch {
		if pair.CombinedScore < s.config.ExactOverrideScore {
			pair.CombinedScore = s.config.ExactOverrideScore
		}
	}
}

func (s *Scorer) brandsMatchExactly(source, target *models.CatalogItem) bool {
	if source.Brand == nil || target.Brand == nil {
		return false
	}
	return normalizers.NormalizeBrand(*source.Brand) == normalizers.NormalizeBrand(*target.Brand)
}

// exactComponent scores an attribute sub-component: 1.0 when both present
// and equal ignoring case, 0 otherwise; omitted when missing on both sides
func exactComponent(a, b *string) (float64, bool) {
	if a == nil && b == nil {
		return 0, false
	}
	if a == nil || b == nil {
		return 0, true
	}
	if strings.EqualFold(*a, *b) {
		return 1.0, true
	}
	return 0, true
}

func bothEqual(a, b *string) bool {
	return a != nil && b != nil && strings.EqualFold(*a, *b)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
