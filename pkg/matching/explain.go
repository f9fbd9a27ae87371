package matching

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Deficit thresholds below which a signal is called out in the explanation
const (
	semanticExplainFloor = 0.85
	tokenExplainFloor    = 0.50
)

// maxDeficits bounds explanation length
const maxDeficits = 3

// Explainer produces the deterministic "why not a perfect match" text shown
// to reviewers. Given identical inputs the output is byte-identical.
type Explainer struct {
	config models.MatchConfig
}

// NewExplainer creates a new Explainer
func NewExplainer(config models.MatchConfig) *Explainer {
	return &Explainer{config: config}
}

// Explain returns the semicolon-joined deficit list for a scored pair.
// Pairs at or above the exact-match threshold get an empty explanation.
// Deficits are evaluated in fixed priority order and capped at three.
func (e *Explainer) Explain(pair *models.CandidatePair) string {
	if pair.CombinedScore >= e.config.ExactMatchThreshold {
		return ""
	}

	var deficits []string

	if a, b, ok := brandMismatch(pair.Source, pair.Target); ok {
		deficits = append(deficits, fmt.Sprintf("Brand mismatch: %s vs %s", a, b))
	}
	if a, b, ok := attributeMismatch(pair.Source.Attributes.Shade, pair.Target.Attributes.Shade); ok {
		deficits = append(deficits, fmt.Sprintf("Shade differs: %s vs %s", a, b))
	}
	if a, b, ok := attributeMismatch(pair.Source.Attributes.Finish, pair.Target.Attributes.Finish); ok {
		deficits = append(deficits, fmt.Sprintf("Product type differs: %s vs %s", a, b))
	}
	if pair.SemanticScore < semanticExplainFloor {
		deficits = append(deficits, fmt.Sprintf("Semantic similarity below threshold: %.2f", pair.SemanticScore))
	}
	if pair.TokenScore < tokenExplainFloor {
		deficits = append(deficits, fmt.Sprintf("Low text overlap: %.2f", pair.TokenScore))
	}

	if len(deficits) > maxDeficits {
		deficits = deficits[:maxDeficits]
	}
	return strings.Join(deficits, "; ")
}

func brandMismatch(source, target *models.CatalogItem) (string, string, bool) {
	if source.Brand == nil || target.Brand == nil {
		return "", "", false
	}
	if normalizers.NormalizeBrand(*source.Brand) == normalizers.NormalizeBrand(*target.Brand) {
		return "", "", false
	}
	return *source.Brand, *target.Brand, true
}

func attributeMismatch(a, b *string) (string, string, bool) {
	if a == nil || b == nil {
		return "", "", false
	}
	if strings.EqualFold(*a, *b) {
		return "", "", false
	}
	return *a, *b, true
}
