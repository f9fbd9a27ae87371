package matching

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// RefinedScore is an optional override returned by a refinement collaborator
type RefinedScore struct {
	Score     float64
	Rationale string
}

// Refiner is an optional collaborator (e.g. an LLM validator) consulted for
// borderline pairs. A nil Refiner and a nil result are both no-ops; the
// engine never depends on one being configured.
type Refiner interface {
	Refine(ctx context.Context, pair *models.CandidatePair) (*RefinedScore, error)
}

// VisualText is an optional collaborator (e.g. an OCR service) that extracts
// text from a listing image as an additional token source. Absence degrades
// to text-only scoring.
type VisualText interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}
