package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestExplain(t *testing.T) {
	explainer := NewExplainer(models.DefaultMatchConfig())

	t.Run("should be empty at or above the exact match threshold", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Brand: strPtr("Chanel")},
			Target:        &models.CatalogItem{Brand: strPtr("Dior")},
			SemanticScore: 0.2,
			CombinedScore: 0.95,
		}
		assert.Equal(t, "", explainer.Explain(pair))
	})

	t.Run("should report a brand mismatch with both values", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Brand: strPtr("Chanel")},
			Target:        &models.CatalogItem{Brand: strPtr("Dior")},
			SemanticScore: 0.90,
			TokenScore:    0.80,
			CombinedScore: 0.85,
		}
		assert.Equal(t, "Brand mismatch: Chanel vs Dior", explainer.Explain(pair))
	})

	t.Run("should not flag brands that normalize to the same value", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Brand: strPtr("L'Oréal")},
			Target:        &models.CatalogItem{Brand: strPtr("loreal")},
			SemanticScore: 0.90,
			TokenScore:    0.80,
			CombinedScore: 0.85,
		}
		assert.Equal(t, "", explainer.Explain(pair))
	})

	t.Run("should report a shade difference", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Attributes: models.ItemAttributes{Shade: strPtr("04")}},
			Target:        &models.CatalogItem{Attributes: models.ItemAttributes{Shade: strPtr("12")}},
			SemanticScore: 0.90,
			TokenScore:    0.80,
			CombinedScore: 0.85,
		}
		assert.Equal(t, "Shade differs: 04 vs 12", explainer.Explain(pair))
	})

	t.Run("should report a finish difference as a product type difference", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Attributes: models.ItemAttributes{Finish: strPtr("matte")}},
			Target:        &models.CatalogItem{Attributes: models.ItemAttributes{Finish: strPtr("glossy")}},
			SemanticScore: 0.90,
			TokenScore:    0.80,
			CombinedScore: 0.85,
		}
		assert.Equal(t, "Product type differs: matte vs glossy", explainer.Explain(pair))
	})

	t.Run("should report low semantic similarity", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{},
			Target:        &models.CatalogItem{},
			SemanticScore: 0.70,
			TokenScore:    0.80,
			CombinedScore: 0.75,
		}
		assert.Equal(t, "Semantic similarity below threshold: 0.70", explainer.Explain(pair))
	})

	t.Run("should report low token overlap", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{},
			Target:        &models.CatalogItem{},
			SemanticScore: 0.90,
			TokenScore:    0.25,
			CombinedScore: 0.75,
		}
		assert.Equal(t, "Low text overlap: 0.25", explainer.Explain(pair))
	})

	t.Run("should join deficits in priority order and cap at three", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source: &models.CatalogItem{
				Brand:      strPtr("Chanel"),
				Attributes: models.ItemAttributes{Shade: strPtr("04"), Finish: strPtr("matte")},
			},
			Target: &models.CatalogItem{
				Brand:      strPtr("Dior"),
				Attributes: models.ItemAttributes{Shade: strPtr("12"), Finish: strPtr("glossy")},
			},
			SemanticScore: 0.30,
			TokenScore:    0.10,
			CombinedScore: 0.40,
		}
		assert.Equal(t,
			"Brand mismatch: Chanel vs Dior; Shade differs: 04 vs 12; Product type differs: matte vs glossy",
			explainer.Explain(pair))
	})

	t.Run("should skip attributes missing on either side", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Attributes: models.ItemAttributes{Shade: strPtr("04")}},
			Target:        &models.CatalogItem{},
			SemanticScore: 0.90,
			TokenScore:    0.80,
			CombinedScore: 0.85,
		}
		assert.Equal(t, "", explainer.Explain(pair))
	})
}
