package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func strPtr(s string) *string { return &s }

func testItem(title string, brand *string) *models.CatalogItem {
	item := &models.CatalogItem{Title: title, Brand: brand}
	PrepareItem(item)
	return item
}

func TestTokenScore(t *testing.T) {
	scorer := NewScorer(models.DefaultMatchConfig())

	t.Run("should return 1 for identical sets", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.TokenScore([]string{"rouge", "allure"}, []string{"allure", "rouge"}))
	})

	t.Run("should return 0 for disjoint sets", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.TokenScore([]string{"rouge"}, []string{"mascara"}))
	})

	t.Run("should return 0 when both sets are empty", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.TokenScore(nil, nil))
	})

	t.Run("should return 0 when one set is empty", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.TokenScore([]string{"rouge"}, nil))
	})

	t.Run("should compute jaccard overlap", func(t *testing.T) {
		score := scorer.TokenScore([]string{"rouge", "allure", "velvet"}, []string{"rouge", "allure"})
		assert.InDelta(t, 2.0/3.0, score, 1e-9)
	})

	t.Run("should ignore duplicate tokens", func(t *testing.T) {
		score := scorer.TokenScore([]string{"rouge", "rouge"}, []string{"rouge"})
		assert.Equal(t, 1.0, score)
	})
}

func TestBrandScore(t *testing.T) {
	scorer := NewScorer(models.DefaultMatchConfig())

	t.Run("should score 1 for exact normalized match", func(t *testing.T) {
		score, present := scorer.BrandScore(strPtr("L'Oréal"), strPtr("loreal"))
		assert.True(t, present)
		assert.Equal(t, 1.0, score)
	})

	t.Run("should score 0.5 for containment", func(t *testing.T) {
		score, present := scorer.BrandScore(strPtr("Chanel Paris"), strPtr("Chanel"))
		assert.True(t, present)
		assert.Equal(t, 0.5, score)
	})

	t.Run("should score 0 for unrelated brands", func(t *testing.T) {
		score, present := scorer.BrandScore(strPtr("Chanel"), strPtr("Dior"))
		assert.True(t, present)
		assert.Equal(t, 0.0, score)
	})

	t.Run("should score 0 when one side is missing", func(t *testing.T) {
		score, present := scorer.BrandScore(strPtr("Chanel"), nil)
		assert.True(t, present)
		assert.Equal(t, 0.0, score)
	})

	t.Run("should be absent when both sides are missing", func(t *testing.T) {
		_, present := scorer.BrandScore(nil, nil)
		assert.False(t, present)
	})
}

func TestAttributeScore(t *testing.T) {
	scorer := NewScorer(models.DefaultMatchConfig())

	t.Run("should be absent when no attributes on either side", func(t *testing.T) {
		source := &models.CatalogItem{}
		target := &models.CatalogItem{}
		_, present := scorer.AttributeScore(source, target)
		assert.False(t, present)
	})

	t.Run("should score 1 when the only present component matches", func(t *testing.T) {
		source := &models.CatalogItem{Brand: strPtr("Chanel")}
		target := &models.CatalogItem{Brand: strPtr("Chanel")}
		score, present := scorer.AttributeScore(source, target)
		assert.True(t, present)
		assert.Equal(t, 1.0, score)
	})

	t.Run("should omit components missing on both sides from the denominator", func(t *testing.T) {
		source := &models.CatalogItem{
			Brand:      strPtr("Chanel"),
			Attributes: models.ItemAttributes{ProductCode: strPtr("NX123")},
		}
		target := &models.CatalogItem{
			Brand:      strPtr("Chanel"),
			Attributes: models.ItemAttributes{ProductCode: strPtr("AB999")},
		}
		// brand 1.0 at weight 0.40, code 0.0 at weight 0.35, variants omitted
		score, present := scorer.AttributeScore(source, target)
		assert.True(t, present)
		assert.InDelta(t, 0.40/0.75, score, 1e-9)
	})

	t.Run("should compare codes case-insensitively", func(t *testing.T) {
		source := &models.CatalogItem{Attributes: models.ItemAttributes{ProductCode: strPtr("nx123")}}
		target := &models.CatalogItem{Attributes: models.ItemAttributes{ProductCode: strPtr("NX123")}}
		score, present := scorer.AttributeScore(source, target)
		assert.True(t, present)
		assert.Equal(t, 1.0, score)
	})

	t.Run("should score a matching shade over the variant share", func(t *testing.T) {
		source := &models.CatalogItem{Attributes: models.ItemAttributes{Shade: strPtr("04")}}
		target := &models.CatalogItem{Attributes: models.ItemAttributes{Shade: strPtr("04")}}
		score, present := scorer.AttributeScore(source, target)
		assert.True(t, present)
		assert.Equal(t, 1.0, score)
	})

	t.Run("should penalize a component present on one side only", func(t *testing.T) {
		source := &models.CatalogItem{Attributes: models.ItemAttributes{Finish: strPtr("matte")}}
		target := &models.CatalogItem{}
		score, present := scorer.AttributeScore(source, target)
		assert.True(t, present)
		assert.Equal(t, 0.0, score)
	})
}

func TestScorePair(t *testing.T) {
	config := models.DefaultMatchConfig()
	scorer := NewScorer(config)

	t.Run("should combine the three signals with configured weights", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        testItem("Rouge Allure Velvet Lipstick", strPtr("Chanel")),
			Target:        testItem("Rouge Allure Lipstick", strPtr("Chanel")),
			SemanticScore: 0.90,
		}
		scorer.ScorePair(pair, nil)

		// tokens: {rouge allure velvet lipstick} vs {rouge allure lipstick}
		assert.InDelta(t, 0.75, pair.TokenScore, 1e-9)
		assert.Equal(t, 1.0, pair.AttributeScore)
		expected := 0.60*0.90 + 0.25*0.75 + 0.15*1.0
		assert.InDelta(t, expected, pair.CombinedScore, 1e-9)
	})

	t.Run("should rescale over text signals when no attributes exist", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        testItem("Rouge Allure Lipstick", nil),
			Target:        testItem("Rouge Allure Lipstick", nil),
			SemanticScore: 0.90,
		}
		scorer.ScorePair(pair, nil)

		assert.Equal(t, 1.0, pair.TokenScore)
		assert.InDelta(t, (0.60*0.90+0.25*1.0)/0.85, pair.CombinedScore, 1e-9)
	})

	t.Run("should clamp a semantic score above 1", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        testItem("Rouge", nil),
			Target:        testItem("Rouge", nil),
			SemanticScore: 1.3,
		}
		scorer.ScorePair(pair, nil)
		assert.Equal(t, 1.0, pair.SemanticScore)
		assert.LessOrEqual(t, pair.CombinedScore, 1.0)
	})

	t.Run("should use caller-provided source tokens when given", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        testItem("Something Else", nil),
			Target:        testItem("Rouge Allure", nil),
			SemanticScore: 0.5,
		}
		scorer.ScorePair(pair, []string{"allure", "rouge"})
		assert.Equal(t, 1.0, pair.TokenScore)
	})
}

func TestApplyExactOverride(t *testing.T) {
	config := models.DefaultMatchConfig()
	scorer := NewScorer(config)

	t.Run("should lift the score when brands and codes match", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure velvet",
				Attributes:      models.ItemAttributes{ProductCode: strPtr("NX123")},
			},
			Target: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge coco flash",
				Attributes:      models.ItemAttributes{ProductCode: strPtr("nx123")},
			},
			CombinedScore: 0.62,
		}
		scorer.ApplyExactOverride(pair)
		assert.Equal(t, 0.95, pair.CombinedScore)
	})

	t.Run("should lift the score when brands and normalized titles match", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure velvet",
			},
			Target: &models.CatalogItem{
				Brand:           strPtr("chanel"),
				NormalizedTitle: "rouge allure velvet",
			},
			CombinedScore: 0.70,
		}
		scorer.ApplyExactOverride(pair)
		assert.Equal(t, 0.95, pair.CombinedScore)
	})

	t.Run("should never lower a score already above the override", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure",
			},
			Target: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure",
			},
			CombinedScore: 0.98,
		}
		scorer.ApplyExactOverride(pair)
		assert.Equal(t, 0.98, pair.CombinedScore)
	})

	t.Run("should be idempotent", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure",
			},
			Target: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure",
			},
			CombinedScore: 0.40,
		}
		scorer.ApplyExactOverride(pair)
		scorer.ApplyExactOverride(pair)
		assert.Equal(t, 0.95, pair.CombinedScore)
	})

	t.Run("should not trigger without a brand match", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source: &models.CatalogItem{
				Brand:           strPtr("Chanel"),
				NormalizedTitle: "rouge allure",
			},
			Target: &models.CatalogItem{
				Brand:           strPtr("Dior"),
				NormalizedTitle: "rouge allure",
			},
			CombinedScore: 0.40,
		}
		scorer.ApplyExactOverride(pair)
		assert.Equal(t, 0.40, pair.CombinedScore)
	})

	t.Run("should not trigger on empty normalized titles", func(t *testing.T) {
		pair := &models.CandidatePair{
			Source:        &models.CatalogItem{Brand: strPtr("Chanel")},
			Target:        &models.CatalogItem{Brand: strPtr("Chanel")},
			CombinedScore: 0.40,
		}
		scorer.ApplyExactOverride(pair)
		assert.Equal(t, 0.40, pair.CombinedScore)
	})
}
