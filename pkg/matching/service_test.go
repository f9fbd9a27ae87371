package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestQuickScore(t *testing.T) {
	service := NewService(noopLogger(), models.DefaultMatchConfig())

	t.Run("should score identical titles with matching brands as exact", func(t *testing.T) {
		resp := service.QuickScore(context.Background(), QuickScoreRequest{
			SourceTitle: "Rouge Allure Velvet Lipstick",
			TargetTitle: "Rouge Allure Velvet Lipstick",
			SourceBrand: strPtr("Chanel"),
			TargetBrand: strPtr("Chanel"),
		})

		assert.Equal(t, 1.0, resp.TokenScore)
		assert.Equal(t, models.TierExactMatch, resp.ConfidenceTier)
		assert.False(t, resp.NeedsReview)
		assert.Equal(t, "", resp.Explanation)
	})

	t.Run("should apply the exact override on matching product codes", func(t *testing.T) {
		resp := service.QuickScore(context.Background(), QuickScoreRequest{
			SourceTitle: "Gloss NX123 Coral",
			TargetTitle: "Lip Colour NX123",
			SourceBrand: strPtr("Chanel"),
			TargetBrand: strPtr("Chanel"),
		})

		assert.GreaterOrEqual(t, resp.CombinedScore, 0.95)
		assert.Equal(t, models.TierExactMatch, resp.ConfidenceTier)
	})

	t.Run("should score disjoint titles as no match", func(t *testing.T) {
		resp := service.QuickScore(context.Background(), QuickScoreRequest{
			SourceTitle: "Rouge Allure Lipstick",
			TargetTitle: "Volume Mascara Noir",
		})

		assert.Equal(t, 0.0, resp.TokenScore)
		assert.Equal(t, models.TierNoMatch, resp.ConfidenceTier)
		assert.True(t, resp.NeedsReview)
		assert.NotEmpty(t, resp.Explanation)
	})

	t.Run("should fall back to the token score when no attributes exist", func(t *testing.T) {
		resp := service.QuickScore(context.Background(), QuickScoreRequest{
			SourceTitle: "Velvet Lip Tint",
			TargetTitle: "Velvet Lip Gloss",
		})

		assert.InDelta(t, 0.5, resp.TokenScore, 1e-9)
		assert.InDelta(t, resp.TokenScore, resp.CombinedScore, 1e-9)
	})

	t.Run("should weigh brand mismatches into the combined score", func(t *testing.T) {
		matched := service.QuickScore(context.Background(), QuickScoreRequest{
			SourceTitle: "Rouge Allure Lipstick",
			TargetTitle: "Rouge Allure Lipstick",
			SourceBrand: strPtr("Chanel"),
			TargetBrand: strPtr("Chanel"),
		})
		mismatched := service.QuickScore(context.Background(), QuickScoreRequest{
			SourceTitle: "Rouge Allure Lipstick",
			TargetTitle: "Rouge Allure Lipstick",
			SourceBrand: strPtr("Chanel"),
			TargetBrand: strPtr("Dior"),
		})

		assert.Greater(t, matched.CombinedScore, mismatched.CombinedScore)
	})
}
