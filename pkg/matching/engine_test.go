package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeRetriever struct {
	neighbors []models.Neighbor
	err       error
	calls     int
	gotSide   models.ItemSide
	gotLimit  int
}

func (f *fakeRetriever) NearestNeighbors(_ context.Context, _, _ string, side models.ItemSide, _ []float32, limit int) ([]models.Neighbor, error) {
	f.calls++
	f.gotSide = side
	f.gotLimit = limit
	return f.neighbors, f.err
}

type fakeResultWriter struct {
	results []*models.MatchResult
	err     error
}

func (f *fakeResultWriter) Upsert(_ context.Context, result *models.MatchResult) error {
	if f.err != nil {
		return f.err
	}
	f.results = append(f.results, result)
	return nil
}

type fakeRefiner struct {
	refined *RefinedScore
	err     error
	calls   int
}

func (f *fakeRefiner) Refine(_ context.Context, _ *models.CandidatePair) (*RefinedScore, error) {
	f.calls++
	return f.refined, f.err
}

type fakeVisualText struct {
	text  string
	err   error
	calls int
}

func (f *fakeVisualText) ExtractText(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func sourceItem(title string) *models.CatalogItem {
	return &models.CatalogItem{
		ID:        "src-1",
		TenantID:  "tenant-1",
		JobID:     "job-1",
		Side:      models.ItemSideSource,
		Title:     title,
		Embedding: []float32{0.1, 0.2, 0.3},
	}
}

func neighbor(id, title string, similarity float64) models.Neighbor {
	return models.Neighbor{
		Item: &models.CatalogItem{
			ID:       id,
			TenantID: "tenant-1",
			JobID:    "job-1",
			Side:     models.ItemSideTarget,
			Title:    title,
		},
		Similarity: similarity,
	}
}

func TestMatchItem(t *testing.T) {
	config := models.DefaultMatchConfig()

	t.Run("should persist an embedding-failed no-match when the source has no vector", func(t *testing.T) {
		retriever := &fakeRetriever{}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, nil)

		source := sourceItem("Rouge Allure Lipstick")
		source.Embedding = nil

		result, err := engine.MatchItem(context.Background(), source)
		require.NoError(t, err)

		assert.True(t, result.IsNoMatch)
		require.NotNil(t, result.NoMatchReason)
		assert.Equal(t, NoMatchReasonEmbeddingFailed, *result.NoMatchReason)
		assert.Equal(t, 0, retriever.calls)
		assert.Len(t, writer.results, 1)
	})

	t.Run("should persist a retrieval-failed no-match when the vector store errors", func(t *testing.T) {
		retriever := &fakeRetriever{err: errors.New("vector store down")}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)

		assert.True(t, result.IsNoMatch)
		require.NotNil(t, result.NoMatchReason)
		assert.Equal(t, NoMatchReasonRetrievalFailed, *result.NoMatchReason)
		assert.Len(t, writer.results, 1)
	})

	t.Run("should persist a no-candidates no-match for an empty retrieval", func(t *testing.T) {
		retriever := &fakeRetriever{}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)

		assert.True(t, result.IsNoMatch)
		require.NotNil(t, result.NoMatchReason)
		assert.Equal(t, NoMatchReasonNoCandidates, *result.NoMatchReason)
		assert.Len(t, writer.results, 1)
	})

	t.Run("should query target-side candidates with the configured limit", func(t *testing.T) {
		retriever := &fakeRetriever{}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, nil)

		_, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)

		assert.Equal(t, models.ItemSideTarget, retriever.gotSide)
		assert.Equal(t, config.CandidateLimit, retriever.gotLimit)
	})

	t.Run("should score candidates and persist the best match", func(t *testing.T) {
		retriever := &fakeRetriever{neighbors: []models.Neighbor{
			neighbor("target-far", "Unrelated Mascara", 0.40),
			neighbor("target-best", "Rouge Allure Lipstick", 0.95),
		}}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)

		require.NotNil(t, result.BestTargetItemID)
		assert.Equal(t, "target-best", *result.BestTargetItemID)
		assert.False(t, result.IsNoMatch)
		assert.Len(t, result.TopCandidates, 2)
		assert.Equal(t, "target-best", result.TopCandidates[0].TargetItemID)
		require.Len(t, writer.results, 1)
		assert.Equal(t, result, writer.results[0])
	})

	t.Run("should return the error when persistence fails", func(t *testing.T) {
		retriever := &fakeRetriever{neighbors: []models.Neighbor{
			neighbor("target-1", "Rouge Allure Lipstick", 0.95),
		}}
		writer := &fakeResultWriter{err: errors.New("insert failed")}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestMatchItemRefinement(t *testing.T) {
	config := models.DefaultMatchConfig()

	// identical titles without brands land at (0.60*0.90+0.25)/0.85, inside
	// the default refine band
	borderline := []models.Neighbor{neighbor("target-1", "Rouge Allure Lipstick", 0.90)}

	t.Run("should adopt the refined score for borderline pairs", func(t *testing.T) {
		refiner := &fakeRefiner{refined: &RefinedScore{Score: 0.85, Rationale: "same product line"}}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), &fakeRetriever{neighbors: borderline}, writer, config, refiner, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)

		assert.Equal(t, 1, refiner.calls)
		assert.InDelta(t, 0.85, result.CombinedScore, 1e-9)
	})

	t.Run("should keep the original score when refinement fails", func(t *testing.T) {
		refiner := &fakeRefiner{err: errors.New("refiner timeout")}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), &fakeRetriever{neighbors: borderline}, writer, config, refiner, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)

		assert.Equal(t, 1, refiner.calls)
		assert.InDelta(t, (0.60*0.90+0.25)/0.85, result.CombinedScore, 1e-9)
	})

	t.Run("should keep the original score when refinement returns nil", func(t *testing.T) {
		refiner := &fakeRefiner{}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), &fakeRetriever{neighbors: borderline}, writer, config, refiner, nil)

		result, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)
		assert.InDelta(t, (0.60*0.90+0.25)/0.85, result.CombinedScore, 1e-9)
	})

	t.Run("should not consult the refiner outside the band", func(t *testing.T) {
		refiner := &fakeRefiner{refined: &RefinedScore{Score: 0.99}}
		writer := &fakeResultWriter{}
		lowScore := []models.Neighbor{neighbor("target-1", "Unrelated Mascara", 0.20)}
		engine := NewEngine(noopLogger(), &fakeRetriever{neighbors: lowScore}, writer, config, refiner, nil)

		_, err := engine.MatchItem(context.Background(), sourceItem("Rouge Allure Lipstick"))
		require.NoError(t, err)
		assert.Equal(t, 0, refiner.calls)
	})
}

func TestMatchItemVisualText(t *testing.T) {
	config := models.DefaultMatchConfig()
	imageURL := "https://cdn.example.com/item.jpg"

	t.Run("should augment source tokens with extracted text", func(t *testing.T) {
		visual := &fakeVisualText{text: "Rouge Allure"}
		writer := &fakeResultWriter{}
		retriever := &fakeRetriever{neighbors: []models.Neighbor{
			neighbor("target-1", "Gloss Rouge Allure", 0.90),
		}}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, visual)

		source := sourceItem("Gloss")
		source.ImageURL = &imageURL

		result, err := engine.MatchItem(context.Background(), source)
		require.NoError(t, err)

		assert.Equal(t, 1, visual.calls)
		// merged tokens fully overlap the target title
		assert.InDelta(t, (0.60*0.90+0.25)/0.85, result.CombinedScore, 1e-9)
	})

	t.Run("should fall back to text-only scoring when extraction fails", func(t *testing.T) {
		visual := &fakeVisualText{err: errors.New("ocr unavailable")}
		writer := &fakeResultWriter{}
		retriever := &fakeRetriever{neighbors: []models.Neighbor{
			neighbor("target-1", "Gloss Rouge Allure", 0.90),
		}}
		engine := NewEngine(noopLogger(), retriever, writer, config, nil, visual)

		source := sourceItem("Gloss")
		source.ImageURL = &imageURL

		result, err := engine.MatchItem(context.Background(), source)
		require.NoError(t, err)

		assert.Equal(t, 1, visual.calls)
		assert.InDelta(t, (0.60*0.90+0.25*(1.0/3.0))/0.85, result.CombinedScore, 1e-9)
	})

	t.Run("should not call the extractor without an image", func(t *testing.T) {
		visual := &fakeVisualText{text: "Rouge"}
		writer := &fakeResultWriter{}
		engine := NewEngine(noopLogger(), &fakeRetriever{}, writer, config, nil, visual)

		_, err := engine.MatchItem(context.Background(), sourceItem("Gloss"))
		require.NoError(t, err)
		assert.Equal(t, 0, visual.calls)
	})
}
