package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func vectorOf(dim int, fill float32) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = fill
	}
	return vec
}

func newProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Config) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, Config{URL: server.URL, Dimensions: 4}
}

func TestEmbedBatch(t *testing.T) {
	t.Run("should return one vector per input", func(t *testing.T) {
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			var req embedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"rouge allure", "velvet matte"}, req.Inputs)

			vectors := make([][]float32, len(req.Inputs))
			for i := range vectors {
				vectors[i] = vectorOf(4, float32(i))
			}
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: vectors})
		})

		client := NewHTTPClient(config, noopLogger())
		vectors, err := client.EmbedBatch(context.Background(), []string{"rouge allure", "velvet matte"})
		require.NoError(t, err)

		require.Len(t, vectors, 2)
		assert.Equal(t, vectorOf(4, 0), vectors[0])
		assert.Equal(t, vectorOf(4, 1), vectors[1])
	})

	t.Run("should send the api key as a bearer token", func(t *testing.T) {
		var gotAuth string
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vectorOf(4, 0)}})
		})
		config.APIKey = "secret-key"

		client := NewHTTPClient(config, noopLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"rouge"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret-key", gotAuth)
	})

	t.Run("should omit the auth header without an api key", func(t *testing.T) {
		var gotAuth string
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vectorOf(4, 0)}})
		})

		client := NewHTTPClient(config, noopLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"rouge"})
		require.NoError(t, err)
		assert.Empty(t, gotAuth)
	})

	t.Run("should error on a non-200 status", func(t *testing.T) {
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		client := NewHTTPClient(config, noopLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"rouge"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})

	t.Run("should error on a vector count mismatch", func(t *testing.T) {
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vectorOf(4, 0)}})
		})

		client := NewHTTPClient(config, noopLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"rouge", "velvet"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "count mismatch")
	})

	t.Run("should error on a dimension mismatch", func(t *testing.T) {
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vectorOf(3, 0)}})
		})

		client := NewHTTPClient(config, noopLogger())
		_, err := client.EmbedBatch(context.Background(), []string{"rouge"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimensions")
	})

	t.Run("should return nil for an empty batch without calling the provider", func(t *testing.T) {
		called := false
		_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		client := NewHTTPClient(config, noopLogger())
		vectors, err := client.EmbedBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, vectors)
		assert.False(t, called)
	})
}

func TestEmbed(t *testing.T) {
	_, config := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vectorOf(4, 0.5)}})
	})

	client := NewHTTPClient(config, noopLogger())
	vector, err := client.Embed(context.Background(), "rouge allure")
	require.NoError(t, err)
	assert.Equal(t, vectorOf(4, 0.5), vector)
}

func TestDimensionsDefault(t *testing.T) {
	client := NewHTTPClient(Config{}, noopLogger())
	assert.Equal(t, DefaultDimensions, client.Dimensions())
}
