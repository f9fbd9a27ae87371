// Package embedding adapts the external text-embedding provider
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// DefaultDimensions is the expected vector dimensionality
	DefaultDimensions = 384

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// Client is the embedding-provider contract the pipeline depends on.
// Implementations must be deterministic for identical input within a job.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Config holds embedding client configuration
type Config struct {
	URL        string
	APIKey     string
	Dimensions int
	Timeout    time.Duration
}

// DefaultConfig returns default embedding client configuration
func DefaultConfig() Config {
	return Config{
		Dimensions: DefaultDimensions,
		Timeout:    DefaultTimeout,
	}
}

// HTTPClient calls an HTTP embedding provider
type HTTPClient struct {
	client *http.Client
	logger ectologger.Logger
	config Config
}

// NewHTTPClient creates a new HTTP embedding client
func NewHTTPClient(config Config, logger ectologger.Logger) *HTTPClient {
	if config.Dimensions == 0 {
		config.Dimensions = DefaultDimensions
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &HTTPClient{
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
		config: config,
	}
}

// Dimensions returns the provider's vector dimensionality
func (c *HTTPClient) Dimensions() int {
	return c.config.Dimensions
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed embeds a single text
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds a batch of texts in one provider call. Failures are
// returned to the caller, never retried here; the pipeline decides whether
// a failure is per-item or systemic.
func (c *HTTPClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "embedding.HTTPClient.EmbedBatch")
	defer span.End()

	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordEmbeddingRequest("error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithError(err).Error("Embedding request failed")
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if len(raw) > MaxResponseSize {
		return nil, fmt.Errorf("embedding response too large: %d bytes (max %d)", len(raw), MaxResponseSize)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RecordEmbeddingRequest(fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"status":     resp.StatusCode,
			"batch_size": len(texts),
		}).Error("Embedding provider returned an error")
		return nil, fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(parsed.Embeddings))
	}
	for i, vec := range parsed.Embeddings {
		if len(vec) != c.config.Dimensions {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(vec), c.config.Dimensions)
		}
	}

	metrics.RecordEmbeddingRequest("ok", time.Since(start).Seconds())
	c.logger.WithContext(ctx).Debugf("Embedded %d texts in %s", len(texts), time.Since(start))

	return parsed.Embeddings, nil
}
