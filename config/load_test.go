package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fern-api", cfg.AppName)
	assert.Equal(t, 3004, cfg.Port)
	assert.Equal(t, "fern", cfg.DatabaseName)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
	assert.Equal(t, "fern.catalog.items", cfg.KafkaInputTopic)
	assert.Equal(t, "fern.match.results", cfg.KafkaOutputTopic)
	assert.Equal(t, 0.60, cfg.MatchSemanticWeight)
	assert.Equal(t, 0.25, cfg.MatchTokenWeight)
	assert.Equal(t, 0.15, cfg.MatchAttributeWeight)
	assert.Equal(t, 100, cfg.MatchCandidateLimit)
	assert.Equal(t, 8, cfg.MatchWorkerCount)
	assert.False(t, cfg.GraphDBEnabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_NAME", "fern_test")
	t.Setenv("PRETTY_LOGS", "true")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30s")
	t.Setenv("MATCH_SEMANTIC_WEIGHT", "0.5")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "fern_test", cfg.DatabaseName)
	assert.True(t, cfg.PrettyLogs)
	assert.Equal(t, 30*time.Second, cfg.DatabaseConnMaxLifetime)
	assert.Equal(t, 0.5, cfg.MatchSemanticWeight)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}
