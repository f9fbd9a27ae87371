package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

type fakePublisher struct {
	keys       []string
	eventTypes []string
	tenants    []string
	values     [][]byte
	err        error
}

func (f *fakePublisher) Publish(_ context.Context, key, eventType, tenantID string, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.eventTypes = append(f.eventTypes, eventType)
	f.tenants = append(f.tenants, tenantID)
	f.values = append(f.values, value)
	return nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestResultCreated(t *testing.T) {
	t.Run("should publish keyed by source item", func(t *testing.T) {
		publisher := &fakePublisher{}
		emitter := NewEmitter(publisher, noopLogger())

		targetID := "target-1"
		result := &models.MatchResult{
			TenantID:         "tenant-1",
			JobID:            "job-1",
			SourceItemID:     "src-1",
			BestTargetItemID: &targetID,
			CombinedScore:    0.91,
			ConfidenceTier:   models.TierHighConfidence,
		}

		require.NoError(t, emitter.ResultCreated(context.Background(), &models.Job{ID: "job-1"}, result))

		require.Len(t, publisher.values, 1)
		assert.Equal(t, "src-1", publisher.keys[0])
		assert.Equal(t, "match.result.created", publisher.eventTypes[0])
		assert.Equal(t, "tenant-1", publisher.tenants[0])

		var event ResultCreatedEvent
		require.NoError(t, json.Unmarshal(publisher.values[0], &event))
		assert.Equal(t, EventTypeResultCreated, event.EventType)
		assert.Equal(t, SchemaVersion, event.SchemaVersion)
		assert.Equal(t, "job-1", event.JobID)
		require.NotNil(t, event.BestTargetItemID)
		assert.Equal(t, "target-1", *event.BestTargetItemID)
		assert.Equal(t, 0.91, event.CombinedScore)
		assert.NotEmpty(t, event.CorrelationID)
	})

	t.Run("should surface publish failures", func(t *testing.T) {
		emitter := NewEmitter(&fakePublisher{err: errors.New("broker down")}, noopLogger())
		err := emitter.ResultCreated(context.Background(), &models.Job{}, &models.MatchResult{})
		assert.Error(t, err)
	})
}

func TestJobCompleted(t *testing.T) {
	publisher := &fakePublisher{}
	emitter := NewEmitter(publisher, noopLogger())

	job := &models.Job{
		ID:         "job-1",
		TenantID:   "tenant-1",
		SourceSite: "site-a",
		TargetSite: "site-b",
		TotalCount: 100,
	}
	counters := models.JobCounters{Matched: 80, NoMatch: 20, NeedsReview: 25}

	require.NoError(t, emitter.JobCompleted(context.Background(), job, counters))

	require.Len(t, publisher.values, 1)
	assert.Equal(t, "job-1", publisher.keys[0])
	assert.Equal(t, "job.completed", publisher.eventTypes[0])

	var event JobCompletedEvent
	require.NoError(t, json.Unmarshal(publisher.values[0], &event))
	assert.Equal(t, "site-a", event.SourceSite)
	assert.Equal(t, "site-b", event.TargetSite)
	assert.Equal(t, 100, event.TotalCount)
	assert.Equal(t, int64(80), event.Counters.Matched)
}
