// Package events publishes match run outcomes to the results topic
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Publisher is the transport the emitter writes through
type Publisher interface {
	Publish(ctx context.Context, key, eventType, tenantID string, value []byte) error
}

// Emitter handles event emission for match runs
type Emitter struct {
	producer Publisher
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// ResultCreated emits a match.result.created event, keyed by source item so
// re-runs of the same item land on the same partition
func (e *Emitter) ResultCreated(ctx context.Context, job *models.Job, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.ResultCreated")
	defer span.End()

	event := ResultCreatedEvent{
		BaseEvent:        NewBaseEvent(EventTypeResultCreated, result.TenantID),
		JobID:            result.JobID,
		SourceItemID:     result.SourceItemID,
		BestTargetItemID: result.BestTargetItemID,
		CombinedScore:    result.CombinedScore,
		ConfidenceTier:   result.ConfidenceTier,
		NeedsReview:      result.NeedsReview,
		IsNoMatch:        result.IsNoMatch,
		Explanation:      result.Explanation,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := e.producer.Publish(ctx, result.SourceItemID, string(EventTypeResultCreated), result.TenantID, value); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.result.created event")
		return err
	}
	return nil
}

// JobCompleted emits a job.completed event with the final counters
func (e *Emitter) JobCompleted(ctx context.Context, job *models.Job, counters models.JobCounters) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.JobCompleted")
	defer span.End()

	event := JobCompletedEvent{
		BaseEvent:  NewBaseEvent(EventTypeJobCompleted, job.TenantID),
		JobID:      job.ID,
		SourceSite: job.SourceSite,
		TargetSite: job.TargetSite,
		TotalCount: job.TotalCount,
		Counters:   counters,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := e.producer.Publish(ctx, job.ID, string(EventTypeJobCompleted), job.TenantID, value); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit job.completed event")
		return err
	}
	return nil
}
