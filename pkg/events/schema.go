package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType defines the type of event
type EventType string

const (
	EventTypeResultCreated EventType = "match.result.created"
	EventTypeJobCompleted  EventType = "job.completed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ResultCreatedEvent is emitted when a source item finishes scoring
type ResultCreatedEvent struct {
	BaseEvent
	JobID            string                `json:"job_id"`
	SourceItemID     string                `json:"source_item_id"`
	BestTargetItemID *string               `json:"best_target_item_id,omitempty"`
	CombinedScore    float64               `json:"combined_score"`
	ConfidenceTier   models.ConfidenceTier `json:"confidence_tier"`
	NeedsReview      bool                  `json:"needs_review"`
	IsNoMatch        bool                  `json:"is_no_match"`
	Explanation      string                `json:"explanation,omitempty"`
}

// JobCompletedEvent is emitted once when a matching run finishes
type JobCompletedEvent struct {
	BaseEvent
	JobID      string             `json:"job_id"`
	SourceSite string             `json:"source_site"`
	TargetSite string             `json:"target_site"`
	TotalCount int                `json:"total_count"`
	Counters   models.JobCounters `json:"counters"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
