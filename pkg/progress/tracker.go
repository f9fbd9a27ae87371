// Package progress tracks live job progress with a cache-first read path
package progress

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	keyPrefix = "fern:progress:"

	// CacheTTL bounds how long a stale snapshot can outlive its job
	CacheTTL = 24 * time.Hour

	// PersistInterval throttles durable writes; the cache holds the live view
	PersistInterval = 500 * time.Millisecond
)

// Persister writes durable progress to the job store
type Persister interface {
	SaveProgress(ctx context.Context, tenantID, jobID string, processed int64, counters models.JobCounters) error
	SetStage(ctx context.Context, tenantID, jobID string, stage models.JobStage) error
}

// Cache holds the live snapshot for polling readers
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Tracker accumulates counters for one running job. Counter updates are
// lock-free; persistence is throttled so per-item cost stays flat.
type Tracker struct {
	jobID    string
	tenantID string

	total     atomic.Int64
	processed atomic.Int64

	matched         atomic.Int64
	highConfidence  atomic.Int64
	noMatch         atomic.Int64
	needsReview     atomic.Int64
	embeddingFailed atomic.Int64

	mu          sync.Mutex
	stage       models.JobStage
	startedAt   time.Time
	lastPersist time.Time
	lastError   string

	cache     Cache
	persister Persister
	logger    ectologger.Logger
}

// NewTracker creates a tracker for a job run
func NewTracker(tenantID, jobID string, total int64, cache Cache, persister Persister, logger ectologger.Logger) *Tracker {
	t := &Tracker{
		jobID:     jobID,
		tenantID:  tenantID,
		stage:     models.StagePending,
		startedAt: time.Now().UTC(),
		cache:     cache,
		persister: persister,
		logger:    logger,
	}
	t.total.Store(total)
	return t
}

// SetTotal updates the item count once it is known
func (t *Tracker) SetTotal(total int64) {
	t.total.Store(total)
}

// SetStage advances the stage. Stage changes are rare so they persist
// immediately, bypassing the throttle.
func (t *Tracker) SetStage(ctx context.Context, stage models.JobStage) {
	t.mu.Lock()
	t.stage = stage
	t.mu.Unlock()

	if err := t.persister.SetStage(ctx, t.tenantID, t.jobID, stage); err != nil {
		t.logger.WithContext(ctx).WithError(err).Warn("Failed to persist job stage")
	}
	t.publish(ctx)
	t.persist(ctx)
}

// SetError records the most recent item-level error for the snapshot
func (t *Tracker) SetError(msg string) {
	t.mu.Lock()
	t.lastError = msg
	t.mu.Unlock()
}

// RecordResult folds one item outcome into the counters. Every scored item
// counts as processed; any result that found a candidate counts as matched,
// whatever its tier. A no-match lands in both the no-match count and the
// review queue, and provider failures also land in the embedding-failed
// count.
func (t *Tracker) RecordResult(ctx context.Context, result *models.MatchResult) {
	t.processed.Add(1)

	switch result.ConfidenceTier {
	case models.TierExactMatch, models.TierHighConfidence:
		t.highConfidence.Add(1)
	}

	if result.NeedsReview {
		t.needsReview.Add(1)
	}
	if result.IsNoMatch {
		t.noMatch.Add(1)
		if result.NoMatchReason != nil {
			switch *result.NoMatchReason {
			case matching.NoMatchReasonEmbeddingFailed, matching.NoMatchReasonRetrievalFailed:
				t.embeddingFailed.Add(1)
			}
		}
	} else {
		t.matched.Add(1)
	}

	t.publish(ctx)
	t.maybePersist(ctx)
}

// Counters returns the current counter values
func (t *Tracker) Counters() models.JobCounters {
	return models.JobCounters{
		Matched:         t.matched.Load(),
		HighConfidence:  t.highConfidence.Load(),
		NoMatch:         t.noMatch.Load(),
		NeedsReview:     t.needsReview.Load(),
		EmbeddingFailed: t.embeddingFailed.Load(),
	}
}

// Processed returns how many items have been scored so far
func (t *Tracker) Processed() int64 {
	return t.processed.Load()
}

// Snapshot builds the polled progress view
func (t *Tracker) Snapshot() models.JobProgressSnapshot {
	t.mu.Lock()
	stage := t.stage
	startedAt := t.startedAt
	lastError := t.lastError
	t.mu.Unlock()

	processed := t.processed.Load()
	total := t.total.Load()
	counters := t.Counters()

	elapsed := time.Since(startedAt).Seconds()
	var rate, eta float64
	if elapsed > 0 && processed > 0 {
		rate = float64(processed) / elapsed
		if remaining := total - processed; remaining > 0 && rate > 0 {
			eta = float64(remaining) / rate
		}
	}

	msg, _ := json.Marshal(counters)

	return models.JobProgressSnapshot{
		JobID:           t.jobID,
		Stage:           stage,
		ProcessedCount:  processed,
		TotalCount:      total,
		Rate:            rate,
		ETASeconds:      eta,
		Counters:        counters,
		CountersMessage: string(msg),
		LastError:       lastError,
		UpdatedAt:       time.Now().UTC(),
	}
}

// Flush forces a durable write, used at stage boundaries and job end
func (t *Tracker) Flush(ctx context.Context) {
	t.publish(ctx)
	t.persist(ctx)
}

func (t *Tracker) publish(ctx context.Context) {
	if t.cache == nil {
		return
	}
	snapshot := t.Snapshot()
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := t.cache.Set(ctx, keyPrefix+t.jobID, string(raw), CacheTTL); err != nil {
		t.logger.WithContext(ctx).WithError(err).Debug("Failed to cache progress snapshot")
	}
}

func (t *Tracker) maybePersist(ctx context.Context) {
	t.mu.Lock()
	due := time.Since(t.lastPersist) >= PersistInterval
	if due {
		t.lastPersist = time.Now()
	}
	t.mu.Unlock()

	if due {
		t.persist(ctx)
	}
}

func (t *Tracker) persist(ctx context.Context) {
	if err := t.persister.SaveProgress(ctx, t.tenantID, t.jobID, t.processed.Load(), t.Counters()); err != nil {
		t.logger.WithContext(ctx).WithError(err).Warn("Failed to persist job progress")
	}
}
