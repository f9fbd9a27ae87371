package progress

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// JobGetter reads the durable job row
type JobGetter interface {
	Get(ctx context.Context, tenantID, id string) (*models.Job, error)
}

// Reader serves progress polls, cache first with a durable fallback
type Reader struct {
	cache  Cache
	jobs   JobGetter
	logger ectologger.Logger
}

// NewReader creates a progress reader
func NewReader(cache Cache, jobs JobGetter, logger ectologger.Logger) *Reader {
	return &Reader{
		cache:  cache,
		jobs:   jobs,
		logger: logger,
	}
}

// Get returns the freshest snapshot available. A cache miss is normal after
// the TTL or a restart; the job row still answers, just without rate and ETA.
func (r *Reader) Get(ctx context.Context, tenantID, jobID string) (*models.JobProgressSnapshot, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, keyPrefix+jobID)
		if err == nil && raw != "" {
			var snapshot models.JobProgressSnapshot
			if err := json.Unmarshal([]byte(raw), &snapshot); err == nil {
				return &snapshot, nil
			}
			r.logger.WithContext(ctx).Warn("Discarding undecodable progress snapshot")
		}
	}

	j, err := r.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}

	var counters models.JobCounters
	if len(j.Counters) > 0 {
		_ = json.Unmarshal(j.Counters, &counters)
	}

	msg, _ := json.Marshal(counters)
	snapshot := &models.JobProgressSnapshot{
		JobID:           j.ID,
		Stage:           j.Stage,
		ProcessedCount:  int64(j.ProcessedCount),
		TotalCount:      int64(j.TotalCount),
		Counters:        counters,
		CountersMessage: string(msg),
		UpdatedAt:       j.UpdatedAt,
	}
	if j.LastError != nil {
		snapshot.LastError = *j.LastError
	}
	return snapshot, nil
}
