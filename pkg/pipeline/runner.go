// Package pipeline drives a matching job through its stages
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/embedding"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/progress"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// EmbedBatchSize bounds one provider call
	EmbedBatchSize = 64

	// ListPageSize bounds one source-item page during scoring
	ListPageSize = 500
)

// ErrSystemicFailure aborts a run when the failure rate points at an outage
// rather than bad items
var ErrSystemicFailure = errors.New("failure rate exceeds abort threshold")

// ItemStore is the catalog item persistence the pipeline depends on
type ItemStore interface {
	ListByJobSide(ctx context.Context, tenantID, jobID string, side models.ItemSide, limit, offset int) ([]*models.CatalogItem, error)
	CountByJobSide(ctx context.Context, tenantID, jobID string, side models.ItemSide) (int, error)
	ListMissingEmbeddings(ctx context.Context, tenantID, jobID string, side models.ItemSide, limit int) ([]*models.CatalogItem, error)
	SetEmbedding(ctx context.Context, tenantID, id string, vector []float32) error
	MarkEmbeddingFailed(ctx context.Context, tenantID, id string) error
	GetEmbedding(ctx context.Context, tenantID, id string) ([]float32, error)
}

// JobStore is the job persistence the pipeline depends on
type JobStore interface {
	Get(ctx context.Context, tenantID, id string) (*models.Job, error)
	SetStage(ctx context.Context, tenantID, id string, stage models.JobStage) error
	SetConfig(ctx context.Context, tenantID, id string, config models.MatchConfig) error
	SetTotal(ctx context.Context, tenantID, id string, total int) error
	SaveProgress(ctx context.Context, tenantID, id string, processed int64, counters models.JobCounters) error
	MarkFailed(ctx context.Context, tenantID, id string, cause string) error
}

// Matcher evaluates one source item end to end
type Matcher interface {
	MatchItem(ctx context.Context, source *models.CatalogItem) (*models.MatchResult, error)
}

// EventEmitter publishes run outcomes downstream. Emission failures are
// logged, never fatal to the run.
type EventEmitter interface {
	ResultCreated(ctx context.Context, job *models.Job, result *models.MatchResult) error
	JobCompleted(ctx context.Context, job *models.Job, counters models.JobCounters) error
}

// Projector mirrors a finished job's confirmed matches into the graph.
// Projection is best effort; failures never fail the run.
type Projector interface {
	ProjectJob(ctx context.Context, job *models.Job) error
}

// MatcherFactory builds a matcher bound to a job's config snapshot
type MatcherFactory func(config models.MatchConfig) Matcher

// Runner owns job execution. One run per job at a time; a second start while
// a run is live is a conflict.
type Runner struct {
	logger    ectologger.Logger
	items     ItemStore
	jobs      JobStore
	embedder  embedding.Client
	cache     progress.Cache
	emitter   EventEmitter
	projector Projector
	matcher   MatcherFactory

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a pipeline runner. cache, emitter and projector may be nil.
func NewRunner(
	logger ectologger.Logger,
	items ItemStore,
	jobs JobStore,
	embedder embedding.Client,
	cache progress.Cache,
	emitter EventEmitter,
	projector Projector,
	matcher MatcherFactory,
) *Runner {
	return &Runner{
		logger:    logger,
		items:     items,
		jobs:      jobs,
		embedder:  embedder,
		cache:     cache,
		emitter:   emitter,
		projector: projector,
		matcher:   matcher,
		running:   make(map[string]context.CancelFunc),
	}
}

// Start snapshots the config and launches the run in the background. The
// snapshot is what the whole run scores with; later config edits wait for
// the next run.
func (r *Runner) Start(ctx context.Context, tenantID, jobID string, override *models.MatchConfig) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Runner.Start")
	defer span.End()

	job, err := r.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, live := r.running[jobID]; live {
		r.mu.Unlock()
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "job %s is already running", jobID)
	}
	r.mu.Unlock()

	config := models.DefaultMatchConfig()
	if len(job.Config) > 2 {
		if err := json.Unmarshal(job.Config, &config); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode stored job config")
		}
	}
	if override != nil {
		config = *override
	}
	if err := config.Validate(); err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid match config: %v", err)
	}

	if err := r.jobs.SetConfig(ctx, tenantID, jobID, config); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r.mu.Lock()
	r.running[jobID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.running, jobID)
			r.mu.Unlock()
		}()
		r.run(runCtx, job, config)
	}()

	return job, nil
}

// Cancel stops a live run. The run halts between items, never mid-item.
func (r *Runner) Cancel(tenantID, jobID string) error {
	r.mu.Lock()
	cancel, live := r.running[jobID]
	r.mu.Unlock()

	if !live {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "job %s is not running", jobID)
	}
	cancel()
	return nil
}

// IsRunning reports whether a job has a live run
func (r *Runner) IsRunning(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, live := r.running[jobID]
	return live
}

// Shutdown waits for live runs to notice cancellation and exit
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.running {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, job *models.Job, config models.MatchConfig) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Runner.run")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": job.TenantID,
		"job_id":    job.ID,
	})

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	tracker := progress.NewTracker(job.TenantID, job.ID, 0, r.cache, r.jobs, r.logger)

	total, err := r.items.CountByJobSide(ctx, job.TenantID, job.ID, models.ItemSideSource)
	if err != nil {
		r.fail(ctx, job, tracker, err)
		return
	}
	tracker.SetTotal(int64(total))
	if err := r.jobs.SetTotal(ctx, job.TenantID, job.ID, total); err != nil {
		r.fail(ctx, job, tracker, err)
		return
	}

	log.WithFields(map[string]any{"total": total}).Info("Starting matching run")

	tracker.SetStage(ctx, models.StageEmbeddingSource)
	if err := r.embedSide(ctx, job, config, models.ItemSideSource, tracker); err != nil {
		r.fail(ctx, job, tracker, err)
		return
	}

	tracker.SetStage(ctx, models.StageEmbeddingTarget)
	if err := r.embedSide(ctx, job, config, models.ItemSideTarget, tracker); err != nil {
		r.fail(ctx, job, tracker, err)
		return
	}

	tracker.SetStage(ctx, models.StageRetrievingCandidates)
	tracker.SetStage(ctx, models.StageScoring)
	if err := r.scoreSourceItems(ctx, job, config, tracker); err != nil {
		r.fail(ctx, job, tracker, err)
		return
	}

	tracker.SetStage(ctx, models.StageClassifying)
	if r.projector != nil {
		if err := r.projector.ProjectJob(ctx, job); err != nil {
			log.WithError(err).Warn("Failed to project confirmed matches")
		}
	}

	counters := tracker.Counters()
	if r.emitter != nil {
		if err := r.emitter.JobCompleted(ctx, job, counters); err != nil {
			log.WithError(err).Warn("Failed to emit job completed event")
		}
	}

	tracker.SetStage(ctx, models.StageCompleted)
	tracker.Flush(ctx)
	metrics.RecordJobFinished(job.TenantID, "completed")
	log.WithFields(map[string]any{
		"processed":       tracker.Processed(),
		"matched":         counters.Matched,
		"high_confidence": counters.HighConfidence,
		"needs_review":    counters.NeedsReview,
		"no_match":        counters.NoMatch,
	}).Info("Matching run completed")
}

func (r *Runner) fail(ctx context.Context, job *models.Job, tracker *progress.Tracker, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		r.logger.WithContext(ctx).WithFields(map[string]any{"job_id": job.ID}).Info("Matching run cancelled")
		cause = context.Canceled
		metrics.RecordJobFinished(job.TenantID, "cancelled")
	} else {
		r.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{"job_id": job.ID}).Error("Matching run failed")
		metrics.RecordJobFinished(job.TenantID, "failed")
	}

	// Persist with a fresh context, the run context may already be dead
	persistCtx := context.WithoutCancel(ctx)
	tracker.SetError(cause.Error())
	if err := r.jobs.MarkFailed(persistCtx, job.TenantID, job.ID, cause.Error()); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark job failed")
	}
	tracker.SetStage(persistCtx, models.StageFailed)
	tracker.Flush(persistCtx)
}

// embedSide embeds every item on one side that has no stored vector. Items
// that fail to embed are marked and skipped; a failure rate past the abort
// threshold fails the whole run.
func (r *Runner) embedSide(ctx context.Context, job *models.Job, config models.MatchConfig, side models.ItemSide, tracker *progress.Tracker) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Runner.embedSide")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id": job.ID,
		"side":   side,
	})

	var attempts, failures int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := r.items.ListMissingEmbeddings(ctx, job.TenantID, job.ID, side, EmbedBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		texts := make([]string, len(batch))
		for i, item := range batch {
			matching.PrepareItem(item)
			texts[i] = item.NormalizedTitle
		}

		vectors, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.WithError(err).Warn("Batch embedding failed, retrying items individually")
			for _, item := range batch {
				attempts++
				if embErr := r.embedOne(ctx, item, tracker); embErr != nil {
					failures++
				}
				if aborted(attempts, failures, config) {
					return fmt.Errorf("%w: %d of %d embeddings failed", ErrSystemicFailure, failures, attempts)
				}
			}
			continue
		}

		for i, item := range batch {
			attempts++
			if err := r.items.SetEmbedding(ctx, job.TenantID, item.ID, vectors[i]); err != nil {
				failures++
				tracker.SetError(err.Error())
			}
			if aborted(attempts, failures, config) {
				return fmt.Errorf("%w: %d of %d embeddings failed", ErrSystemicFailure, failures, attempts)
			}
		}
	}
}

func (r *Runner) embedOne(ctx context.Context, item *models.CatalogItem, tracker *progress.Tracker) error {
	vector, err := r.embedder.Embed(ctx, item.NormalizedTitle)
	if err != nil {
		tracker.SetError(err.Error())
		if markErr := r.items.MarkEmbeddingFailed(ctx, item.TenantID, item.ID); markErr != nil {
			return markErr
		}
		return err
	}
	return r.items.SetEmbedding(ctx, item.TenantID, item.ID, vector)
}

// scoreSourceItems runs the worker pool over every source item. Each item is
// retrieved, scored, classified and persisted independently; one bad item
// never takes down the run.
func (r *Runner) scoreSourceItems(ctx context.Context, job *models.Job, config models.MatchConfig, tracker *progress.Tracker) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Runner.scoreSourceItems")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"job_id": job.ID})

	matcher := r.matcher(config)
	itemsCh := make(chan *models.CatalogItem, config.Workers*2)
	poolCtx, cancelPool := context.WithCancel(ctx)
	defer cancelPool()

	var attempts, failures atomic.Int64
	var systemic atomic.Bool

	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemsCh {
				// Cancellation lands between items, a started item finishes
				if poolCtx.Err() != nil {
					continue
				}

				ok := r.scoreOne(poolCtx, job, matcher, tracker, item, log)

				a := attempts.Add(1)
				f := failures.Load()
				if !ok {
					f = failures.Add(1)
				}
				if aborted(a, f, config) {
					systemic.Store(true)
					cancelPool()
				}
			}
		}()
	}

	feedErr := r.feedSourceItems(poolCtx, job, itemsCh)
	close(itemsCh)
	wg.Wait()

	if systemic.Load() {
		return fmt.Errorf("%w: %d of %d items failed", ErrSystemicFailure, failures.Load(), attempts.Load())
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if feedErr != nil {
		return feedErr
	}
	return nil

}

func (r *Runner) scoreOne(ctx context.Context, job *models.Job, matcher Matcher, tracker *progress.Tracker, item *models.CatalogItem, log ectologger.Logger) bool {
	vector, err := r.items.GetEmbedding(ctx, job.TenantID, item.ID)
	if err != nil {
		log.WithError(err).WithFields(map[string]any{"item_id": item.ID}).Warn("Failed to load embedding, scoring as embedding-failed")
	}
	item.Embedding = vector

	start := time.Now()
	result, err := matcher.MatchItem(ctx, item)
	if err != nil {
		tracker.SetError(err.Error())
		log.WithError(err).WithFields(map[string]any{"item_id": item.ID}).Error("Failed to match item")
		return false
	}
	metrics.RecordItemScored(job.TenantID, string(result.ConfidenceTier), time.Since(start).Seconds())

	tracker.RecordResult(ctx, result)
	if r.emitter != nil {
		if err := r.emitter.ResultCreated(ctx, job, result); err != nil {
			log.WithError(err).Debug("Failed to emit result event")
		}
	}
	return true
}

func (r *Runner) feedSourceItems(ctx context.Context, job *models.Job, itemsCh chan<- *models.CatalogItem) error {
	offset := 0
	for {
		page, err := r.items.ListByJobSide(ctx, job.TenantID, job.ID, models.ItemSideSource, ListPageSize, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, item := range page {
			select {
			case itemsCh <- item:
			case <-ctx.Done():
				return nil
			}
		}
		offset += len(page)
	}
}

func aborted(attempts, failures int64, config models.MatchConfig) bool {
	if attempts < int64(config.FailureMinSample) {
		return false
	}
	return float64(failures)/float64(attempts) >= config.FailureAbortFraction
}
