// Package job persists matching job state and progress
package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var jobColumns = []string{
	"id", "tenant_id", "source_site", "target_site", "stage",
	"total_count", "processed_count", "counters", "config",
	"last_error", "created_at", "updated_at",
}

// Repository handles job persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new job in the pending stage
func (r *Repository) Create(ctx context.Context, tenantID, sourceSite, targetSite string) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":      "Create",
		"tenant_id":   tenantID,
		"source_site": sourceSite,
		"target_site": targetSite,
	})

	now := time.Now().UTC()
	j := &models.Job{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		SourceSite: sourceSite,
		TargetSite: targetSite,
		Stage:      models.StagePending,
		Counters:   json.RawMessage("{}"),
		Config:     json.RawMessage("{}"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("jobs")
	sb.Cols(jobColumns...)
	sb.Values(j.ID, j.TenantID, j.SourceSite, j.TargetSite, string(j.Stage),
		j.TotalCount, j.ProcessedCount, string(j.Counters), string(j.Config),
		j.LastError, j.CreatedAt, j.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create job")
	}

	log.WithFields(map[string]any{"id": j.ID}).Info("Created job")
	return j, nil
}

// Get retrieves a job by ID
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(jobColumns...)
	sb.From("jobs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var j models.Job
	if err := r.db.GetContext(ctx, &j, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get job")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get job")
	}

	return &j, nil
}

// SetStage advances the job to a new stage
func (r *Repository) SetStage(ctx context.Context, tenantID, id string, stage models.JobStage) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.SetStage")
	defer span.End()

	query := `UPDATE jobs SET stage = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
	result, err := r.db.ExecContext(ctx, query, string(stage), time.Now().UTC(), tenantID, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id": id,
			"stage":  stage,
		}).Error("Failed to set job stage")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set job stage")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("job %s not found", id))
	}
	return nil
}

// SetConfig stores the config snapshot the run will use. The snapshot is
// written once at job start so a mid-run config change cannot split the run.
func (r *Repository) SetConfig(ctx context.Context, tenantID, id string, config models.MatchConfig) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.SetConfig")
	defer span.End()

	raw, err := json.Marshal(config)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode job config")
	}

	query := `UPDATE jobs SET config = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
	if _, err := r.db.ExecContext(ctx, query, string(raw), time.Now().UTC(), tenantID, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to set job config")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set job config")
	}
	return nil
}

// SetTotal records how many source items the run covers
func (r *Repository) SetTotal(ctx context.Context, tenantID, id string, total int) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.SetTotal")
	defer span.End()

	query := `UPDATE jobs SET total_count = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
	if _, err := r.db.ExecContext(ctx, query, total, time.Now().UTC(), tenantID, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to set job total")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set job total")
	}
	return nil
}

// SaveProgress persists the processed count and counters. Called on a
// throttle, not per item; the progress cache holds the live view.
func (r *Repository) SaveProgress(ctx context.Context, tenantID, id string, processed int64, counters models.JobCounters) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.SaveProgress")
	defer span.End()

	raw, err := json.Marshal(counters)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode job counters")
	}

	query := `UPDATE jobs SET processed_count = $1, counters = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5`
	if _, err := r.db.ExecContext(ctx, query, processed, string(raw), time.Now().UTC(), tenantID, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to save job progress")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save job progress")
	}
	return nil
}

// MarkFailed moves the job to the failed stage with the causing error
func (r *Repository) MarkFailed(ctx context.Context, tenantID, id string, cause string) error {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.MarkFailed")
	defer span.End()

	query := `UPDATE jobs SET stage = $1, last_error = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5`
	if _, err := r.db.ExecContext(ctx, query, string(models.StageFailed), cause, time.Now().UTC(), tenantID, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id": id,
		}).Error("Failed to mark job failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark job failed")
	}
	return nil
}

// List retrieves recent jobs for a tenant
func (r *Repository) List(ctx context.Context, tenantID string, limit int) ([]models.Job, error) {
	ctx, span := tracing.StartSpan(ctx, "job.Repository.List")
	defer span.End()

	if limit < 1 || limit > 200 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(jobColumns...)
	sb.From("jobs")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list jobs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list jobs")
	}
	return jobs, nil
}
