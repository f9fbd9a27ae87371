// Package matchresult persists per-source-item match outcomes
package matchresult

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var resultColumns = []string{
	"id", "tenant_id", "job_id", "source_item_id", "best_target_item_id",
	"combined_score", "confidence_tier", "needs_review", "review_status",
	"explanation", "top_candidates", "is_no_match", "no_match_reason",
	"created_at", "updated_at",
}

// ListFilter narrows result listings for the review UI
type ListFilter struct {
	ConfidenceTier *models.ConfidenceTier
	NeedsReview    *bool
	IsNoMatch      *bool
	Limit          int
	Offset         int
}

// Repository handles match result persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match result repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the result for a source item, overwriting any previous run's
// row. The write is a single statement, all-or-nothing per item.
func (r *Repository) Upsert(ctx context.Context, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.Upsert")
	defer span.End()

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now
	if result.ReviewStatus == "" {
		result.ReviewStatus = models.ReviewStatusPending
	}

	topCandidates, err := json.Marshal(result.TopCandidates)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode top candidates")
	}
	result.TopCandidatesRaw = string(topCandidates)

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("match_results")
	ib.Cols(resultColumns...)
	ib.Values(result.ID, result.TenantID, result.JobID, result.SourceItemID,
		result.BestTargetItemID, result.CombinedScore, string(result.ConfidenceTier),
		result.NeedsReview, result.ReviewStatus, result.Explanation,
		result.TopCandidatesRaw, result.IsNoMatch, result.NoMatchReason,
		result.CreatedAt, result.UpdatedAt)

	query, args := ib.Build()
	query += ` ON CONFLICT (job_id, source_item_id) DO UPDATE SET
		best_target_item_id = EXCLUDED.best_target_item_id, combined_score = EXCLUDED.combined_score,
		confidence_tier = EXCLUDED.confidence_tier, needs_review = EXCLUDED.needs_review,
		review_status = EXCLUDED.review_status, explanation = EXCLUDED.explanation,
		top_candidates = EXCLUDED.top_candidates, is_no_match = EXCLUDED.is_no_match,
		no_match_reason = EXCLUDED.no_match_reason, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job_id":         result.JobID,
			"source_item_id": result.SourceItemID,
		}).Error("Failed to upsert match result")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert match result")
	}

	return nil
}

// decodeCandidates fills the typed candidate list from the scanned jsonb
func decodeCandidates(result *models.MatchResult) error {
	if result.TopCandidatesRaw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(result.TopCandidatesRaw), &result.TopCandidates); err != nil {
		return fmt.Errorf("failed to decode top candidates: %w", err)
	}
	return nil
}

// GetBySourceItem retrieves the result for one source item
func (r *Repository) GetBySourceItem(ctx context.Context, tenantID, jobID, sourceItemID string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.GetBySourceItem")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(resultColumns...)
	sb.From("match_results")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("job_id", jobID),
		sb.Equal("source_item_id", sourceItemID),
	)

	query, args := sb.Build()
	var result models.MatchResult
	if err := r.db.GetContext(ctx, &result, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match result for source item %s not found", sourceItemID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match result")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match result")
	}

	if err := decodeCandidates(&result); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decode match result")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode match result")
	}
	return &result, nil
}

// ListByJob retrieves a page of results for a job, newest score first
func (r *Repository) ListByJob(ctx context.Context, tenantID, jobID string, filter ListFilter) ([]*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.ListByJob")
	defer span.End()

	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(resultColumns...)
	sb.From("match_results")

	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.Equal("job_id", jobID),
	}
	if filter.ConfidenceTier != nil {
		where = append(where, sb.Equal("confidence_tier", string(*filter.ConfidenceTier)))
	}
	if filter.NeedsReview != nil {
		where = append(where, sb.Equal("needs_review", *filter.NeedsReview))
	}
	if filter.IsNoMatch != nil {
		where = append(where, sb.Equal("is_no_match", *filter.IsNoMatch))
	}
	sb.Where(where...)
	sb.OrderBy("combined_score DESC", "source_item_id ASC")
	sb.Limit(filter.Limit)
	sb.Offset(filter.Offset)

	query, args := sb.Build()
	var rows []models.MatchResult
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match results")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match results")
	}

	results := make([]*models.MatchResult, 0, len(rows))
	for i := range rows {
		if err := decodeCandidates(&rows[i]); err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Skipping undecodable match result")
			continue
		}
		results = append(results, &rows[i])
	}
	return results, nil
}

// ListConfirmed retrieves the high tiers of a job for downstream projection
func (r *Repository) ListConfirmed(ctx context.Context, tenantID, jobID string) ([]*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.ListConfirmed")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM match_results
		WHERE tenant_id = $1 AND job_id = $2 AND confidence_tier IN ($3, $4)
		ORDER BY combined_score DESC, source_item_id ASC`, strings.Join(resultColumns, ", "))

	var rows []models.MatchResult
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, jobID,
		string(models.TierExactMatch), string(models.TierHighConfidence)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list confirmed match results")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list confirmed match results")
	}

	results := make([]*models.MatchResult, 0, len(rows))
	for i := range rows {
		if err := decodeCandidates(&rows[i]); err != nil {
			continue
		}
		results = append(results, &rows[i])
	}
	return results, nil
}

// UpdateReviewStatus records a reviewer decision
func (r *Repository) UpdateReviewStatus(ctx context.Context, tenantID, jobID, sourceItemID, status string) error {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.UpdateReviewStatus")
	defer span.End()

	query := `UPDATE match_results SET review_status = $1, updated_at = $2
		WHERE tenant_id = $3 AND job_id = $4 AND source_item_id = $5`

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), tenantID, jobID, sourceItemID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update review status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update review status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match result for source item %s not found", sourceItemID))
	}
	return nil
}

// DeleteByJob removes all results for a job
func (r *Repository) DeleteByJob(ctx context.Context, tenantID, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.DeleteByJob")
	defer span.End()

	query := `DELETE FROM match_results WHERE tenant_id = $1 AND job_id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, jobID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete match results by job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete match results")
	}
	return nil
}
