package graph

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ConfirmedLister reads the high-confidence results of a job
type ConfirmedLister interface {
	ListConfirmed(ctx context.Context, tenantID, jobID string) ([]*models.MatchResult, error)
}

// ItemGetter loads catalog items by id
type ItemGetter interface {
	Get(ctx context.Context, tenantID, id string) (*models.CatalogItem, error)
}

// JobProjector pushes a finished job's confirmed matches into the graph
type JobProjector struct {
	results    ConfirmedLister
	items      ItemGetter
	projection *ProjectionService
	logger     ectologger.Logger
}

// NewJobProjector creates a job projector
func NewJobProjector(results ConfirmedLister, items ItemGetter, projection *ProjectionService, logger ectologger.Logger) *JobProjector {
	return &JobProjector{
		results:    results,
		items:      items,
		projection: projection,
		logger:     logger,
	}
}

// ProjectJob projects every exact and high-confidence result of a job. Edge
// failures skip the edge and keep going, the projection is best effort.
func (p *JobProjector) ProjectJob(ctx context.Context, job *models.Job) error {
	ctx, span := tracing.StartSpan(ctx, "graph.JobProjector.ProjectJob")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": job.TenantID,
		"job_id":    job.ID,
	})

	confirmed, err := p.results.ListConfirmed(ctx, job.TenantID, job.ID)
	if err != nil {
		return err
	}

	projected := 0
	for _, result := range confirmed {
		if result.BestTargetItemID == nil {
			continue
		}

		source, err := p.items.Get(ctx, job.TenantID, result.SourceItemID)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"item_id": result.SourceItemID}).Warn("Skipping projection, source item missing")
			continue
		}
		target, err := p.items.Get(ctx, job.TenantID, *result.BestTargetItemID)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"item_id": *result.BestTargetItemID}).Warn("Skipping projection, target item missing")
			continue
		}

		if err := p.projection.ProjectResult(ctx, source, target, result); err != nil {
			continue
		}
		projected++
	}

	log.WithFields(map[string]any{
		"confirmed": len(confirmed),
		"projected": projected,
	}).Info("Projected confirmed matches")
	return nil
}
