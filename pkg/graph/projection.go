package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ProjectionService mirrors confirmed matches into the graph so downstream
// tooling can walk cross-site product links. The relational store stays the
// source of truth; projection failures are reported, never fatal.
type ProjectionService struct {
	client *Client
	logger ectologger.Logger
}

// NewProjectionService creates a new projection service
func NewProjectionService(client *Client, logger ectologger.Logger) *ProjectionService {
	return &ProjectionService{
		client: client,
		logger: logger,
	}
}

// ProjectResult upserts the product nodes and the MATCHES edge for one
// confirmed result. MERGE keeps re-projection idempotent.
func (s *ProjectionService) ProjectResult(ctx context.Context, source, target *models.CatalogItem, result *models.MatchResult) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ProjectionService.ProjectResult")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":      result.TenantID,
		"job_id":         result.JobID,
		"source_item_id": result.SourceItemID,
	})

	cypher := `
		MERGE (s:Product {id: $source_id, tenant_id: $tenant_id})
		SET s.title = $source_title, s.brand = $source_brand, s.site = $source_site
		MERGE (t:Product {id: $target_id, tenant_id: $tenant_id})
		SET t.title = $target_title, t.brand = $target_brand, t.site = $target_site
		MERGE (s)-[m:MATCHES]->(t)
		SET m.job_id = $job_id, m.score = $score, m.tier = $tier
		RETURN m
	`

	params := map[string]any{
		"tenant_id":    result.TenantID,
		"job_id":       result.JobID,
		"source_id":    source.ID,
		"source_title": source.Title,
		"source_brand": stringOrEmpty(source.Brand),
		"source_site":  string(models.ItemSideSource),
		"target_id":    target.ID,
		"target_title": target.Title,
		"target_brand": stringOrEmpty(target.Brand),
		"target_site":  string(models.ItemSideTarget),
		"score":        result.CombinedScore,
		"tier":         string(result.ConfidenceTier),
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project match into graph")
		return fmt.Errorf("failed to project match into graph: %w", err)
	}

	log.Debug("Projected match into graph")
	return nil
}

// MatchLink is one projected edge read back from the graph
type MatchLink struct {
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	JobID    string  `json:"job_id"`
	Score    float64 `json:"score"`
	Tier     string  `json:"tier"`
}

// MatchesFor returns the projected matches reachable from one product
func (s *ProjectionService) MatchesFor(ctx context.Context, tenantID, itemID string) ([]MatchLink, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.ProjectionService.MatchesFor")
	defer span.End()

	cypher := `
		MATCH (s:Product {id: $id, tenant_id: $tenant_id})-[m:MATCHES]->(t:Product)
		RETURN s.id AS source_id, t.id AS target_id, m.job_id AS job_id, m.score AS score, m.tier AS tier
		ORDER BY m.score DESC
	`

	records, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        itemID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to query projected matches")
		return nil, fmt.Errorf("failed to query projected matches: %w", err)
	}

	rows, _ := records.([]*neo4j.Record)
	links := make([]MatchLink, 0, len(rows))
	for _, rec := range rows {
		link := MatchLink{}
		if v, ok := rec.Get("source_id"); ok {
			link.SourceID, _ = v.(string)
		}
		if v, ok := rec.Get("target_id"); ok {
			link.TargetID, _ = v.(string)
		}
		if v, ok := rec.Get("job_id"); ok {
			link.JobID, _ = v.(string)
		}
		if v, ok := rec.Get("score"); ok {
			link.Score, _ = v.(float64)
		}
		if v, ok := rec.Get("tier"); ok {
			link.Tier, _ = v.(string)
		}
		links = append(links, link)
	}
	return links, nil
}

// DeleteJob removes every edge a job projected, nodes stay shared
func (s *ProjectionService) DeleteJob(ctx context.Context, tenantID, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ProjectionService.DeleteJob")
	defer span.End()

	cypher := `
		MATCH (:Product {tenant_id: $tenant_id})-[m:MATCHES {job_id: $job_id}]->(:Product)
		DELETE m
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"tenant_id": tenantID,
			"job_id":    jobID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to delete projected job edges")
		return fmt.Errorf("failed to delete projected job edges: %w", err)
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
