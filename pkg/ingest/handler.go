// Package ingest stores catalog items arriving on the ingest topic
package ingest

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ItemWriter persists catalog items
type ItemWriter interface {
	CreateBatch(ctx context.Context, items []*models.CatalogItem) error
}

// Handler turns ingest messages into stored catalog items. Derived fields
// are computed here, once per ingest, not per scoring pass.
type Handler struct {
	items  ItemWriter
	logger ectologger.Logger
}

// NewHandler creates an ingest handler
func NewHandler(items ItemWriter, logger ectologger.Logger) *Handler {
	return &Handler{
		items:  items,
		logger: logger,
	}
}

// Handle processes one ingest message. A returned error leaves the message
// uncommitted so it is redelivered; malformed payloads are dropped with a
// log line instead, retrying those can never succeed.
func (h *Handler) Handle(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.Handler.Handle")
	defer span.End()

	parsed, err := msg.ParseCatalogItem()
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"topic":  msg.Topic,
			"offset": msg.Offset,
		}).Error("Dropping malformed catalog item message")
		return nil
	}

	item := parsed.ToModel()
	matching.PrepareItem(item)

	if err := h.items.CreateBatch(ctx, []*models.CatalogItem{item}); err != nil {
		return err
	}
	metrics.RecordItemIngested(item.TenantID, string(item.Side))

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": item.TenantID,
		"job_id":    item.JobID,
		"side":      item.Side,
		"item_id":   item.ID,
	}).Debug("Stored catalog item")
	return nil
}
