// Package catalogitem persists catalog items and their embedding vectors
package catalogitem

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var itemColumns = []string{
	"id", "tenant_id", "job_id", "side", "title", "brand", "category", "price",
	"url", "image_url", "metadata", "normalized_title", "token_set", "attributes",
	"embedding_failed", "created_at", "updated_at",
}

// Repository handles catalog item persistence and vector retrieval
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new catalog item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// itemRow maps the persisted row; token_set and attributes need driver types
type itemRow struct {
	ID              string          `db:"id"`
	TenantID        string          `db:"tenant_id"`
	JobID           string          `db:"job_id"`
	Side            string          `db:"side"`
	Title           string          `db:"title"`
	Brand           *string         `db:"brand"`
	Category        *string         `db:"category"`
	Price           *float64        `db:"price"`
	URL             *string         `db:"url"`
	ImageURL        *string         `db:"image_url"`
	Metadata        json.RawMessage `db:"metadata"`
	NormalizedTitle string          `db:"normalized_title"`
	TokenSet        pq.StringArray  `db:"token_set"`
	Attributes      json.RawMessage `db:"attributes"`
	EmbeddingFailed bool            `db:"embedding_failed"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (row *itemRow) toModel() *models.CatalogItem {
	item := &models.CatalogItem{
		ID:              row.ID,
		TenantID:        row.TenantID,
		JobID:           row.JobID,
		Side:            models.ItemSide(row.Side),
		Title:           row.Title,
		Brand:           row.Brand,
		Category:        row.Category,
		Price:           row.Price,
		URL:             row.URL,
		ImageURL:        row.ImageURL,
		Metadata:        row.Metadata,
		NormalizedTitle: row.NormalizedTitle,
		TokenSet:        []string(row.TokenSet),
		AttributesRaw:   row.Attributes,
		EmbeddingFailed: row.EmbeddingFailed,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if len(row.Attributes) > 0 {
		_ = json.Unmarshal(row.Attributes, &item.Attributes)
	}
	return item
}

// CreateBatch inserts catalog items, overwriting existing rows by id. The
// derived columns are persisted so re-runs skip re-deriving them.
func (r *Repository) CreateBatch(ctx context.Context, items []*models.CatalogItem) error {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.CreateBatch")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("catalog_items")
	sb.Cols(itemColumns...)

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.CreatedAt = now
		item.UpdatedAt = now

		attrs, err := json.Marshal(item.Attributes)
		if err != nil {
			return httperror.NewHTTPErrorf(http.StatusBadRequest, "failed to encode attributes for item %s", item.ID)
		}

		sb.Values(item.ID, item.TenantID, item.JobID, string(item.Side), item.Title,
			item.Brand, item.Category, item.Price, item.URL, item.ImageURL,
			nullableJSON(item.Metadata), item.NormalizedTitle, pq.Array(item.TokenSet),
			attrs, item.EmbeddingFailed, item.CreatedAt, item.UpdatedAt)
	}

	query, args := sb.Build()
	query += ` ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title, brand = EXCLUDED.brand, category = EXCLUDED.category,
		price = EXCLUDED.price, url = EXCLUDED.url, image_url = EXCLUDED.image_url,
		metadata = EXCLUDED.metadata, normalized_title = EXCLUDED.normalized_title,
		token_set = EXCLUDED.token_set, attributes = EXCLUDED.attributes,
		embedding = CASE WHEN catalog_items.normalized_title = EXCLUDED.normalized_title THEN catalog_items.embedding ELSE NULL END,
		embedding_failed = false, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create catalog items batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create catalog items")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"count": len(items)}).Debug("Created catalog items batch")
	return nil
}

// Get retrieves a catalog item by id
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.CatalogItem, error) {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("catalog_items")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var row itemRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("catalog item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get catalog item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get catalog item")
	}

	return row.toModel(), nil
}

// ListByJobSide retrieves one side of a job ordered by id for stable paging
func (r *Repository) ListByJobSide(ctx context.Context, tenantID, jobID string, side models.ItemSide, limit, offset int) ([]*models.CatalogItem, error) {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.ListByJobSide")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 500
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("catalog_items")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("job_id", jobID),
		sb.Equal("side", string(side)),
	)
	sb.OrderBy("id ASC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list catalog items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list catalog items")
	}

	items := make([]*models.CatalogItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toModel()
	}
	return items, nil
}

// CountByJobSide counts one side of a job
func (r *Repository) CountByJobSide(ctx context.Context, tenantID, jobID string, side models.ItemSide) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.CountByJobSide")
	defer span.End()

	query := `SELECT COUNT(*) FROM catalog_items WHERE tenant_id = $1 AND job_id = $2 AND side = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, jobID, string(side)); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count catalog items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count catalog items")
	}
	return count, nil
}

// SetEmbedding stores the vector for an item. The vector is written once per
// title; callers only recompute after a title change cleared it.
func (r *Repository) SetEmbedding(ctx context.Context, tenantID, id string, vector []float32) error {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.SetEmbedding")
	defer span.End()

	query := `UPDATE catalog_items SET embedding = $1::vector, embedding_failed = false, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
	result, err := r.db.ExecContext(ctx, query, vectorLiteral(vector), time.Now().UTC(), tenantID, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": id}).Error("Failed to set embedding")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set embedding")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("catalog item %s not found", id))
	}
	return nil
}

// MarkEmbeddingFailed flags an item whose embedding could not be computed so
// the pipeline can exclude it from matching without crashing the run
func (r *Repository) MarkEmbeddingFailed(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.MarkEmbeddingFailed")
	defer span.End()

	query := `UPDATE catalog_items SET embedding_failed = true, updated_at = $1 WHERE tenant_id = $2 AND id = $3`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), tenantID, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": id}).Error("Failed to mark embedding failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark embedding failed")
	}
	return nil
}

// ListMissingEmbeddings retrieves items on one side that still need a vector
func (r *Repository) ListMissingEmbeddings(ctx context.Context, tenantID, jobID string, side models.ItemSide, limit int) ([]*models.CatalogItem, error) {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.ListMissingEmbeddings")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 500
	}

	query := fmt.Sprintf(`SELECT %s FROM catalog_items
		WHERE tenant_id = $1 AND job_id = $2 AND side = $3 AND embedding IS NULL AND embedding_failed = false
		ORDER BY id ASC LIMIT $4`, strings.Join(itemColumns, ", "))

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, jobID, string(side), limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list items missing embeddings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list items missing embeddings")
	}

	items := make([]*models.CatalogItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toModel()
	}
	return items, nil
}

// GetEmbedding loads the stored vector for an item, nil when absent
func (r *Repository) GetEmbedding(ctx context.Context, tenantID, id string) ([]float32, error) {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.GetEmbedding")
	defer span.End()

	query := `SELECT embedding::text FROM catalog_items WHERE tenant_id = $1 AND id = $2`
	var literal *string
	if err := r.db.GetContext(ctx, &literal, query, tenantID, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("catalog item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get embedding")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get embedding")
	}
	if literal == nil {
		return nil, nil
	}
	return parseVector(*literal)
}

// NearestNeighbors runs a bounded cosine nearest-neighbor query scoped to a
// job and side, ordered by descending similarity. This bound is the primary
// scalability lever: O(sourceCount x limit) instead of a full cross join.
func (r *Repository) NearestNeighbors(ctx context.Context, tenantID, jobID string, side models.ItemSide, vector []float32, limit int) ([]models.Neighbor, error) {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.NearestNeighbors")
	defer span.End()

	if limit < 1 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s, 1 - (embedding <=> $1::vector) AS similarity
		FROM catalog_items
		WHERE tenant_id = $2 AND job_id = $3 AND side = $4 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $5`, strings.Join(itemColumns, ", "))

	type neighborRow struct {
		itemRow
		Similarity float64 `db:"similarity"`
	}

	start := time.Now()
	var rows []neighborRow
	if err := r.db.SelectContext(ctx, &rows, query, vectorLiteral(vector), tenantID, jobID, string(side), limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query nearest neighbors")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query nearest neighbors")
	}
	metrics.CandidateQueryDuration.Observe(time.Since(start).Seconds())

	neighbors := make([]models.Neighbor, len(rows))
	for i := range rows {
		neighbors[i] = models.Neighbor{
			Item:       rows[i].itemRow.toModel(),
			Similarity: rows[i].Similarity,
		}
	}
	return neighbors, nil
}

// DeleteByJob removes all items for a job
func (r *Repository) DeleteByJob(ctx context.Context, tenantID, jobID string) error {
	ctx, span := tracing.StartSpan(ctx, "catalogitem.Repository.DeleteByJob")
	defer span.End()

	query := `DELETE FROM catalog_items WHERE tenant_id = $1 AND job_id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, jobID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete catalog items by job")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete catalog items")
	}
	return nil
}

// nullableJSON maps empty raw metadata to a SQL NULL instead of ""
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// vectorLiteral renders a pgvector literal like [0.1,0.2,0.3]
func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// parseVector parses a pgvector text literal back into a slice
func parseVector(literal string) ([]float32, error) {
	trimmed := strings.Trim(strings.TrimSpace(literal), "[]")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	vector := make([]float32, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector literal: %w", err)
		}
		vector[i] = float32(v)
	}
	return vector, nil
}
