package models

import (
	"encoding/json"
	"time"
)

// ItemSide identifies which catalog an item belongs to within a job
type ItemSide string

const (
	ItemSideSource ItemSide = "source"
	ItemSideTarget ItemSide = "target"
)

// CatalogItem is one product listing on one side of a matching job
type CatalogItem struct {
	ID       string          `json:"id" db:"id"`
	TenantID string          `json:"tenant_id" db:"tenant_id"`
	JobID    string          `json:"job_id" db:"job_id"`
	Side     ItemSide        `json:"side" db:"side"`
	Title    string          `json:"title" db:"title"`
	Brand    *string         `json:"brand,omitempty" db:"brand"`
	Category *string         `json:"category,omitempty" db:"category"`
	Price    *float64        `json:"price,omitempty" db:"price"`
	URL      *string         `json:"url,omitempty" db:"url"`
	ImageURL *string         `json:"image_url,omitempty" db:"image_url"`
	Metadata json.RawMessage `json:"metadata,omitempty" db:"metadata"`

	// Derived on first use and cached alongside the row
	NormalizedTitle string          `json:"normalized_title" db:"normalized_title"`
	TokenSet        []string        `json:"token_set" db:"-"`
	Attributes      ItemAttributes  `json:"attributes" db:"-"`
	AttributesRaw   json.RawMessage `json:"-" db:"attributes"`

	// Embedding is immutable once computed for the lifetime of the job.
	// It is recomputed only when the title changes.
	Embedding       []float32 `json:"-" db:"-"`
	EmbeddingFailed bool      `json:"embedding_failed" db:"embedding_failed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ItemAttributes holds the structured attributes extracted from a title.
// Each field is optional; nil means the attribute was not found.
type ItemAttributes struct {
	ProductCode *string `json:"product_code,omitempty"`
	Shade       *string `json:"shade,omitempty"`
	Color       *string `json:"color,omitempty"`
	Finish      *string `json:"finish,omitempty"`
}

// Neighbor is a target item returned by nearest-neighbor retrieval together
// with its cosine similarity to the query vector
type Neighbor struct {
	Item       *CatalogItem
	Similarity float64
}

// CreateCatalogItemRequest is the ingestion payload for a catalog item
type CreateCatalogItemRequest struct {
	ID       string          `json:"id"`
	JobID    string          `json:"job_id" validate:"required"`
	Side     ItemSide        `json:"side" validate:"required,oneof=source target"`
	Title    string          `json:"title" validate:"required"`
	Brand    *string         `json:"brand,omitempty"`
	Category *string         `json:"category,omitempty"`
	Price    *float64        `json:"price,omitempty"`
	URL      *string         `json:"url,omitempty"`
	ImageURL *string         `json:"image_url,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
