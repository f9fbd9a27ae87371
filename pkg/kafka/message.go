package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// SchemaVersion is stamped on every produced message header
const SchemaVersion = "1.0"

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// CatalogItemMessage is one catalog item arriving on the ingest topic. The
// scraper side owns this shape; unknown fields are carried in metadata.
type CatalogItemMessage struct {
	TenantID string          `json:"tenant_id"`
	JobID    string          `json:"job_id"`
	Side     string          `json:"side"`
	ItemID   string          `json:"item_id,omitempty"`
	Title    string          `json:"title"`
	Brand    *string         `json:"brand,omitempty"`
	Category *string         `json:"category,omitempty"`
	Price    *float64        `json:"price,omitempty"`
	URL      *string         `json:"url,omitempty"`
	ImageURL *string         `json:"image_url,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ParseCatalogItem decodes and validates the message payload
func (m *IncomingMessage) ParseCatalogItem() (*CatalogItemMessage, error) {
	var item CatalogItemMessage
	if err := json.Unmarshal(m.Value, &item); err != nil {
		return nil, fmt.Errorf("failed to decode catalog item message: %w", err)
	}

	if item.TenantID == "" {
		// Fallback to header
		item.TenantID = m.Headers["tenant_id"]
	}
	if item.TenantID == "" || item.JobID == "" || item.Title == "" {
		return nil, fmt.Errorf("catalog item message missing tenant_id, job_id or title")
	}

	side := models.ItemSide(item.Side)
	if side != models.ItemSideSource && side != models.ItemSideTarget {
		return nil, fmt.Errorf("catalog item message has invalid side %q", item.Side)
	}

	return &item, nil
}

// ToModel converts the message into a catalog item
func (m *CatalogItemMessage) ToModel() *models.CatalogItem {
	return &models.CatalogItem{
		ID:       m.ItemID,
		TenantID: m.TenantID,
		JobID:    m.JobID,
		Side:     models.ItemSide(m.Side),
		Title:    m.Title,
		Brand:    m.Brand,
		Category: m.Category,
		Price:    m.Price,
		URL:      m.URL,
		ImageURL: m.ImageURL,
		Metadata: m.Metadata,
	}
}
