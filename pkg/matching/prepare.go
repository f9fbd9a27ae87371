package matching

import (
	"encoding/json"

	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

var attrExtractor = extractor.New()

// PrepareItem fills the derived fields of a catalog item from its title:
// normalized title, token set and extracted attributes. Derivation is
// deterministic, so recomputing is safe; already-populated fields are kept.
func PrepareItem(item *models.CatalogItem) {
	if item.NormalizedTitle == "" {
		item.NormalizedTitle = normalizers.NormalizeTitle(item.Title)
	}
	if item.TokenSet == nil {
		item.TokenSet = normalizers.Tokenize(item.Title)
	}
	if item.Attributes == (models.ItemAttributes{}) {
		if len(item.AttributesRaw) > 0 {
			// Prefer the cached attributes persisted with the row
			_ = json.Unmarshal(item.AttributesRaw, &item.Attributes)
		}
		if item.Attributes == (models.ItemAttributes{}) {
			item.Attributes = attrExtractor.Extract(item.Title)
		}
	}
}
