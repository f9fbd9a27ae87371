// Package extractor pulls structured attributes out of raw product titles
package extractor

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

var (
	// Alphanumeric SKU-style codes: a run of letters followed by a run of
	// digits, or the reverse, e.g. "NX123" or "128AB".
	productCodePattern = regexp.MustCompile(`\b([A-Z]{2,}\d{3,}|\d{3,}[A-Z]{2,})\b`)

	// Short numeric or word+number shade tokens, e.g. "128", "12A", "Rose 04"
	shadePattern = regexp.MustCompile(`\b(\d{1,3}[A-Z]?|[A-Za-z]+\s?\d+)\b`)
)

var colorKeywords = map[string]bool{
	"red": true, "blue": true, "pink": true, "nude": true, "coral": true,
	"berry": true, "plum": true, "brown": true, "black": true, "white": true,
	"gold": true, "silver": true, "bronze": true, "copper": true, "mauve": true,
}

var finishKeywords = map[string]bool{
	"matte": true, "glossy": true, "satin": true, "shimmer": true,
	"metallic": true, "cream": true, "powder": true, "liquid": true,
	"gel": true, "balm": true,
}

// Extractor derives catalog item attributes from titles. Stateless and
// deterministic; safe for concurrent use.
type Extractor struct{}

// New creates a new Extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the attributes found in a title. Each attribute keeps the
// first match in title order; absent attributes stay nil.
func (e *Extractor) Extract(title string) models.ItemAttributes {
	attrs := models.ItemAttributes{}

	code := e.ProductCode(title)
	attrs.ProductCode = code

	attrs.Shade = e.Shade(title, code)
	attrs.Color = e.Color(title)
	attrs.Finish = e.Finish(title)

	return attrs
}

// ProductCode extracts at most one SKU-style code from the title
func (e *Extractor) ProductCode(title string) *string {
	match := productCodePattern.FindString(strings.ToUpper(title))
	if match == "" {
		return nil
	}
	return &match
}

// Shade extracts the shade or variant token. The product-code pattern wins
// ties, so its match text is excluded from shade candidates.
func (e *Extractor) Shade(title string, productCode *string) *string {
	upper := strings.ToUpper(title)
	for _, match := range shadePattern.FindAllString(upper, -1) {
		if productCode != nil && match == *productCode {
			continue
		}
		shade := match
		return &shade
	}
	return nil
}

// Color returns the first color keyword appearing in the title
func (e *Extractor) Color(title string) *string {
	return firstKeyword(title, colorKeywords)
}

// Finish returns the first finish keyword appearing in the title
func (e *Extractor) Finish(title string) *string {
	return firstKeyword(title, finishKeywords)
}

func firstKeyword(title string, vocabulary map[string]bool) *string {
	normalized := normalizers.NormalizeTitle(title)
	for _, word := range strings.Fields(normalized) {
		if vocabulary[word] {
			hit := word
			return &hit
		}
	}
	return nil
}
