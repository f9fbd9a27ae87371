// Package normalizers provides title normalization functions for catalog matching
package normalizers

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("remove_punctuation", RemovePunctuation)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("strip_diacritics", StripDiacritics)
	Register("ntitle", NormalizeTitle)
	Register("nbrand", NormalizeBrand)
	Register("alphanumeric", Alphanumeric)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// stopWords are dropped during tokenization: articles, conjunctions and the
// unit abbreviations that clutter cosmetics listings.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"for": true, "with": true, "by": true, "ml": true, "g": true,
}

// IsStopWord reports whether a token is excluded from token sets
func IsStopWord(token string) bool {
	return stopWords[token]
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// RemovePunctuation replaces punctuation and symbol characters with spaces so
// hyphenated and slash-joined words still split into separate tokens
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// CollapseWhitespace reduces any whitespace run to a single space
func CollapseWhitespace(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace && result.Len() > 0 {
				result.WriteRune(' ')
			}
			prevSpace = true
			continue
		}
		result.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimRight(result.String(), " ")
}

// StripDiacritics decomposes the string and drops combining marks
func StripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var result strings.Builder
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		result.WriteRune(r)
	}
	return norm.NFC.String(result.String())
}

// NormalizeTitle normalizes a product title for matching
// - Lowercase
// - Strip diacritics
// - Replace punctuation with spaces
// - Collapse whitespace
func NormalizeTitle(s string) string {
	s = Lowercase(s)
	s = StripDiacritics(s)
	s = RemovePunctuation(s)
	return CollapseWhitespace(s)
}

// NormalizeBrand normalizes a brand name for comparison
func NormalizeBrand(s string) string {
	return CollapseWhitespace(RemovePunctuation(StripDiacritics(Lowercase(s))))
}

// Tokenize splits a raw title into its stop-word-filtered token set. The
// result is order-independent and duplicates collapse; callers get a sorted
// slice so downstream output stays deterministic.
func Tokenize(title string) []string {
	normalized := NormalizeTitle(title)
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		if IsStopWord(tok) || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

// TokenSet returns the token set as a membership map
func TokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
