package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	t.Run("should lowercase the title", func(t *testing.T) {
		assert.Equal(t, "rouge allure", NormalizeTitle("Rouge ALLURE"))
	})

	t.Run("should strip diacritics", func(t *testing.T) {
		assert.Equal(t, "lancome genifique creme", NormalizeTitle("Lancôme Génifique Crème"))
	})

	t.Run("should replace punctuation with spaces", func(t *testing.T) {
		assert.Equal(t, "rouge coco 444 gabrielle", NormalizeTitle("Rouge-Coco/444 (Gabrielle)"))
	})

	t.Run("should collapse whitespace runs", func(t *testing.T) {
		assert.Equal(t, "velvet matte lipstick", NormalizeTitle("  Velvet   Matte\t Lipstick  "))
	})

	t.Run("should be idempotent", func(t *testing.T) {
		once := NormalizeTitle("L'Oréal Paris — Infallible 24H")
		assert.Equal(t, once, NormalizeTitle(once))
	})

	t.Run("should return empty for empty input", func(t *testing.T) {
		assert.Equal(t, "", NormalizeTitle(""))
	})
}

func TestNormalizeBrand(t *testing.T) {
	t.Run("should equate accent and punctuation variants", func(t *testing.T) {
		assert.Equal(t, NormalizeBrand("L'Oréal"), NormalizeBrand("loreal"))
	})

	t.Run("should not equate different brands", func(t *testing.T) {
		assert.NotEqual(t, NormalizeBrand("Chanel"), NormalizeBrand("Dior"))
	})
}

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "creme brulee", StripDiacritics("crème brûlée"))
	assert.Equal(t, "plain", StripDiacritics("plain"))
}

func TestTokenize(t *testing.T) {
	t.Run("should drop stop words", func(t *testing.T) {
		tokens := Tokenize("The Lipstick for a Night with Friends")
		assert.Equal(t, []string{"friends", "lipstick", "night"}, tokens)
	})

	t.Run("should drop unit abbreviations", func(t *testing.T) {
		tokens := Tokenize("Serum 30 ml and 5 g")
		assert.Equal(t, []string{"30", "5", "serum"}, tokens)
	})

	t.Run("should deduplicate and sort", func(t *testing.T) {
		tokens := Tokenize("Rouge rouge ROUGE allure")
		assert.Equal(t, []string{"allure", "rouge"}, tokens)
	})

	t.Run("should return nil for a title of only stop words", func(t *testing.T) {
		assert.Empty(t, Tokenize("the and or"))
	})
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("ml"))
	assert.False(t, IsStopWord("rouge"))
}

func TestApplyChain(t *testing.T) {
	t.Run("should apply normalizers in order", func(t *testing.T) {
		result := ApplyChain("  Héllo, World!  ", "lowercase", "strip_diacritics", "remove_punctuation", "collapse_whitespace")
		assert.Equal(t, "hello world", result)
	})

	t.Run("should skip unknown normalizers", func(t *testing.T) {
		assert.Equal(t, "value", ApplyChain("value", "does_not_exist"))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("should expose built-in normalizers", func(t *testing.T) {
		fn, ok := Get("ntitle")
		assert.True(t, ok)
		assert.Equal(t, "rouge", fn("Rouge"))
	})

	t.Run("should allow custom normalizers", func(t *testing.T) {
		Register("reverse_noop", func(s string) string { return s })
		assert.Equal(t, "abc", Apply("abc", "reverse_noop"))
	})
}

func TestTokenSet(t *testing.T) {
	set := TokenSet([]string{"a", "b"})
	assert.True(t, set["a"])
	assert.True(t, set["b"])
	assert.False(t, set["c"])
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "123", DigitsOnly("a1b2c3"))
}

func TestAlphanumeric(t *testing.T) {
	assert.Equal(t, "NX123", Alphanumeric("NX-123!"))
}
