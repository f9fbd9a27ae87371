package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCode(t *testing.T) {
	e := New()

	t.Run("should extract letters-then-digits codes", func(t *testing.T) {
		code := e.ProductCode("Chanel NX123 Lipstick")
		require.NotNil(t, code)
		assert.Equal(t, "NX123", *code)
	})

	t.Run("should extract digits-then-letters codes", func(t *testing.T) {
		code := e.ProductCode("Gloss 128AB")
		require.NotNil(t, code)
		assert.Equal(t, "128AB", *code)
	})

	t.Run("should match case-insensitively", func(t *testing.T) {
		code := e.ProductCode("gloss nx123")
		require.NotNil(t, code)
		assert.Equal(t, "NX123", *code)
	})

	t.Run("should require at least three digits", func(t *testing.T) {
		assert.Nil(t, e.ProductCode("AB12 Kit"))
	})

	t.Run("should return nil when no code present", func(t *testing.T) {
		assert.Nil(t, e.ProductCode("Rouge Allure Lipstick"))
	})
}

func TestShade(t *testing.T) {
	e := New()

	t.Run("should extract a word plus number shade", func(t *testing.T) {
		shade := e.Shade("Dior Rouge 999", nil)
		require.NotNil(t, shade)
		assert.Equal(t, "ROUGE 999", *shade)
	})

	t.Run("should extract a short numeric shade", func(t *testing.T) {
		shade := e.Shade("Velvet Matte 12A", nil)
		require.NotNil(t, shade)
		assert.Equal(t, "12A", *shade)
	})

	t.Run("should skip the product code match", func(t *testing.T) {
		code := e.ProductCode("Gloss NX123 04 Coral")
		require.NotNil(t, code)

		shade := e.Shade("Gloss NX123 04 Coral", code)
		require.NotNil(t, shade)
		assert.Equal(t, "04", *shade)
	})

	t.Run("should return nil when nothing shade-like appears", func(t *testing.T) {
		assert.Nil(t, e.Shade("Rouge Allure Lipstick", nil))
	})
}

func TestColorAndFinish(t *testing.T) {
	e := New()

	t.Run("should return the first color keyword", func(t *testing.T) {
		color := e.Color("Ruby Coral Lipstick")
		require.NotNil(t, color)
		assert.Equal(t, "coral", *color)
	})

	t.Run("should match color keywords through punctuation", func(t *testing.T) {
		color := e.Color("Lip-Tint (Berry)")
		require.NotNil(t, color)
		assert.Equal(t, "berry", *color)
	})

	t.Run("should return the first finish keyword", func(t *testing.T) {
		finish := e.Finish("Velvet Matte Lipstick")
		require.NotNil(t, finish)
		assert.Equal(t, "matte", *finish)
	})

	t.Run("should return nil when absent", func(t *testing.T) {
		assert.Nil(t, e.Color("Plain Lipstick"))
		assert.Nil(t, e.Finish("Plain Lipstick"))
	})
}

func TestExtract(t *testing.T) {
	e := New()

	t.Run("should populate every found attribute", func(t *testing.T) {
		attrs := e.Extract("Gloss NX123 04 Coral Matte")

		require.NotNil(t, attrs.ProductCode)
		assert.Equal(t, "NX123", *attrs.ProductCode)
		require.NotNil(t, attrs.Shade)
		assert.Equal(t, "04", *attrs.Shade)
		require.NotNil(t, attrs.Color)
		assert.Equal(t, "coral", *attrs.Color)
		require.NotNil(t, attrs.Finish)
		assert.Equal(t, "matte", *attrs.Finish)
	})

	t.Run("should leave absent attributes nil", func(t *testing.T) {
		attrs := e.Extract("Rouge Allure Lipstick")

		assert.Nil(t, attrs.ProductCode)
		assert.Nil(t, attrs.Shade)
		assert.Nil(t, attrs.Color)
		assert.Nil(t, attrs.Finish)
	})
}
