package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("should build a production logger", func(t *testing.T) {
		logger := New(false)
		assert.NotNil(t, logger)
	})

	t.Run("should build a pretty logger", func(t *testing.T) {
		logger := New(true)
		assert.NotNil(t, logger)
	})
}
