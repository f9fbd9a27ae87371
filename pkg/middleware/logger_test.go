package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

func TestContextMiddleware(t *testing.T) {
	t.Run("should copy tenant and job identifiers into the request context", func(t *testing.T) {
		e := echo.New()
		e.Use(Context())

		var gotTenant, gotJob string
		e.GET("/jobs/:id", func(c echo.Context) error {
			ctx := c.Request().Context()
			gotTenant = fernctx.GetTenantID(ctx)
			gotJob = fernctx.GetJobID(ctx)
			return c.NoContent(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
		req.Header.Set("X-Tenant-Id", "tenant-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tenant-1", gotTenant)
		assert.Equal(t, "job-1", gotJob)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestLoggerMiddleware(t *testing.T) {
	t.Run("should log once per request after the handler ran", func(t *testing.T) {
		var logged atomic.Int64
		logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {
			logged.Add(1)
		})

		e := echo.New()
		e.Use(Context())
		e.Use(Logger(logger))
		e.GET("/jobs/:id", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
		req.Header.Set("X-Tenant-Id", "tenant-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(1), logged.Load())
	})
}
