// Package middleware provides the echo middleware used by the API server
package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

// Context copies request identifiers into the request context so logs,
// traces and repositories can scope by them
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx = fernctx.SetRequestID(ctx, requestID)

			if tenantID := req.Header.Get("X-Tenant-Id"); tenantID != "" {
				ctx = fernctx.SetTenantID(ctx, tenantID)
			}
			if jobID := c.Param("id"); jobID != "" {
				ctx = fernctx.SetJobID(ctx, jobID)
			}

			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(c)
		}
	}
}
