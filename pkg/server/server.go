// Package server assembles the HTTP surface of the service
package server

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/middleware"
	itemroutes "github.com/Ramsey-B/fern/pkg/routes/catalogitem"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	jobroutes "github.com/Ramsey-B/fern/pkg/routes/job"
	resultroutes "github.com/Ramsey-B/fern/pkg/routes/matchresult"
	"github.com/Ramsey-B/fern/pkg/routes/quickmatch"
)

// Config holds HTTP server configuration
type Config struct {
	Port        int
	ServiceName string
	PrettyLogs  bool
}

// Server wraps the echo instance with lifecycle management
type Server struct {
	echo   *echo.Echo
	logger ectologger.Logger
	config Config
}

// New builds the echo app with the full middleware chain and route tree
func New(cfg Config, logger ectologger.Logger, checker *health.Checker) *Server {
	if logger == nil {
		logger = logging.New(cfg.PrettyLogs)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	jobs := api.Group("/jobs")
	jobroutes.Register(jobs)
	itemroutes.Register(jobs)
	resultroutes.Register(jobs)
	quickmatch.Register(api.Group("/quickmatch"))

	return &Server{
		echo:   e,
		logger: logger,
		config: cfg,
	}
}

// Echo exposes the underlying echo instance, used by tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Infof("HTTP server listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
