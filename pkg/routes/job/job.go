package job

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	jobrepo "github.com/Ramsey-B/fern/internal/repositories/job"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/progress"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers job routes
func Register(g *echo.Group) {
	g.GET("", ListJobs)
	g.POST("", CreateJob)
	g.GET("/:id", GetJob)
	g.POST("/:id/match", StartMatch)
	g.POST("/:id/cancel", CancelMatch)
	g.GET("/:id/progress", GetProgress)
}

// CreateJobRequest is the request body for creating a job
type CreateJobRequest struct {
	SourceSite string `json:"source_site" validate:"required"`
	TargetSite string `json:"target_site" validate:"required"`
}

// CreateJob creates a new matching job in the pending stage
func CreateJob(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := utils.Validate(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*jobrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, req.SourceSite, req.TargetSite)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// ListJobs lists recent jobs for the tenant
func ListJobs(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, repo, err := ectoinject.GetContext[*jobrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	jobs, err := repo.List(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, jobs)
}

// GetJob gets a job by ID
func GetJob(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*jobrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	j, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, j)
}

// StartMatch starts a matching run for a job. The optional body overrides
// the stored config; the run snapshots whatever it starts with.
func StartMatch(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	id := c.Param("id")

	var req models.StartJobRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, runner, err := ectoinject.GetContext[*pipeline.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	j, err := runner.Start(ctx, tenantID, id, req.Config)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, j)
}

// CancelMatch cancels a running matching job
func CancelMatch(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	_, runner, err := ectoinject.GetContext[*pipeline.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := runner.Cancel(context.GetTenantID(ctx), id); err != nil {
		return err
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// GetProgress returns the live progress snapshot for a job
func GetProgress(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	id := c.Param("id")

	ctx, reader, err := ectoinject.GetContext[*progress.Reader](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	snapshot, err := reader.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, snapshot)
}
