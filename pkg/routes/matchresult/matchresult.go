package matchresult

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	resultrepo "github.com/Ramsey-B/fern/internal/repositories/matchresult"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers match result routes under a job group
func Register(g *echo.Group) {
	g.GET("/:id/results", ListResults)
	g.GET("/:id/results/:sourceItemId", GetResult)
	g.PUT("/:id/results/:sourceItemId/review", ReviewResult)
}

// ListResults lists a job's match results, filterable for the review UI
func ListResults(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	jobID := c.Param("id")

	filter := resultrepo.ListFilter{}
	if tier := c.QueryParam("confidence_tier"); tier != "" {
		t := models.ConfidenceTier(tier)
		filter.ConfidenceTier = &t
	}
	if needsReview := c.QueryParam("needs_review"); needsReview != "" {
		v, err := strconv.ParseBool(needsReview)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "needs_review must be a boolean")
		}
		filter.NeedsReview = &v
	}
	if noMatch := c.QueryParam("is_no_match"); noMatch != "" {
		v, err := strconv.ParseBool(noMatch)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "is_no_match must be a boolean")
		}
		filter.IsNoMatch = &v
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*resultrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	results, err := repo.ListByJob(ctx, tenantID, jobID, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, results)
}

// GetResult gets the match result for one source item
func GetResult(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	jobID := c.Param("id")
	sourceItemID := c.Param("sourceItemId")

	ctx, repo, err := ectoinject.GetContext[*resultrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.GetBySourceItem(ctx, tenantID, jobID, sourceItemID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ReviewRequest is the request body for a reviewer decision
type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected pending"`
}

// ReviewResult records a reviewer decision on a match result
func ReviewResult(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	jobID := c.Param("id")
	sourceItemID := c.Param("sourceItemId")

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := utils.Validate(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*resultrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.UpdateReviewStatus(ctx, tenantID, jobID, sourceItemID, req.Status); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
