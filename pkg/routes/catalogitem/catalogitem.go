package catalogitem

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	itemrepo "github.com/Ramsey-B/fern/internal/repositories/catalogitem"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers catalog item routes under a job group
func Register(g *echo.Group) {
	g.POST("/:id/items", CreateItems)
	g.GET("/:id/items", ListItems)
	g.GET("/:id/items/:itemId", GetItem)
	g.DELETE("/:id/items", DeleteItems)
}

// CreateItems ingests a batch of catalog items over HTTP, the synchronous
// alternative to the Kafka ingest topic. Derived fields are computed here so
// stored rows are ready for scoring.
func CreateItems(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	jobID := c.Param("id")

	var reqs []models.CreateCatalogItemRequest
	if err := c.Bind(&reqs); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(reqs) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "request body must contain at least one item")
	}

	items := make([]*models.CatalogItem, 0, len(reqs))
	for _, req := range reqs {
		req.JobID = jobID
		if _, err := utils.Validate(req); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		item := &models.CatalogItem{
			ID:       req.ID,
			TenantID: tenantID,
			JobID:    jobID,
			Side:     req.Side,
			Title:    req.Title,
			Brand:    req.Brand,
			Category: req.Category,
			Price:    req.Price,
			URL:      req.URL,
			ImageURL: req.ImageURL,
			Metadata: req.Metadata,
		}
		matching.PrepareItem(item)
		items = append(items, item)
	}

	ctx, repo, err := ectoinject.GetContext[*itemrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.CreateBatch(ctx, items); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{"created": len(items)})
}

// ListItems lists one side of a job's catalog
func ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	jobID := c.Param("id")

	side := models.ItemSide(c.QueryParam("side"))
	if side != models.ItemSideSource && side != models.ItemSideTarget {
		return httperror.NewHTTPError(http.StatusBadRequest, "side must be source or target")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*itemrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.ListByJobSide(ctx, tenantID, jobID, side, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// GetItem gets a single catalog item
func GetItem(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	itemID := c.Param("itemId")

	ctx, repo, err := ectoinject.GetContext[*itemrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	item, err := repo.Get(ctx, tenantID, itemID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// DeleteItems removes a job's entire catalog, both sides
func DeleteItems(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	jobID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*itemrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.DeleteByJob(ctx, tenantID, jobID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
