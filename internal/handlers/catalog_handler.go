package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/gofiber/fiber/v3"
)

type CatalogReader interface {
	ListFarmers(ctx context.Context, filter models.FarmerFilter) ([]models.Farmer, error)
	ListPlots(ctx context.Context, farmerID string) ([]models.Plot, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
}

type CatalogHandler struct {
	catalog CatalogReader
}

func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) Register(app *fiber.App) {
	protectedGr := app.Group("assignment/protected/api/v2")

	protectedGr.Get("/farmers", h.ListFarmers)                // GET /farmers?province=&verified_only=&limit=
	protectedGr.Get("/farmers/:farmer_id/plots", h.ListPlots) // GET /farmers/{id}/plots
	protectedGr.Get("/products/:product_id", h.GetProduct)
}

func (h *CatalogHandler) ListFarmers(c fiber.Ctx) error {
	filter := models.FarmerFilter{
		Province:     strings.TrimSpace(c.Query("province")),
		VerifiedOnly: c.Query("verified_only") == "true",
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse(models.CodeInvalidParameter, "limit must be a non-negative integer"))
		}
		filter.Limit = limit
	}

	farmers, err := h.catalog.ListFarmers(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateListResponse(farmers))
}

func (h *CatalogHandler) ListPlots(c fiber.Ctx) error {
	plots, err := h.catalog.ListPlots(c.Context(), c.Params("farmer_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateListResponse(plots))
}

func (h *CatalogHandler) GetProduct(c fiber.Ctx) error {
	product, err := h.catalog.GetProduct(c.Context(), c.Params("product_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(product))
}
