package handlers

import (
	"context"
	"net/http"

	"agrisa-ops/internal/assignment"
	"agrisa-ops/internal/models"
	"agrisa-ops/internal/services"
	utils "agrisa-ops/shared/utils"

	"github.com/gofiber/fiber/v3"
)

// Wizard is the assignment wizard as seen by the HTTP layer.
type Wizard interface {
	StartSession(ctx context.Context, productID string) (*assignment.Summary, error)
	GetSummary(ctx context.Context, sessionID string) (*assignment.Summary, error)
	SelectFarmers(ctx context.Context, sessionID string, farmerIDs []string) (*assignment.Summary, error)
	SelectPlots(ctx context.Context, sessionID, farmerID string, plotIDs []string) (*assignment.Summary, error)
	Advance(ctx context.Context, sessionID string) (*assignment.Summary, error)
	Back(ctx context.Context, sessionID string) (*assignment.Summary, error)
	Confirm(ctx context.Context, sessionID, season string) (*services.ConfirmationResult, error)
	Discard(ctx context.Context, sessionID string) error
}

type AssignmentHandler struct {
	wizard Wizard
}

func NewAssignmentHandler(wizard Wizard) *AssignmentHandler {
	return &AssignmentHandler{wizard: wizard}
}

func (h *AssignmentHandler) Register(app *fiber.App) {
	protectedGr := app.Group("assignment/protected/api/v2")

	wizardGroup := protectedGr.Group("/wizard/sessions")
	wizardGroup.Post("/", h.StartSession)                           // POST   /wizard/sessions - start a wizard for a product
	wizardGroup.Get("/:id", h.GetSummary)                           // GET    /wizard/sessions/{id} - current summary
	wizardGroup.Put("/:id/farmers", h.SelectFarmers)                // PUT    /wizard/sessions/{id}/farmers - replace farmer selection
	wizardGroup.Put("/:id/farmers/:farmer_id/plots", h.SelectPlots) // PUT    /wizard/sessions/{id}/farmers/{farmer_id}/plots
	wizardGroup.Post("/:id/advance", h.Advance)                     // POST   /wizard/sessions/{id}/advance
	wizardGroup.Post("/:id/back", h.Back)                           // POST   /wizard/sessions/{id}/back
	wizardGroup.Post("/:id/confirm", h.Confirm)                     // POST   /wizard/sessions/{id}/confirm - create enrollments
	wizardGroup.Delete("/:id", h.Discard)                           // DELETE /wizard/sessions/{id}
}

func (h *AssignmentHandler) StartSession(c fiber.Ctx) error {
	var req models.StartSessionRequest
	if err := c.Bind().Body(&req); err != nil {
		return respondBadBody(c, err)
	}

	summary, err := h.wizard.StartSession(c.Context(), req.ProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(summary))
}

func (h *AssignmentHandler) GetSummary(c fiber.Ctx) error {
	summary, err := h.wizard.GetSummary(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(summary))
}

func (h *AssignmentHandler) SelectFarmers(c fiber.Ctx) error {
	var req models.SelectFarmersRequest
	if err := c.Bind().Body(&req); err != nil {
		return respondBadBody(c, err)
	}

	summary, err := h.wizard.SelectFarmers(c.Context(), c.Params("id"), req.FarmerIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(summary))
}

func (h *AssignmentHandler) SelectPlots(c fiber.Ctx) error {
	var req models.SelectPlotsRequest
	if err := c.Bind().Body(&req); err != nil {
		return respondBadBody(c, err)
	}

	summary, err := h.wizard.SelectPlots(c.Context(), c.Params("id"), c.Params("farmer_id"), req.PlotIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(summary))
}

func (h *AssignmentHandler) Advance(c fiber.Ctx) error {
	summary, err := h.wizard.Advance(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(summary))
}

func (h *AssignmentHandler) Back(c fiber.Ctx) error {
	summary, err := h.wizard.Back(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(summary))
}

// Confirm accepts an optional body carrying the season label.
func (h *AssignmentHandler) Confirm(c fiber.Ctx) error {
	var req models.ConfirmSessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return respondBadBody(c, err)
		}
	}

	result, err := h.wizard.Confirm(c.Context(), c.Params("id"), req.Season)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(result))
}

func (h *AssignmentHandler) Discard(c fiber.Ctx) error {
	if err := h.wizard.Discard(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
