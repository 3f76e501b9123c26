package handlers

import (
	"log/slog"
	"net/http"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/gofiber/fiber/v3"
)

func respondError(c fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	return c.Status(status).JSON(utils.CreateErrorResponse(models.ErrorCode(err), message))
}

func respondBadBody(c fiber.Ctx, err error) error {
	slog.Error("error parsing request", "path", c.Path(), "error", err)
	return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse(models.CodeInvalidParameter, "Invalid request body"))
}
