package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"agrisa-ops/internal/models"
	"agrisa-ops/internal/services"
	utils "agrisa-ops/shared/utils"

	"github.com/gofiber/fiber/v3"
)

type WeatherJobs interface {
	Submit(ctx context.Context, req models.CreateWeatherJobRequest) (*models.WeatherJob, error)
	Get(ctx context.Context, jobID string) (*models.WeatherJob, error)
	Wait(ctx context.Context, jobID string, timeout time.Duration) (*models.WeatherJob, bool, error)
	Result(ctx context.Context, jobID string) (*services.WeatherJobResult, error)
}

type WeatherJobHandler struct {
	jobs WeatherJobs
}

func NewWeatherJobHandler(jobs WeatherJobs) *WeatherJobHandler {
	return &WeatherJobHandler{jobs: jobs}
}

func (h *WeatherJobHandler) Register(app *fiber.App) {
	protectedGr := app.Group("assignment/protected/api/v2")

	jobGroup := protectedGr.Group("/weather-jobs")
	jobGroup.Post("/", h.Submit)
	jobGroup.Get("/:id", h.Get)
	jobGroup.Get("/:id/wait", h.Wait) // GET /weather-jobs/{id}/wait?timeout=30s - long poll until terminal
	jobGroup.Get("/:id/result", h.Result)
}

func (h *WeatherJobHandler) Submit(c fiber.Ctx) error {
	var req models.CreateWeatherJobRequest
	if err := c.Bind().Body(&req); err != nil {
		return respondBadBody(c, err)
	}

	job, err := h.jobs.Submit(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(job))
}

func (h *WeatherJobHandler) Get(c fiber.Ctx) error {
	job, err := h.jobs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(job))
}

// Wait answers 200 with a terminal job, or 202 with the latest snapshot
// when the timeout elapses first.
func (h *WeatherJobHandler) Wait(c fiber.Ctx) error {
	timeout, err := parseTimeout(c.Query("timeout"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(utils.CreateErrorResponse(models.CodeInvalidParameter, "timeout must be a duration like 30s or a number of seconds"))
	}

	job, done, err := h.jobs.Wait(c.Context(), c.Params("id"), timeout)
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusOK
	if !done {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(utils.CreateSuccessResponse(job))
}

func (h *WeatherJobHandler) Result(c fiber.Ctx) error {
	result, err := h.jobs.Result(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(result))
}

// parseTimeout accepts "45s"-style durations or plain seconds. Empty means
// the service default.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, strconv.ErrRange
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, strconv.ErrSyntax
	}
	return d, nil
}
