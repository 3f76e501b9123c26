package weather

import (
	"context"
	"net/http"
	"time"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type JobReader interface {
	GetByID(ctx context.Context, id string) (*models.WeatherJob, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type JobHandler struct {
	jobs   JobReader
	checks map[string]HealthCheck
}

func NewJobHandler(jobs JobReader, checks map[string]HealthCheck) *JobHandler {
	return &JobHandler{jobs: jobs, checks: checks}
}

func (h *JobHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/checkhealth", h.CheckHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internalGroup := router.Group("/weather/internal/api/v2")
	internalGroup.GET("/jobs/:id", h.GetJob)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(models.HTTPStatus(err), utils.CreateErrorResponse(models.ErrorCode(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.CreateSuccessResponse(job))
}

func (h *JobHandler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	report := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	report["status"] = "healthy"
	if status != http.StatusOK {
		report["status"] = "unhealthy"
	}
	c.JSON(status, report)
}
