package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agrisa-ops/internal/models"
	"agrisa-ops/internal/weatherjob"
)

type WeatherJobResult struct {
	JobID   string `json:"job_id"`
	FileURL string `json:"file_url"`
}

// WeatherJobService adapts API requests to the weather job tracker.
type WeatherJobService struct {
	tracker     *weatherjob.Tracker
	waitTimeout time.Duration
}

func NewWeatherJobService(tracker *weatherjob.Tracker, waitTimeout time.Duration) *WeatherJobService {
	if waitTimeout <= 0 {
		waitTimeout = time.Minute
	}
	return &WeatherJobService{tracker: tracker, waitTimeout: waitTimeout}
}

func (s *WeatherJobService) Submit(ctx context.Context, req models.CreateWeatherJobRequest) (*models.WeatherJob, error) {
	start, err := models.ParseDate(req.DateStart)
	if err != nil {
		return nil, fmt.Errorf("date_start: %w", err)
	}
	end, err := models.ParseDate(req.DateEnd)
	if err != nil {
		return nil, fmt.Errorf("date_end: %w", err)
	}

	dataset := models.WeatherDataset(strings.TrimSpace(req.Dataset))
	return s.tracker.Submit(ctx, dataset, req.Provinces, models.DateRange{Start: start, End: end})
}

func (s *WeatherJobService) Get(ctx context.Context, jobID string) (*models.WeatherJob, error) {
	return s.tracker.Get(ctx, jobID)
}

// Wait blocks until the job is terminal or timeout elapses. On timeout the
// latest snapshot is returned with ok=false.
func (s *WeatherJobService) Wait(ctx context.Context, jobID string, timeout time.Duration) (job *models.WeatherJob, ok bool, err error) {
	if timeout <= 0 || timeout > s.waitTimeout {
		timeout = s.waitTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	job, err = s.tracker.Wait(waitCtx, jobID)
	if err == nil {
		return job, true, nil
	}
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return nil, false, err
	}

	latest, err := s.tracker.Get(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	return latest, false, nil
}

func (s *WeatherJobService) Result(ctx context.Context, jobID string) (*WeatherJobResult, error) {
	job, err := s.tracker.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	url, err := weatherjob.Result(job)
	if err != nil {
		return nil, err
	}
	return &WeatherJobResult{JobID: job.ID, FileURL: url}, nil
}
