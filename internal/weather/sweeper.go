package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agrisa-ops/internal/models"
	"agrisa-ops/internal/worker"
)

const sweepBatchSize = 100

type JobRequester interface {
	PublishWeatherJobRequested(ctx context.Context, jobID string, attempt int) error
}

// Sweeper re-requests jobs stuck in queued and fails jobs that have been
// running for longer than the job timeout.
type Sweeper struct {
	jobs         JobStore
	requester    JobRequester
	updates      UpdatePublisher
	requeueAfter time.Duration
	jobTimeout   time.Duration
	now          func() time.Time
}

func NewSweeper(jobs JobStore, requester JobRequester, updates UpdatePublisher, requeueAfter, jobTimeout time.Duration) *Sweeper {
	if requeueAfter <= 0 {
		requeueAfter = 5 * time.Minute
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	return &Sweeper{
		jobs:         jobs,
		requester:    requester,
		updates:      updates,
		requeueAfter: requeueAfter,
		jobTimeout:   jobTimeout,
		now:          time.Now,
	}
}

// Register makes the sweep runnable as a pool job of type JobTypeSweep.
func (s *Sweeper) Register(pool worker.Pool) {
	pool.RegisterJob(JobTypeSweep, func(ctx context.Context, _ map[string]any) error {
		return s.Sweep(ctx)
	})
}

func (s *Sweeper) Sweep(ctx context.Context) error {
	return errors.Join(s.requeueQueued(ctx), s.expireRunning(ctx))
}

func (s *Sweeper) requeueQueued(ctx context.Context) error {
	now := s.now()
	stale, err := s.jobs.ListStale(ctx, models.WeatherJobQueued, now.Add(-s.requeueAfter), sweepBatchSize)
	if err != nil {
		return err
	}

	var errs []error
	for _, job := range stale {
		attempt := int(now.Sub(job.CreatedAt)/s.requeueAfter) + 1
		if err := s.requester.PublishWeatherJobRequested(ctx, job.ID, attempt); err != nil {
			errs = append(errs, fmt.Errorf("requeue %s: %w", job.ID, err))
			continue
		}
		if err := s.jobs.Touch(ctx, job.ID); err != nil && !errors.Is(err, models.ErrInvalidState) {
			errs = append(errs, err)
			continue
		}
		slog.Info("weather job re-requested", "job_id", job.ID, "attempt", attempt)
	}
	return errors.Join(errs...)
}

func (s *Sweeper) expireRunning(ctx context.Context) error {
	stale, err := s.jobs.ListStale(ctx, models.WeatherJobRunning, s.now().Add(-s.jobTimeout), sweepBatchSize)
	if err != nil {
		return err
	}

	var errs []error
	for _, job := range stale {
		msg := fmt.Sprintf("job exceeded timeout of %s", s.jobTimeout)
		failed, err := s.jobs.Transition(ctx, models.WeatherJobTransition{
			JobID:        job.ID,
			To:           models.WeatherJobFailed,
			ErrorMessage: &msg,
		})
		if errors.Is(err, models.ErrInvalidState) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Warn("weather job timed out", "job_id", job.ID)
		if s.updates != nil {
			if err := s.updates.Publish(ctx, *failed); err != nil {
				slog.Warn("failed to publish job update", "job_id", job.ID, "error", err)
			}
		}
	}
	return errors.Join(errs...)
}
