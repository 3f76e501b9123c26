package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agrisa-ops/internal/event"
	"agrisa-ops/internal/metrics"
	"agrisa-ops/internal/models"
	"agrisa-ops/internal/worker"

	"golang.org/x/sync/errgroup"
)

const (
	JobTypeExecute = "weather_job.execute"
	JobTypeSweep   = "weather_job.sweep"

	fetchConcurrency = 4
)

type JobStore interface {
	GetByID(ctx context.Context, id string) (*models.WeatherJob, error)
	Transition(ctx context.Context, t models.WeatherJobTransition) (*models.WeatherJob, error)
	ListStale(ctx context.Context, status models.WeatherJobStatus, cutoff time.Time, limit int) ([]models.WeatherJob, error)
	Touch(ctx context.Context, id string) error
}

type ObjectStore interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
	GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error)
}

// UpdatePublisher broadcasts job snapshots to observers.
type UpdatePublisher interface {
	Publish(ctx context.Context, job models.WeatherJob) error
}

type ExecutorConfig struct {
	Bucket        string
	PresignExpiry time.Duration
	JobTimeout    time.Duration
}

// Executor runs weather download jobs on a worker pool. Each job is claimed
// with a guarded queued->running transition, so duplicate requests for the
// same job run it at most once.
type Executor struct {
	jobs    JobStore
	fetcher DaySummaryFetcher
	storage ObjectStore
	updates UpdatePublisher
	pool    worker.Pool
	cfg     ExecutorConfig
	now     func() time.Time
}

func NewExecutor(jobs JobStore, fetcher DaySummaryFetcher, storage ObjectStore, updates UpdatePublisher, pool worker.Pool, cfg ExecutorConfig) *Executor {
	e := &Executor{
		jobs:    jobs,
		fetcher: fetcher,
		storage: storage,
		updates: updates,
		pool:    pool,
		cfg:     cfg,
		now:     time.Now,
	}
	pool.RegisterJob(JobTypeExecute, e.runJob)
	return e
}

// HandleWeatherJobRequested hands the job to the pool. A stopped or saturated
// pool reports ErrUnavailable so the request is redelivered.
func (e *Executor) HandleWeatherJobRequested(ctx context.Context, evt event.WeatherJobRequestedEvent) error {
	err := e.pool.SubmitJob(ctx, worker.JobPayload{
		JobID:  evt.JobID,
		Type:   JobTypeExecute,
		Params: map[string]any{"job_id": evt.JobID},
	})
	if err != nil {
		return fmt.Errorf("%w: cannot schedule weather job %s: %w", models.ErrUnavailable, evt.JobID, err)
	}
	return nil
}

func (e *Executor) runJob(ctx context.Context, params map[string]any) error {
	jobID, _ := params["job_id"].(string)
	if jobID == "" {
		return fmt.Errorf("%w: job_id param is required", models.ErrInvalidParameter)
	}
	return e.Execute(ctx, jobID)
}

// Execute claims and runs one job. Failures of the download itself end in
// the failed status and are not returned; only bookkeeping errors are.
func (e *Executor) Execute(ctx context.Context, jobID string) error {
	started := e.now()

	job, err := e.jobs.Transition(ctx, models.WeatherJobTransition{JobID: jobID, To: models.WeatherJobRunning})
	if err != nil {
		if errors.Is(err, models.ErrInvalidState) || errors.Is(err, models.ErrNotFound) {
			slog.Info("weather job not claimable, skipping", "job_id", jobID, "reason", err)
			return nil
		}
		return err
	}
	e.announce(ctx, job)

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.JobTimeout)
	fileURL, runErr := e.produce(runCtx, job)
	cancel()

	next := models.WeatherJobTransition{JobID: jobID, To: models.WeatherJobCompleted, FileURL: &fileURL}
	outcome := string(models.WeatherJobCompleted)
	if runErr != nil {
		msg := failureMessage(runErr)
		next = models.WeatherJobTransition{JobID: jobID, To: models.WeatherJobFailed, ErrorMessage: &msg}
		outcome = string(models.WeatherJobFailed)
		slog.Error("weather job failed", "job_id", jobID, "error", runErr)
	}

	finished, err := e.jobs.Transition(ctx, next)
	if err != nil {
		return fmt.Errorf("failed to record %s for weather job %s: %w", next.To, jobID, err)
	}
	e.announce(ctx, finished)

	metrics.WeatherJobDuration.WithLabelValues(outcome).Observe(e.now().Sub(started).Seconds())
	slog.Info("weather job finished", "job_id", jobID, "status", finished.Status, "duration", e.now().Sub(started))
	return nil
}

// produce fetches every province-day, renders the CSV export and returns a
// presigned link to it.
func (e *Executor) produce(ctx context.Context, job *models.WeatherJob) (string, error) {
	var days []models.Date
	_ = job.DateRange().Each(func(d models.Date) error {
		days = append(days, d)
		return nil
	})

	provinces := make([]models.Province, 0, len(job.Provinces))
	for _, code := range job.Provinces {
		province, ok := models.LookupProvince(code)
		if !ok {
			return "", fmt.Errorf("%w: unknown province %s", models.ErrInvalidParameter, code)
		}
		provinces = append(provinces, province)
	}

	type task struct {
		province models.Province
		obs      *Observation
	}
	observations := make([]Observation, 0, len(provinces)*len(days))
	for _, province := range provinces {
		for _, day := range days {
			observations = append(observations, Observation{Province: province.Code, Date: day})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i := range observations {
		t := task{province: provinces[i/len(days)], obs: &observations[i]}
		g.Go(func() error {
			summary, err := e.fetcher.FetchDaySummary(gctx, t.province.Lat, t.province.Lon, t.obs.Date)
			if err != nil {
				return fmt.Errorf("fetch %s %s: %w", t.province.Code, t.obs.Date, err)
			}
			t.obs.Summary = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	data, err := RenderCSV(job.Dataset, observations)
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("%s/%s_%s_%s.csv", job.ID, job.Dataset, job.DateStart, job.DateEnd)
	if err := e.storage.UploadBytes(ctx, e.cfg.Bucket, objectName, data, "text/csv"); err != nil {
		return "", fmt.Errorf("%w: upload: %w", errExportStorage, err)
	}
	url, err := e.storage.GetPresignedURL(ctx, e.cfg.Bucket, objectName, e.cfg.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %w", errExportStorage, err)
	}
	return url, nil
}

var errExportStorage = errors.New("export storage failed")

// failureMessage is the error_message stored on a failed job. Job records
// are served to API callers, so it names the failure class only and the
// cause is logged instead.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "weather export timed out"
	case errors.Is(err, errExportStorage):
		return "weather export could not be stored"
	case errors.Is(err, models.ErrInvalidParameter):
		return "weather data request rejected for these job parameters"
	case errors.Is(err, models.ErrUnavailable):
		return "weather data source unavailable, submit the job again later"
	default:
		return "weather export failed"
	}
}

// announce counts a transition and pushes the snapshot to subscribers. Push
// is best effort; observers fall back to polling.
func (e *Executor) announce(ctx context.Context, job *models.WeatherJob) {
	metrics.WeatherJobTransitions.WithLabelValues(string(job.Status)).Inc()
	if e.updates == nil {
		return
	}
	if err := e.updates.Publish(ctx, *job); err != nil {
		slog.Warn("failed to publish job update", "job_id", job.ID, "status", job.Status, "error", err)
	}
}
