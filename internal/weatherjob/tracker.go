package weatherjob

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"agrisa-ops/internal/metrics"
	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/cenkalti/backoff/v4"
)

// Gateway is the part of the external data gateway the tracker needs.
type Gateway interface {
	CreateWeatherJob(ctx context.Context, params models.WeatherJobParams) (*models.WeatherJob, error)
	GetWeatherJob(ctx context.Context, jobID string) (*models.WeatherJob, error)
}

type Config struct {
	PollInitialInterval time.Duration
	PollMaxInterval     time.Duration
	MaxRangeDays        int
}

func DefaultConfig() Config {
	return Config{
		PollInitialInterval: 2 * time.Second,
		PollMaxInterval:     30 * time.Second,
		MaxRangeDays:        366,
	}
}

// Tracker submits weather download jobs and observes them until they reach
// a terminal status. Push updates come from the hub when one is set; polling
// with exponential backoff runs alongside as a fallback.
type Tracker struct {
	gateway Gateway
	hub     *Hub
	cfg     Config
}

func NewTracker(gateway Gateway, hub *Hub, cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.PollInitialInterval <= 0 {
		cfg.PollInitialInterval = def.PollInitialInterval
	}
	if cfg.PollMaxInterval < cfg.PollInitialInterval {
		cfg.PollMaxInterval = max(def.PollMaxInterval, cfg.PollInitialInterval)
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = def.MaxRangeDays
	}
	return &Tracker{gateway: gateway, hub: hub, cfg: cfg}
}

// Submit validates the request locally and asks the gateway to create the
// job. Invalid input never reaches the gateway.
func (t *Tracker) Submit(ctx context.Context, dataset models.WeatherDataset, provinces []string, dateRange models.DateRange) (*models.WeatherJob, error) {
	params, err := t.validate(dataset, provinces, dateRange)
	if err != nil {
		return nil, err
	}

	job, err := t.gateway.CreateWeatherJob(ctx, params)
	if err != nil {
		return nil, err
	}

	metrics.WeatherJobsSubmitted.WithLabelValues(string(dataset)).Inc()
	slog.Info("weather job submitted", "job_id", job.ID, "dataset", dataset, "provinces", len(params.Provinces))
	return job, nil
}

func (t *Tracker) validate(dataset models.WeatherDataset, provinces []string, dateRange models.DateRange) (models.WeatherJobParams, error) {
	if !dataset.IsValid() {
		return models.WeatherJobParams{}, fmt.Errorf("%w: unknown dataset %q", models.ErrInvalidParameter, dataset)
	}
	if err := dateRange.Validate(); err != nil {
		return models.WeatherJobParams{}, err
	}
	if days := dateRange.Days(); days > t.cfg.MaxRangeDays {
		return models.WeatherJobParams{}, fmt.Errorf("%w: date range covers %d days, limit is %d",
			models.ErrInvalidParameter, days, t.cfg.MaxRangeDays)
	}

	codes := utils.NormalizeIDs(provinces)
	if len(codes) == 0 {
		return models.WeatherJobParams{}, fmt.Errorf("%w: at least one province is required", models.ErrInvalidParameter)
	}
	var unknown []string
	for _, code := range codes {
		if _, ok := models.LookupProvince(code); !ok {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return models.WeatherJobParams{}, fmt.Errorf("%w: unknown provinces: %s",
			models.ErrInvalidParameter, strings.Join(unknown, ", "))
	}

	return models.WeatherJobParams{
		Dataset:   dataset,
		Provinces: codes,
		DateStart: dateRange.Start,
		DateEnd:   dateRange.End,
	}, nil
}

// Observe returns a lazy sequence of status snapshots for jobID. Every
// range over it starts a fresh observation. Statuses only move forward, and
// the sequence ends right after the single terminal snapshot. A gateway
// error or ctx cancellation is yielded once as the last element.
func (t *Tracker) Observe(ctx context.Context, jobID string) iter.Seq2[models.WeatherJob, error] {
	return func(yield func(models.WeatherJob, error) bool) {
		if strings.TrimSpace(jobID) == "" {
			yield(models.WeatherJob{}, fmt.Errorf("%w: job id is required", models.ErrInvalidParameter))
			return
		}

		var updates <-chan models.WeatherJob
		if t.hub != nil {
			ch, cancel := t.hub.Watch(jobID)
			defer cancel()
			updates = ch
		}

		filter := &monotonicFilter{}
		// emit reports whether observation should continue.
		emit := func(job models.WeatherJob) bool {
			if !filter.accept(job.Status) {
				return true
			}
			metrics.WeatherJobNotifications.WithLabelValues(string(job.Status)).Inc()
			if !yield(job, nil) {
				return false
			}
			return !filter.done()
		}

		job, err := t.gateway.GetWeatherJob(ctx, jobID)
		if err != nil {
			yield(models.WeatherJob{}, err)
			return
		}
		if !emit(*job) {
			return
		}

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = t.cfg.PollInitialInterval
		bo.MaxInterval = t.cfg.PollMaxInterval
		bo.MaxElapsedTime = 0
		bo.Reset()

		timer := time.NewTimer(bo.NextBackOff())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				yield(models.WeatherJob{}, ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updates = nil
					continue
				}
				if !emit(update) {
					return
				}

			case <-timer.C:
				job, err := t.gateway.GetWeatherJob(ctx, jobID)
				if err != nil {
					if ctx.Err() != nil {
						yield(models.WeatherJob{}, ctx.Err())
						return
					}
					yield(models.WeatherJob{}, err)
					return
				}
				if !emit(*job) {
					return
				}
				timer.Reset(bo.NextBackOff())
			}
		}
	}
}

// Wait drains Observe and returns the terminal snapshot.
func (t *Tracker) Wait(ctx context.Context, jobID string) (*models.WeatherJob, error) {
	var last *models.WeatherJob
	for job, err := range t.Observe(ctx, jobID) {
		if err != nil {
			return nil, err
		}
		last = &job
	}
	if last == nil || !last.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: job %s did not reach a terminal status", models.ErrInvalidState, jobID)
	}
	return last, nil
}

// Get returns the current snapshot of a job.
func (t *Tracker) Get(ctx context.Context, jobID string) (*models.WeatherJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id is required", models.ErrInvalidParameter)
	}
	return t.gateway.GetWeatherJob(ctx, jobID)
}

// Result returns the file reference of a completed job.
func Result(job *models.WeatherJob) (string, error) {
	if job == nil {
		return "", fmt.Errorf("%w: job is required", models.ErrInvalidParameter)
	}
	switch job.Status {
	case models.WeatherJobCompleted:
		if job.FileURL == nil || *job.FileURL == "" {
			return "", fmt.Errorf("%w: job %s completed without a file", models.ErrInvalidState, job.ID)
		}
		return *job.FileURL, nil
	case models.WeatherJobFailed:
		msg := "unknown error"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return "", fmt.Errorf("%w: job %s failed: %s", models.ErrInvalidState, job.ID, msg)
	default:
		return "", fmt.Errorf("%w: job %s is %s", models.ErrInvalidState, job.ID, job.Status)
	}
}
