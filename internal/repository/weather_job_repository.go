package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agrisa-ops/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type WeatherJobRepository struct {
	db *sqlx.DB
}

func NewWeatherJobRepository(db *sqlx.DB) *WeatherJobRepository {
	return &WeatherJobRepository{db: db}
}

const weatherJobColumns = `id, dataset, provinces, date_start, date_end, status, error_message, file_url,
	created_at, updated_at, started_at, finished_at`

func (r *WeatherJobRepository) Create(ctx context.Context, params models.WeatherJobParams) (*models.WeatherJob, error) {
	now := time.Now()
	job := models.WeatherJob{
		ID:        uuid.NewString(),
		Dataset:   params.Dataset,
		Provinces: pq.StringArray(params.Provinces),
		DateStart: params.DateStart,
		DateEnd:   params.DateEnd,
		Status:    models.WeatherJobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO weather_jobs (id, dataset, provinces, date_start, date_end, status, created_at, updated_at)
		VALUES (:id, :dataset, :provinces, :date_start, :date_end, :status, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return nil, fmt.Errorf("failed to create weather job: %w", err)
	}
	return &job, nil
}

func (r *WeatherJobRepository) GetByID(ctx context.Context, id string) (*models.WeatherJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: weather job %s", models.ErrNotFound, id)
	}

	var job models.WeatherJob
	query := `SELECT ` + weatherJobColumns + ` FROM weather_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: weather job %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get weather job %s: %w", id, err)
	}
	return &job, nil
}

// Transition applies a status change only when the job currently sits in
// one of the target status's predecessors. A lost race yields
// ErrInvalidState, so at most one executor wins each transition.
func (r *WeatherJobRepository) Transition(ctx context.Context, t models.WeatherJobTransition) (*models.WeatherJob, error) {
	from := t.To.Predecessors()
	if len(from) == 0 {
		return nil, fmt.Errorf("%w: cannot transition to %s", models.ErrInvalidParameter, t.To)
	}

	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := `
		UPDATE weather_jobs SET
			status = $2,
			error_message = COALESCE($3, error_message),
			file_url = COALESCE($4, file_url),
			started_at = CASE WHEN $2 = 'running' THEN NOW() ELSE started_at END,
			finished_at = CASE WHEN $2 IN ('completed', 'failed') THEN NOW() ELSE finished_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
		RETURNING ` + weatherJobColumns

	var job models.WeatherJob
	err := r.db.GetContext(ctx, &job, query, t.JobID, string(t.To), t.ErrorMessage, t.FileURL, pq.Array(statuses))
	if err == nil {
		return &job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition weather job %s: %w", t.JobID, err)
	}

	current, getErr := r.GetByID(ctx, t.JobID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: weather job %s is %s, cannot move to %s",
		models.ErrInvalidState, t.JobID, current.Status, t.To)
}

// ListStale returns jobs in status whose last update is older than cutoff.
func (r *WeatherJobRepository) ListStale(ctx context.Context, status models.WeatherJobStatus, cutoff time.Time, limit int) ([]models.WeatherJob, error) {
	query := `SELECT ` + weatherJobColumns + `
		FROM weather_jobs
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`

	var jobs []models.WeatherJob
	if err := r.db.SelectContext(ctx, &jobs, query, string(status), cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale %s weather jobs: %w", status, err)
	}
	return jobs, nil
}

// Touch bumps updated_at of a queued job after it has been re-requested.
func (r *WeatherJobRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE weather_jobs SET updated_at = NOW() WHERE id = $1 AND status = 'queued'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to touch weather job %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: weather job %s is no longer queued", models.ErrInvalidState, id)
	}
	return nil
}
