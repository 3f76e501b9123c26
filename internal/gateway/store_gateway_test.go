package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"agrisa-ops/internal/config"
	"agrisa-ops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type fakeProducts struct {
	err   error
	calls int
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*models.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: id, Status: models.ProductActive}, nil
}

type fakeEnrollments struct {
	rows []models.EnrollmentRequest
}

func (f *fakeEnrollments) CreateBatch(_ context.Context, rows []models.EnrollmentRequest) ([]models.Enrollment, error) {
	f.rows = rows
	out := make([]models.Enrollment, len(rows))
	for i, row := range rows {
		out[i] = models.Enrollment{ID: fmt.Sprintf("e-%d", i), FarmerID: row.FarmerID, PlotID: row.PlotID}
	}
	return out, nil
}

type fakeJobs struct {
	job *models.WeatherJob
	err error
}

func (f *fakeJobs) Create(_ context.Context, params models.WeatherJobParams) (*models.WeatherJob, error) {
	f.job = &models.WeatherJob{ID: "job-1", Dataset: params.Dataset, Provinces: params.Provinces, Status: models.WeatherJobQueued}
	return f.job, nil
}

func (f *fakeJobs) GetByID(_ context.Context, id string) (*models.WeatherJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

type fakePublisher struct {
	err       error
	published []string
}

func (f *fakePublisher) PublishWeatherJobRequested(_ context.Context, jobID string, _ int) error {
	f.published = append(f.published, jobID)
	return f.err
}

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute, Interval: time.Minute}
}

// ============================================================================
// TEST SUITE 1: ERROR NORMALIZATION
// ============================================================================

func TestNormalize(t *testing.T) {
	assert.NoError(t, normalize(nil))
	assert.ErrorIs(t, normalize(sql.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, normalize(errors.New("dial tcp: connection refused")), models.ErrUnavailable)

	domain := fmt.Errorf("%w: product p1", models.ErrNotFound)
	assert.Same(t, domain, normalize(domain))
}

func TestBreaker_DomainErrorsDoNotTrip(t *testing.T) {
	products := &fakeProducts{err: fmt.Errorf("%w: product p1", models.ErrNotFound)}
	gw := NewStoreGateway(Stores{Products: products}, testBreakerConfig())

	for range 5 {
		_, err := gw.FetchProduct(context.Background(), "p1")
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	assert.Equal(t, 5, products.calls)
}

func TestBreaker_OpensOnInfraFailures(t *testing.T) {
	products := &fakeProducts{err: errors.New("connection reset")}
	gw := NewStoreGateway(Stores{Products: products}, testBreakerConfig())

	for range 2 {
		_, err := gw.FetchProduct(context.Background(), "p1")
		assert.ErrorIs(t, err, models.ErrUnavailable)
	}

	_, err := gw.FetchProduct(context.Background(), "p1")
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.True(t, models.IsRetryable(err))
	assert.Equal(t, 2, products.calls, "open breaker short-circuits the store")
}

func TestBreakerSuccess(t *testing.T) {
	assert.True(t, breakerSuccess(nil))
	assert.True(t, breakerSuccess(fmt.Errorf("%w: plot p9", models.ErrInvalidReference)))
	assert.True(t, breakerSuccess(fmt.Errorf("query farmers: %w", context.Canceled)))
	assert.False(t, breakerSuccess(fmt.Errorf("%w: replica lagging", models.ErrUnavailable)))
	assert.False(t, breakerSuccess(context.DeadlineExceeded))
	assert.False(t, breakerSuccess(errors.New("connection reset")))
}

func TestBreaker_OpensOnStoreUnavailable(t *testing.T) {
	products := &fakeProducts{err: fmt.Errorf("%w: replica lagging", models.ErrUnavailable)}
	gw := NewStoreGateway(Stores{Products: products}, testBreakerConfig())

	for range 3 {
		_, err := gw.FetchProduct(context.Background(), "p1")
		assert.ErrorIs(t, err, models.ErrUnavailable)
	}
	assert.Equal(t, 2, products.calls, "breaker opens after MaxFailures unavailable answers")
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	products := &fakeProducts{err: context.Canceled}
	gw := NewStoreGateway(Stores{Products: products}, testBreakerConfig())

	for range 4 {
		_, err := gw.FetchProduct(context.Background(), "p1")
		assert.Error(t, err)
	}
	assert.Equal(t, 4, products.calls)
}

// ============================================================================
// TEST SUITE 2: ENROLLMENTS
// ============================================================================

func TestCreateEnrollments_Totals(t *testing.T) {
	store := &fakeEnrollments{}
	gw := NewStoreGateway(Stores{Enrollments: store}, testBreakerConfig())
	plot := "p1"

	result, err := gw.CreateEnrollments(context.Background(), "prod-1", []models.EnrollmentRequest{
		{ProductID: "prod-1", FarmerID: "f1", PlotID: &plot, AreaHa: 2, Premium: 50, SumInsured: 2000},
		{ProductID: "prod-1", FarmerID: "f2", AreaHa: 1.5, Premium: 37.5, SumInsured: 1500},
	})
	require.NoError(t, err)

	assert.Len(t, result.Enrollments, 2)
	assert.Equal(t, 3.5, result.TotalAreaHa)
	assert.Equal(t, 87.5, result.TotalPremium)
	assert.Equal(t, 3500.0, result.TotalSumInsured)
}

func TestCreateEnrollments_RejectsForeignProduct(t *testing.T) {
	store := &fakeEnrollments{}
	gw := NewStoreGateway(Stores{Enrollments: store}, testBreakerConfig())

	_, err := gw.CreateEnrollments(context.Background(), "prod-1", []models.EnrollmentRequest{
		{ProductID: "prod-2", FarmerID: "f1"},
	})

	assert.ErrorIs(t, err, models.ErrInvalidParameter)
	assert.Nil(t, store.rows)

	_, err = gw.CreateEnrollments(context.Background(), "prod-1", nil)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

// ============================================================================
// TEST SUITE 3: WEATHER JOBS
// ============================================================================

func TestCreateWeatherJob_PublishesRequest(t *testing.T) {
	jobs := &fakeJobs{}
	publisher := &fakePublisher{}
	gw := NewStoreGateway(Stores{WeatherJobs: jobs, Requests: publisher}, testBreakerConfig())

	job, err := gw.CreateWeatherJob(context.Background(), models.WeatherJobParams{
		Dataset:   models.DatasetDailySummary,
		Provinces: []string{"an-giang"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.WeatherJobQueued, job.Status)
	assert.Equal(t, []string{"job-1"}, publisher.published)
}

func TestCreateWeatherJob_PublishFailureKeepsJob(t *testing.T) {
	jobs := &fakeJobs{}
	publisher := &fakePublisher{err: errors.New("channel closed")}
	gw := NewStoreGateway(Stores{WeatherJobs: jobs, Requests: publisher}, testBreakerConfig())

	job, err := gw.CreateWeatherJob(context.Background(), models.WeatherJobParams{Dataset: models.DatasetDailySummary})

	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestGetWeatherJob_Errors(t *testing.T) {
	gw := NewStoreGateway(Stores{WeatherJobs: &fakeJobs{err: sql.ErrNoRows}}, testBreakerConfig())

	_, err := gw.GetWeatherJob(context.Background(), "job-9")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = gw.GetWeatherJob(context.Background(), " ")
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestSubscribeToJobUpdates_NotConfigured(t *testing.T) {
	gw := NewStoreGateway(Stores{}, testBreakerConfig())

	_, err := gw.SubscribeToJobUpdates(context.Background(), func(models.WeatherJob) {})

	assert.ErrorIs(t, err, models.ErrUnavailable)
}
