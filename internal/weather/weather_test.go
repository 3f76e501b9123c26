package weather

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"agrisa-ops/internal/config"
	"agrisa-ops/internal/event"
	"agrisa-ops/internal/models"
	"agrisa-ops/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type memoryJobs struct {
	mu      sync.Mutex
	jobs    map[string]*models.WeatherJob
	touched []string
}

func newMemoryJobs(jobs ...models.WeatherJob) *memoryJobs {
	m := &memoryJobs{jobs: map[string]*models.WeatherJob{}}
	for _, j := range jobs {
		job := j
		m.jobs[j.ID] = &job
	}
	return m
}

func (m *memoryJobs) GetByID(_ context.Context, id string) (*models.WeatherJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: weather job %s", models.ErrNotFound, id)
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobs) Transition(_ context.Context, t models.WeatherJobTransition) (*models.WeatherJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[t.JobID]
	if !ok {
		return nil, fmt.Errorf("%w: weather job %s", models.ErrNotFound, t.JobID)
	}
	if !slices.Contains(t.To.Predecessors(), job.Status) {
		return nil, fmt.Errorf("%w: weather job %s is %s", models.ErrInvalidState, t.JobID, job.Status)
	}
	job.Status = t.To
	if t.ErrorMessage != nil {
		job.ErrorMessage = t.ErrorMessage
	}
	if t.FileURL != nil {
		job.FileURL = t.FileURL
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobs) ListStale(_ context.Context, status models.WeatherJobStatus, cutoff time.Time, limit int) ([]models.WeatherJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WeatherJob
	for _, job := range m.jobs {
		if job.Status == status && job.UpdatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memoryJobs) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return nil
}

func (m *memoryJobs) status(id string) models.WeatherJobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (f *fakeFetcher) FetchDaySummary(_ context.Context, lat, lon float64, date models.Date) (*DaySummary, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	s := &DaySummary{Lat: lat, Lon: lon, Date: date.String()}
	s.Precipitation.Total = float64(date.Day())
	s.Temperature.Min = 24
	s.Temperature.Max = 33.5
	return s, nil
}

type memoryObjects struct {
	objects map[string][]byte
}

func (m *memoryObjects) UploadBytes(_ context.Context, bucket, object string, data []byte, _ string) error {
	m.objects[bucket+"/"+object] = data
	return nil
}

func (m *memoryObjects) GetPresignedURL(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	return "https://minio.local/" + bucket + "/" + object, nil
}

type recordedUpdates struct {
	mu       sync.Mutex
	statuses []models.WeatherJobStatus
}

func (r *recordedUpdates) Publish(_ context.Context, job models.WeatherJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, job.Status)
	return nil
}

type stubPool struct {
	registered map[string]worker.JobFunc
	submitted  []worker.JobPayload
	submitErr  error
}

func newStubPool() *stubPool {
	return &stubPool{registered: map[string]worker.JobFunc{}}
}

func (p *stubPool) Start(context.Context, *sync.WaitGroup) {}

func (p *stubPool) SubmitJob(_ context.Context, job worker.JobPayload) error {
	if p.submitErr != nil {
		return p.submitErr
	}
	p.submitted = append(p.submitted, job)
	return nil
}

func (p *stubPool) RegisterJob(jobType string, fn worker.JobFunc) { p.registered[jobType] = fn }

func (p *stubPool) GetName() string { return "stub" }

func queuedJob(id string) models.WeatherJob {
	return models.WeatherJob{
		ID:        id,
		Dataset:   models.DatasetDailyPrecipitation,
		Provinces: []string{"can-tho", "an-giang"},
		DateStart: models.NewDate(2026, 3, 1),
		DateEnd:   models.NewDate(2026, 3, 3),
		Status:    models.WeatherJobQueued,
	}
}

func newTestExecutor(jobs *memoryJobs, fetcher DaySummaryFetcher, objects *memoryObjects, updates UpdatePublisher) (*Executor, *stubPool) {
	pool := newStubPool()
	exec := NewExecutor(jobs, fetcher, objects, updates, pool, ExecutorConfig{
		Bucket:        "weather-exports",
		PresignExpiry: time.Hour,
		JobTimeout:    time.Minute,
	})
	return exec, pool
}

// ============================================================================
// TEST SUITE 1: EXECUTOR
// ============================================================================

func TestExecutor_CompletesJob(t *testing.T) {
	jobs := newMemoryJobs(queuedJob("job-1"))
	fetcher := &fakeFetcher{}
	objects := &memoryObjects{objects: map[string][]byte{}}
	updates := &recordedUpdates{}
	exec, _ := newTestExecutor(jobs, fetcher, objects, updates)

	require.NoError(t, exec.Execute(context.Background(), "job-1"))

	job, err := jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.WeatherJobCompleted, job.Status)
	require.NotNil(t, job.FileURL)
	assert.Equal(t, "https://minio.local/weather-exports/job-1/daily_precipitation_2026-03-01_2026-03-03.csv", *job.FileURL)
	assert.Equal(t, 6, fetcher.calls, "2 provinces x 3 days")
	assert.Equal(t, []models.WeatherJobStatus{models.WeatherJobRunning, models.WeatherJobCompleted}, updates.statuses)

	data := objects.objects["weather-exports/job-1/daily_precipitation_2026-03-01_2026-03-03.csv"]
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, []string{"province", "date", "lat", "lon", "precipitation_mm"}, records[0])
	assert.Equal(t, "an-giang", records[1][0], "rows sorted by province")
	assert.Equal(t, "2026-03-01", records[1][1])
	assert.Equal(t, "1", records[1][4])
}

func TestExecutor_FailureRecorded(t *testing.T) {
	jobs := newMemoryJobs(queuedJob("job-1"))
	fetcher := &fakeFetcher{fail: fmt.Errorf("%w: openweather down", models.ErrUnavailable)}
	updates := &recordedUpdates{}
	exec, _ := newTestExecutor(jobs, fetcher, &memoryObjects{objects: map[string][]byte{}}, updates)

	require.NoError(t, exec.Execute(context.Background(), "job-1"))

	job, err := jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.WeatherJobFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "weather data source unavailable, submit the job again later", *job.ErrorMessage)
	assert.NotContains(t, *job.ErrorMessage, "openweather down", "causes stay in the log")
	assert.Nil(t, job.FileURL)
	assert.Equal(t, []models.WeatherJobStatus{models.WeatherJobRunning, models.WeatherJobFailed}, updates.statuses)
}

func TestExecutor_FailedJobDoesNotExposeAPIKey(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	closedURL := server.URL
	server.Close()

	client := NewOpenWeatherClient(
		config.WeatherAPIConfig{APIKey: "SUPER-SECRET-KEY", BaseURL: closedURL, Timeout: time.Second},
		config.BreakerConfig{MaxFailures: 3, OpenTimeout: time.Minute},
	)
	jobs := newMemoryJobs(queuedJob("job-1"))
	exec, _ := newTestExecutor(jobs, client, &memoryObjects{objects: map[string][]byte{}}, nil)

	require.NoError(t, exec.Execute(context.Background(), "job-1"))

	job, err := jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.WeatherJobFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.NotContains(t, *job.ErrorMessage, "SUPER-SECRET-KEY")
	assert.NotContains(t, *job.ErrorMessage, "appid")
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("fetch can-tho: %w", context.DeadlineExceeded), "weather export timed out"},
		{fmt.Errorf("%w: upload: %w", errExportStorage, errors.New("minio: access denied")), "weather export could not be stored"},
		{fmt.Errorf("%w: weather API returned 400", models.ErrInvalidParameter), "weather data request rejected for these job parameters"},
		{fmt.Errorf("%w: openweather: refused", models.ErrUnavailable), "weather data source unavailable, submit the job again later"},
		{errors.New("csv: bad row"), "weather export failed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, failureMessage(tt.err), tt.err.Error())
	}
}

func TestExecutor_RunsAtMostOnce(t *testing.T) {
	jobs := newMemoryJobs(queuedJob("job-1"))
	fetcher := &fakeFetcher{}
	exec, _ := newTestExecutor(jobs, fetcher, &memoryObjects{objects: map[string][]byte{}}, &recordedUpdates{})

	require.NoError(t, exec.Execute(context.Background(), "job-1"))
	calls := fetcher.calls
	require.NoError(t, exec.Execute(context.Background(), "job-1"))
	require.NoError(t, exec.Execute(context.Background(), "missing"))

	assert.Equal(t, calls, fetcher.calls, "duplicate request does not run the job again")
}

func TestExecutor_HandleRequestSubmitsToPool(t *testing.T) {
	exec, pool := newTestExecutor(newMemoryJobs(), &fakeFetcher{}, &memoryObjects{}, nil)
	require.Contains(t, pool.registered, JobTypeExecute)

	require.NoError(t, exec.HandleWeatherJobRequested(context.Background(), event.WeatherJobRequestedEvent{JobID: "job-7"}))
	require.Len(t, pool.submitted, 1)
	assert.Equal(t, "job-7", pool.submitted[0].Params["job_id"])

	pool.submitErr = worker.ErrPoolStopped
	err := exec.HandleWeatherJobRequested(context.Background(), event.WeatherJobRequestedEvent{JobID: "job-8"})
	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestExecutor_RunJobRequiresID(t *testing.T) {
	_, pool := newTestExecutor(newMemoryJobs(), &fakeFetcher{}, &memoryObjects{}, nil)

	err := pool.registered[JobTypeExecute](context.Background(), map[string]any{})

	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

// ============================================================================
// TEST SUITE 2: SWEEPER
// ============================================================================

type recordingRequester struct {
	requested []string
}

func (r *recordingRequester) PublishWeatherJobRequested(_ context.Context, jobID string, _ int) error {
	r.requested = append(r.requested, jobID)
	return nil
}

func TestSweeper(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	staleQueued := queuedJob("q-old")
	staleQueued.UpdatedAt = now.Add(-10 * time.Minute)
	freshQueued := queuedJob("q-new")
	freshQueued.UpdatedAt = now.Add(-time.Minute)
	staleRunning := queuedJob("r-old")
	staleRunning.Status = models.WeatherJobRunning
	staleRunning.UpdatedAt = now.Add(-time.Hour)

	jobs := newMemoryJobs(staleQueued, freshQueued, staleRunning)
	requester := &recordingRequester{}
	updates := &recordedUpdates{}
	sweeper := NewSweeper(jobs, requester, updates, 5*time.Minute, 30*time.Minute)
	sweeper.now = func() time.Time { return now }

	require.NoError(t, sweeper.Sweep(context.Background()))

	assert.Equal(t, []string{"q-old"}, requester.requested)
	assert.Equal(t, []string{"q-old"}, jobs.touched)
	assert.Equal(t, models.WeatherJobFailed, jobs.status("r-old"))
	assert.Equal(t, models.WeatherJobQueued, jobs.status("q-new"))
	assert.Equal(t, []models.WeatherJobStatus{models.WeatherJobFailed}, updates.statuses)
}

func TestSweeper_RegisteredOnPool(t *testing.T) {
	pool := newStubPool()
	sweeper := NewSweeper(newMemoryJobs(), &recordingRequester{}, nil, 0, 0)
	sweeper.Register(pool)

	require.Contains(t, pool.registered, JobTypeSweep)
	assert.NoError(t, pool.registered[JobTypeSweep](context.Background(), nil))
}

// ============================================================================
// TEST SUITE 3: OPENWEATHER CLIENT AND CSV
// ============================================================================

func TestOpenWeatherClient_FetchDaySummary(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/onecall/day_summary", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"lat":10.0452,"lon":105.7469,"date":"2026-03-01","units":"metric",
			"precipitation":{"total":12.5},"temperature":{"min":24.1,"max":33.2}}`)
	}))
	defer server.Close()

	client := NewOpenWeatherClient(
		config.WeatherAPIConfig{APIKey: "k", BaseURL: server.URL, Units: "metric", Timeout: time.Second},
		config.BreakerConfig{MaxFailures: 3, OpenTimeout: time.Minute},
	)

	summary, err := client.FetchDaySummary(context.Background(), 10.0452, 105.7469, models.NewDate(2026, 3, 1))
	require.NoError(t, err)

	assert.Equal(t, 12.5, summary.Precipitation.Total)
	assert.Equal(t, 33.2, summary.Temperature.Max)
	assert.Contains(t, gotQuery, "date=2026-03-01")
	assert.Contains(t, gotQuery, "appid=k")
	assert.Contains(t, gotQuery, "units=metric")
}

func TestOpenWeatherClient_ErrorClasses(t *testing.T) {
	status := http.StatusBadRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	client := NewOpenWeatherClient(
		config.WeatherAPIConfig{APIKey: "k", BaseURL: server.URL, Timeout: time.Second},
		config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute},
	)
	day := models.NewDate(2026, 3, 1)

	_, err := client.FetchDaySummary(context.Background(), 1, 2, day)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	status = http.StatusBadGateway
	for range 2 {
		_, err = client.FetchDaySummary(context.Background(), 1, 2, day)
		assert.ErrorIs(t, err, models.ErrUnavailable)
	}

	status = http.StatusOK
	_, err = client.FetchDaySummary(context.Background(), 1, 2, day)
	assert.ErrorIs(t, err, models.ErrUnavailable, "breaker is open after consecutive upstream failures")
}

func TestOpenWeatherClient_TransportErrorOmitsQuery(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	closedURL := server.URL
	server.Close()

	client := NewOpenWeatherClient(
		config.WeatherAPIConfig{APIKey: "SUPER-SECRET-KEY", BaseURL: closedURL, Timeout: time.Second},
		config.BreakerConfig{MaxFailures: 3, OpenTimeout: time.Minute},
	)

	_, err := client.FetchDaySummary(context.Background(), 1, 2, models.NewDate(2026, 3, 1))

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.NotContains(t, err.Error(), "SUPER-SECRET-KEY")
	assert.NotContains(t, err.Error(), "appid")
}

func TestOpenWeatherClient_MissingKey(t *testing.T) {
	client := NewOpenWeatherClient(config.WeatherAPIConfig{}, config.BreakerConfig{})

	_, err := client.FetchDaySummary(context.Background(), 1, 2, models.NewDate(2026, 1, 1))

	assert.ErrorIs(t, err, models.ErrUnavailable)
}

func TestRenderCSV(t *testing.T) {
	s := &DaySummary{Lat: 1.5, Lon: 2}
	s.Temperature.Min, s.Temperature.Max = 20, 30.25

	data, err := RenderCSV(models.DatasetDailyTemperature, []Observation{
		{Province: "ha-noi", Date: models.NewDate(2026, 1, 2), Summary: s},
		{Province: "ha-noi", Date: models.NewDate(2026, 1, 1), Summary: s},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "province,date,lat,lon,temp_min_c,temp_max_c"))
	assert.True(t, strings.HasPrefix(lines[1], "ha-noi,2026-01-01,1.5,2,20,30.25"))

	_, err = RenderCSV("hourly", nil)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = RenderCSV(models.DatasetDailySummary, []Observation{{Province: "ha-noi"}})
	assert.Error(t, err)
}

// ============================================================================
// TEST SUITE 4: GIN HANDLER
// ============================================================================

func TestJobHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewJobHandler(newMemoryJobs(queuedJob("job-1")), map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"minio":    func(context.Context) error { return errors.New("dial tcp: refused") },
	}).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weather/internal/api/v2/jobs/job-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"queued"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weather/internal/api/v2/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), models.CodeNotFound)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkhealth", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
