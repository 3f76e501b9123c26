package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agrisa-ops/internal/assignment"
	"agrisa-ops/internal/config"
	"agrisa-ops/internal/metrics"
	"agrisa-ops/internal/models"

	"github.com/sony/gobreaker"
)

type Stores struct {
	Farmers     FarmerStore
	Plots       PlotStore
	Products    ProductStore
	Enrollments EnrollmentStore
	WeatherJobs WeatherJobStore
	Requests    JobRequestPublisher
	Updates     JobUpdateSubscriber
}

// StoreGateway implements Gateway on top of postgres, Redis and RabbitMQ.
// Calls go through a circuit breaker; only unavailability trips it.
type StoreGateway struct {
	stores Stores
	cb     *gobreaker.CircuitBreaker
}

var _ Gateway = (*StoreGateway)(nil)

func NewStoreGateway(stores Stores, cfg config.BreakerConfig) *StoreGateway {
	return &StoreGateway{
		stores: stores,
		cb:     NewBreaker("assignment-gateway", cfg),
	}
}

// NewBreaker builds a breaker that opens after cfg.MaxFailures consecutive
// infrastructure failures or ErrUnavailable answers.
func NewBreaker(name string, cfg config.BreakerConfig) *gobreaker.CircuitBreaker {
	fails := uint32(max(cfg.MaxFailures, 1))
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: cfg.Interval,
		Timeout:  cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.GatewayBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

func call[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	_, err := cb.Execute(func() (any, error) {
		v, err := fn()
		out = v
		return nil, err
	})
	if err != nil {
		var zero T
		return zero, normalize(err)
	}
	return out, nil
}

func (g *StoreGateway) ListFarmers(ctx context.Context, filter models.FarmerFilter) ([]models.Farmer, error) {
	return call(g.cb, func() ([]models.Farmer, error) {
		return g.stores.Farmers.List(ctx, filter)
	})
}

func (g *StoreGateway) FetchFarmers(ctx context.Context, ids []string) ([]models.Farmer, error) {
	return call(g.cb, func() ([]models.Farmer, error) {
		return g.stores.Farmers.GetByIDs(ctx, ids)
	})
}

func (g *StoreGateway) FetchPlotsForFarmer(ctx context.Context, farmerID string) ([]models.Plot, error) {
	return call(g.cb, func() ([]models.Plot, error) {
		return g.stores.Plots.ListByFarmer(ctx, farmerID)
	})
}

func (g *StoreGateway) FetchProduct(ctx context.Context, productID string) (*models.Product, error) {
	return call(g.cb, func() (*models.Product, error) {
		return g.stores.Products.GetByID(ctx, productID)
	})
}

func (g *StoreGateway) CreateEnrollments(ctx context.Context, productID string, rows []models.EnrollmentRequest) (*models.EnrollmentResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no enrollment rows", models.ErrInvalidParameter)
	}
	for _, row := range rows {
		if row.ProductID != productID {
			return nil, fmt.Errorf("%w: row for farmer %s targets product %s, expected %s",
				models.ErrInvalidParameter, row.FarmerID, row.ProductID, productID)
		}
	}

	enrollments, err := call(g.cb, func() ([]models.Enrollment, error) {
		return g.stores.Enrollments.CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	area, premium, sumInsured := assignment.Totals(rows)
	metrics.EnrollmentsCreated.Add(float64(len(enrollments)))
	return &models.EnrollmentResult{
		Enrollments:     enrollments,
		TotalAreaHa:     area,
		TotalPremium:    premium,
		TotalSumInsured: sumInsured,
	}, nil
}

// CreateWeatherJob stores a queued job and asks the weather service to run
// it. A failed request publish leaves the job queued for the requeue scan.
func (g *StoreGateway) CreateWeatherJob(ctx context.Context, params models.WeatherJobParams) (*models.WeatherJob, error) {
	job, err := call(g.cb, func() (*models.WeatherJob, error) {
		return g.stores.WeatherJobs.Create(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	if g.stores.Requests != nil {
		if err := g.stores.Requests.PublishWeatherJobRequested(ctx, job.ID, 1); err != nil {
			slog.Warn("weather job request not published, left for requeue",
				"job_id", job.ID, "error", err)
		}
	}
	return job, nil
}

func (g *StoreGateway) GetWeatherJob(ctx context.Context, jobID string) (*models.WeatherJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id is required", models.ErrInvalidParameter)
	}
	return call(g.cb, func() (*models.WeatherJob, error) {
		return g.stores.WeatherJobs.GetByID(ctx, jobID)
	})
}

func (g *StoreGateway) SubscribeToJobUpdates(ctx context.Context, callback func(models.WeatherJob)) (func(), error) {
	if g.stores.Updates == nil {
		return nil, fmt.Errorf("%w: job update channel not configured", models.ErrUnavailable)
	}
	stop, err := g.stores.Updates.Subscribe(ctx, callback)
	if err != nil {
		return nil, normalize(err)
	}
	return stop, nil
}

// Ping is used by health checks.
func (g *StoreGateway) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := g.FetchFarmers(ctx, []string{"__healthcheck__"})
	return err
}
