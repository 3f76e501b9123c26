package gateway

import (
	"context"

	"agrisa-ops/internal/models"
)

// Gateway is the boundary to the records the assignment workflow reads and
// writes. Every method may fail with models.ErrUnavailable or
// models.ErrNotFound.
type Gateway interface {
	ListFarmers(ctx context.Context, filter models.FarmerFilter) ([]models.Farmer, error)
	FetchFarmers(ctx context.Context, ids []string) ([]models.Farmer, error)
	FetchPlotsForFarmer(ctx context.Context, farmerID string) ([]models.Plot, error)
	FetchProduct(ctx context.Context, productID string) (*models.Product, error)
	CreateEnrollments(ctx context.Context, productID string, rows []models.EnrollmentRequest) (*models.EnrollmentResult, error)
	CreateWeatherJob(ctx context.Context, params models.WeatherJobParams) (*models.WeatherJob, error)
	GetWeatherJob(ctx context.Context, jobID string) (*models.WeatherJob, error)
	SubscribeToJobUpdates(ctx context.Context, callback func(models.WeatherJob)) (func(), error)
}

type FarmerStore interface {
	List(ctx context.Context, filter models.FarmerFilter) ([]models.Farmer, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Farmer, error)
}

type PlotStore interface {
	ListByFarmer(ctx context.Context, farmerID string) ([]models.Plot, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

type EnrollmentStore interface {
	CreateBatch(ctx context.Context, rows []models.EnrollmentRequest) ([]models.Enrollment, error)
}

type WeatherJobStore interface {
	Create(ctx context.Context, params models.WeatherJobParams) (*models.WeatherJob, error)
	GetByID(ctx context.Context, id string) (*models.WeatherJob, error)
}

type JobRequestPublisher interface {
	PublishWeatherJobRequested(ctx context.Context, jobID string, attempt int) error
}

type JobUpdateSubscriber interface {
	Subscribe(ctx context.Context, callback func(models.WeatherJob)) (func(), error)
}
