package services

import (
	"context"
	"fmt"
	"strings"

	"agrisa-ops/internal/gateway"
	"agrisa-ops/internal/models"
)

// CatalogService exposes the read-only farmer, plot and product records the
// wizard UI browses.
type CatalogService struct {
	gateway gateway.Gateway
}

func NewCatalogService(gw gateway.Gateway) *CatalogService {
	return &CatalogService{gateway: gw}
}

func (s *CatalogService) ListFarmers(ctx context.Context, filter models.FarmerFilter) ([]models.Farmer, error) {
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be non-negative", models.ErrInvalidParameter)
	}
	return s.gateway.ListFarmers(ctx, filter)
}

func (s *CatalogService) ListPlots(ctx context.Context, farmerID string) ([]models.Plot, error) {
	farmerID = strings.TrimSpace(farmerID)
	if farmerID == "" {
		return nil, fmt.Errorf("%w: farmer id is required", models.ErrInvalidParameter)
	}

	farmers, err := s.gateway.FetchFarmers(ctx, []string{farmerID})
	if err != nil {
		return nil, err
	}
	if len(farmers) == 0 {
		return nil, fmt.Errorf("%w: farmer %s", models.ErrNotFound, farmerID)
	}
	return s.gateway.FetchPlotsForFarmer(ctx, farmerID)
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", models.ErrInvalidParameter)
	}
	return s.gateway.FetchProduct(ctx, productID)
}
