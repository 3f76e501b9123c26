package repository

import (
	"context"
	"fmt"

	"agrisa-ops/internal/models"

	"github.com/jmoiron/sqlx"
)

type PlotRepository struct {
	db *sqlx.DB
}

func NewPlotRepository(db *sqlx.DB) *PlotRepository {
	return &PlotRepository{db: db}
}

func (r *PlotRepository) ListByFarmer(ctx context.Context, farmerID string) ([]models.Plot, error) {
	query := `
		SELECT id, farmer_id, plot_code, area_ha, crop_type, province, district, commune, created_at
		FROM plots
		WHERE farmer_id = $1
		ORDER BY created_at, id`

	var plots []models.Plot
	if err := r.db.SelectContext(ctx, &plots, query, farmerID); err != nil {
		return nil, fmt.Errorf("failed to list plots for farmer %s: %w", farmerID, err)
	}
	return plots, nil
}
