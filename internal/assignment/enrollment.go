package assignment

import (
	"fmt"
	"strings"

	"agrisa-ops/internal/models"
)

// BuildEnrollments turns a confirmed selection into enrollment rows: one per
// selected plot, or one farmer-level row covering the whole catalog when a
// farmer was selected without plots. Stale plot references are rejected.
func BuildEnrollments(product *models.Product, sel Selection, catalog PlotCatalog, season string) ([]models.EnrollmentRequest, error) {
	if product == nil {
		return nil, fmt.Errorf("%w: product is required", models.ErrInvalidParameter)
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if !sel.HasAnyFarmer() {
		return nil, fmt.Errorf("%w: no farmers selected", models.ErrInvalidState)
	}

	season = strings.TrimSpace(season)
	if season == "" {
		season = product.DefaultSeason()
	}

	rows := make([]models.EnrollmentRequest, 0, len(sel.FarmerIDs)+sel.TotalPlotsSelected())
	for _, farmerID := range sel.FarmerIDs {
		plots, err := ResolvePlots(sel, catalog, farmerID)
		if err != nil {
			return nil, err
		}

		if len(plots) == 0 {
			area := 0.0
			for _, plot := range catalog[farmerID] {
				area += plot.AreaHa
			}
			if area <= 0 {
				return nil, fmt.Errorf("%w: farmer %s has no plots to cover", models.ErrInvalidReference, farmerID)
			}
			rows = append(rows, newEnrollmentRow(product, farmerID, nil, season, area))
			continue
		}

		for _, plot := range plots {
			plotID := plot.ID
			rows = append(rows, newEnrollmentRow(product, farmerID, &plotID, season, plot.AreaHa))
		}
	}
	return rows, nil
}

func newEnrollmentRow(product *models.Product, farmerID string, plotID *string, season string, area float64) models.EnrollmentRequest {
	return models.EnrollmentRequest{
		ProductID:  product.ID,
		FarmerID:   farmerID,
		PlotID:     plotID,
		Season:     season,
		AreaHa:     area,
		Premium:    area * product.PremiumRatePerHectare,
		SumInsured: area * product.SumInsuredPerHectare,
	}
}

// Totals sums area, premium and sum insured over enrollment rows.
func Totals(rows []models.EnrollmentRequest) (area, premium, sumInsured float64) {
	for _, row := range rows {
		area += row.AreaHa
		premium += row.Premium
		sumInsured += row.SumInsured
	}
	return area, premium, sumInsured
}
