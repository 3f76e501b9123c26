package assignment

import (
	"fmt"

	"agrisa-ops/internal/models"
)

// PlotCatalog maps a farmer ID to the plots fetched for that farmer.
type PlotCatalog map[string][]models.Plot

func (c PlotCatalog) find(farmerID, plotID string) (models.Plot, bool) {
	for _, plot := range c[farmerID] {
		if plot.ID == plotID {
			return plot, true
		}
	}
	return models.Plot{}, false
}

// TotalArea sums area_ha over the selected plots. Plot IDs missing from the
// catalog are skipped.
func TotalArea(sel Selection, catalog PlotCatalog) float64 {
	total := 0.0
	for farmerID, plotIDs := range sel.Plots {
		for _, plotID := range plotIDs {
			if plot, ok := catalog.find(farmerID, plotID); ok {
				total += plot.AreaHa
			}
		}
	}
	return total
}

func EstimatedPremium(sel Selection, catalog PlotCatalog, ratePerHectare float64) (float64, error) {
	if ratePerHectare < 0 {
		return 0, fmt.Errorf("%w: rate per hectare must be non-negative, got %v", models.ErrInvalidParameter, ratePerHectare)
	}
	return TotalArea(sel, catalog) * ratePerHectare, nil
}

// ResolvePlots returns the selected plots of farmerID in selection order.
// Unlike TotalArea it fails on any ID missing from the catalog.
func ResolvePlots(sel Selection, catalog PlotCatalog, farmerID string) ([]models.Plot, error) {
	plotIDs := sel.PlotsFor(farmerID)
	plots := make([]models.Plot, 0, len(plotIDs))
	for _, plotID := range plotIDs {
		plot, ok := catalog.find(farmerID, plotID)
		if !ok {
			return nil, fmt.Errorf("%w: plot %s does not belong to farmer %s", models.ErrInvalidReference, plotID, farmerID)
		}
		plots = append(plots, plot)
	}
	return plots, nil
}

// MissingPlots lists plot IDs not present in the farmer's catalog.
func MissingPlots(catalog PlotCatalog, farmerID string, plotIDs []string) []string {
	var missing []string
	for _, plotID := range plotIDs {
		if _, ok := catalog.find(farmerID, plotID); !ok {
			missing = append(missing, plotID)
		}
	}
	return missing
}
