package assignment

import (
	"fmt"
	"slices"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"
)

// Selection holds the farmers and per-farmer plots picked in the wizard.
// FarmerIDs is tracked on its own so a farmer can be selected with no plots
// yet. Plots only ever has keys that are in FarmerIDs.
type Selection struct {
	FarmerIDs []string            `json:"farmer_ids"`
	Plots     map[string][]string `json:"plots"`
}

func NewSelection() Selection {
	return Selection{
		FarmerIDs: []string{},
		Plots:     map[string][]string{},
	}
}

// SelectFarmers replaces the selected farmers and drops every plot choice.
func (s *Selection) SelectFarmers(ids []string) {
	s.FarmerIDs = utils.NormalizeIDs(ids)
	s.Plots = map[string][]string{}
}

// SelectPlots replaces the plot choice of one farmer. The farmer must be in
// the current farmer selection.
func (s *Selection) SelectPlots(farmerID string, plotIDs []string) error {
	if !s.HasFarmer(farmerID) {
		return fmt.Errorf("%w: farmer %s is not selected", models.ErrInvalidReference, farmerID)
	}
	if s.Plots == nil {
		s.Plots = map[string][]string{}
	}

	normalized := utils.NormalizeIDs(plotIDs)
	if len(normalized) == 0 {
		delete(s.Plots, farmerID)
		return nil
	}
	s.Plots[farmerID] = normalized
	return nil
}

func (s *Selection) HasFarmer(farmerID string) bool {
	return slices.Contains(s.FarmerIDs, farmerID)
}

// PlotsFor returns the plot IDs selected for farmerID, nil when none.
func (s *Selection) PlotsFor(farmerID string) []string {
	return s.Plots[farmerID]
}

func (s *Selection) TotalPlotsSelected() int {
	total := 0
	for _, ids := range s.Plots {
		total += len(ids)
	}
	return total
}

func (s *Selection) HasAnyFarmer() bool {
	return len(s.FarmerIDs) > 0
}

func (s *Selection) HasAnyPlot() bool {
	for _, ids := range s.Plots {
		if len(ids) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to mutate independently.
func (s *Selection) Clone() Selection {
	out := Selection{
		FarmerIDs: slices.Clone(s.FarmerIDs),
		Plots:     make(map[string][]string, len(s.Plots)),
	}
	if out.FarmerIDs == nil {
		out.FarmerIDs = []string{}
	}
	for farmerID, ids := range s.Plots {
		out.Plots[farmerID] = slices.Clone(ids)
	}
	return out
}
