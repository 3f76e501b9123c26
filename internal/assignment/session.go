package assignment

import (
	"fmt"
	"time"

	"agrisa-ops/internal/models"

	"github.com/google/uuid"
)

// Session is one server-side wizard run for a product. Version counts the
// saves; a store only accepts a session carrying the version it holds.
type Session struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	ProductID string    `json:"product_id"`
	Selection Selection `json:"selection"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(productID string, totalSteps int, now time.Time) (*Session, error) {
	progress, err := NewProgress(totalSteps)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.NewString(),
		ProductID: productID,
		Selection: NewSelection(),
		Progress:  progress,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CheckVersion decides whether incoming may replace stored, the copy a
// store currently holds (nil when it holds none). A session that was
// deleted or expired is never written back.
func CheckVersion(stored, incoming *Session) error {
	if stored == nil {
		if incoming.Version != 0 {
			return fmt.Errorf("%w: wizard session %s no longer exists", models.ErrNotFound, incoming.ID)
		}
		return nil
	}
	if stored.Version != incoming.Version {
		return fmt.Errorf("%w: wizard session %s was changed by another request (version %d, loaded %d)",
			models.ErrInvalidState, incoming.ID, stored.Version, incoming.Version)
	}
	return nil
}

// Summary is the read model of a session returned to the UI.
type Summary struct {
	SessionID        string              `json:"session_id"`
	ProductID        string              `json:"product_id"`
	CurrentStep      int                 `json:"current_step"`
	TotalSteps       int                 `json:"total_steps"`
	Steps            []StepView          `json:"steps"`
	FarmerIDs        []string            `json:"farmer_ids"`
	Plots            map[string][]string `json:"plots"`
	TotalPlots       int                 `json:"total_plots"`
	TotalAreaHa      float64             `json:"total_area_ha"`
	EstimatedPremium float64             `json:"estimated_premium"`
	CanAdvance       bool                `json:"can_advance"`
	CanConfirm       bool                `json:"can_confirm"`
	Confirmed        bool                `json:"confirmed"`
	ExpiresAt        time.Time           `json:"expires_at"`
}

// Summarize builds the read model. The premium uses the lenient area sum.
func Summarize(s *Session, catalog PlotCatalog, ratePerHectare float64, ttl time.Duration) (Summary, error) {
	premium, err := EstimatedPremium(s.Selection, catalog, ratePerHectare)
	if err != nil {
		return Summary{}, err
	}
	sel := s.Selection.Clone()
	return Summary{
		SessionID:        s.ID,
		ProductID:        s.ProductID,
		CurrentStep:      s.Progress.CurrentStep,
		TotalSteps:       s.Progress.TotalSteps,
		Steps:            s.Progress.Steps(),
		FarmerIDs:        sel.FarmerIDs,
		Plots:            sel.Plots,
		TotalPlots:       sel.TotalPlotsSelected(),
		TotalAreaHa:      TotalArea(sel, catalog),
		EstimatedPremium: premium,
		CanAdvance:       !s.Progress.AtLastStep() && CanAdvance(s.Progress.CurrentStep, sel, s.Progress.Confirmed),
		CanConfirm:       s.Progress.AtLastStep() && ReadyToConfirm(sel) && !s.Progress.Confirmed,
		Confirmed:        s.Progress.Confirmed,
		ExpiresAt:        s.UpdatedAt.Add(ttl),
	}, nil
}
