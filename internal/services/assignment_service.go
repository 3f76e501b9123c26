package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"agrisa-ops/internal/assignment"
	"agrisa-ops/internal/event"
	"agrisa-ops/internal/gateway"
	"agrisa-ops/internal/metrics"
	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"golang.org/x/sync/errgroup"
)

const catalogFetchConcurrency = 8

type SessionStore interface {
	Save(ctx context.Context, session *assignment.Session) error
	Get(ctx context.Context, id string) (*assignment.Session, error)
	Delete(ctx context.Context, id string) error
	TTL() time.Duration
}

type EnrollmentEventPublisher interface {
	PublishEnrollmentCreated(ctx context.Context, event event.EnrollmentCreatedEvent) error
}

type ConfirmationResult struct {
	SessionID       string              `json:"session_id"`
	ProductID       string              `json:"product_id"`
	Season          string              `json:"season"`
	Enrollments     []models.Enrollment `json:"enrollments"`
	TotalAreaHa     float64             `json:"total_area_ha"`
	TotalPremium    float64             `json:"total_premium"`
	TotalSumInsured float64             `json:"total_sum_insured"`
}

// AssignmentService drives the product-to-farmer wizard. Sessions live in
// the session store between requests; every mutation loads, applies and
// saves the whole session.
type AssignmentService struct {
	gateway    gateway.Gateway
	sessions   SessionStore
	events     EnrollmentEventPublisher
	totalSteps int
	now        func() time.Time
}

func NewAssignmentService(gw gateway.Gateway, sessions SessionStore, events EnrollmentEventPublisher, totalSteps int) *AssignmentService {
	return &AssignmentService{
		gateway:    gw,
		sessions:   sessions,
		events:     events,
		totalSteps: totalSteps,
		now:        time.Now,
	}
}

func (s *AssignmentService) StartSession(ctx context.Context, productID string) (*assignment.Summary, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product_id is required", models.ErrInvalidParameter)
	}

	product, err := s.gateway.FetchProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == models.ProductArchived {
		return nil, fmt.Errorf("%w: product %s is archived", models.ErrInvalidState, productID)
	}

	session, err := assignment.NewSession(product.ID, s.totalSteps, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, normalizeStoreError(err)
	}

	slog.Info("wizard session started", "session_id", session.ID, "product_id", product.ID)
	return s.summarize(session, product, assignment.PlotCatalog{})
}

func (s *AssignmentService) GetSummary(ctx context.Context, sessionID string) (*assignment.Summary, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.summarizeWithCatalog(ctx, session)
}

// SelectFarmers replaces the farmer selection. Every ID must exist.
func (s *AssignmentService) SelectFarmers(ctx context.Context, sessionID string, farmerIDs []string) (*assignment.Summary, error) {
	session, err := s.loadMutableSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ids := utils.NormalizeIDs(farmerIDs)
	if len(ids) > 0 {
		farmers, err := s.gateway.FetchFarmers(ctx, ids)
		if err != nil {
			return nil, err
		}
		if missing := missingFarmers(ids, farmers); len(missing) > 0 {
			return nil, fmt.Errorf("%w: unknown farmers: %s", models.ErrInvalidReference, strings.Join(missing, ", "))
		}
	}

	session.Selection.SelectFarmers(ids)
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	slog.Info("wizard farmers selected", "session_id", session.ID, "farmers", len(ids))
	return s.summarizeWithCatalog(ctx, session)
}

// SelectPlots replaces one farmer's plot selection. The farmer must be
// selected and every plot must belong to that farmer.
func (s *AssignmentService) SelectPlots(ctx context.Context, sessionID, farmerID string, plotIDs []string) (*assignment.Summary, error) {
	session, err := s.loadMutableSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Selection.HasFarmer(farmerID) {
		return nil, fmt.Errorf("%w: farmer %s is not selected", models.ErrInvalidReference, farmerID)
	}

	ids := utils.NormalizeIDs(plotIDs)
	if len(ids) > 0 {
		plots, err := s.gateway.FetchPlotsForFarmer(ctx, farmerID)
		if err != nil {
			return nil, err
		}
		catalog := assignment.PlotCatalog{farmerID: plots}
		if missing := assignment.MissingPlots(catalog, farmerID, ids); len(missing) > 0 {
			return nil, fmt.Errorf("%w: plots %s do not belong to farmer %s",
				models.ErrInvalidReference, strings.Join(missing, ", "), farmerID)
		}
	}

	if err := session.Selection.SelectPlots(farmerID, ids); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	slog.Info("wizard plots selected", "session_id", session.ID, "farmer_id", farmerID, "plots", len(ids))
	return s.summarizeWithCatalog(ctx, session)
}

// Advance moves to the next step when the current one is complete. A refused
// move is not an error; the summary shows the unchanged step.
func (s *AssignmentService) Advance(ctx context.Context, sessionID string) (*assignment.Summary, error) {
	return s.move(ctx, sessionID, func(session *assignment.Session) bool {
		return session.Progress.Advance(session.Selection)
	})
}

func (s *AssignmentService) Back(ctx context.Context, sessionID string) (*assignment.Summary, error) {
	return s.move(ctx, sessionID, func(session *assignment.Session) bool {
		return session.Progress.Back()
	})
}

func (s *AssignmentService) move(ctx context.Context, sessionID string, step func(*assignment.Session) bool) (*assignment.Summary, error) {
	session, err := s.loadMutableSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if step(session) {
		if err := s.save(ctx, session); err != nil {
			return nil, err
		}
	}
	return s.summarizeWithCatalog(ctx, session)
}

// Confirm creates the enrollments for the session and ends it.
func (s *AssignmentService) Confirm(ctx context.Context, sessionID, season string) (result *ConfirmationResult, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = models.ErrorCode(err)
		}
		metrics.WizardConfirmations.WithLabelValues(outcome).Inc()
	}()

	session, err := s.loadMutableSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.Progress.Confirm(session.Selection); err != nil {
		return nil, err
	}

	product, err := s.gateway.FetchProduct(ctx, session.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductActive {
		return nil, fmt.Errorf("%w: product %s is %s, only active products accept enrollments",
			models.ErrInvalidState, product.ID, product.Status)
	}

	catalog, err := s.loadCatalog(ctx, session.Selection.FarmerIDs)
	if err != nil {
		return nil, err
	}

	rows, err := assignment.BuildEnrollments(product, session.Selection, catalog, season)
	if err != nil {
		return nil, err
	}

	// The confirmed session is saved before any enrollment exists. Requests
	// that loaded the session earlier now fail their version check.
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	created, err := s.gateway.CreateEnrollments(ctx, product.ID, rows)
	if err != nil {
		s.reopen(ctx, session)
		return nil, err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		slog.Warn("confirmed wizard session not deleted", "session_id", session.ID, "error", err)
	}

	result = &ConfirmationResult{
		SessionID:       session.ID,
		ProductID:       product.ID,
		Season:          rows[0].Season,
		Enrollments:     created.Enrollments,
		TotalAreaHa:     created.TotalAreaHa,
		TotalPremium:    created.TotalPremium,
		TotalSumInsured: created.TotalSumInsured,
	}
	s.publishEnrollmentCreated(ctx, session, result)

	slog.Info("wizard confirmed",
		"session_id", session.ID,
		"product_id", product.ID,
		"enrollments", len(created.Enrollments),
		"total_premium", created.TotalPremium)
	return result, nil
}

// reopen clears the confirmation of a session whose enrollments were not
// created, so the user can correct or retry.
func (s *AssignmentService) reopen(ctx context.Context, session *assignment.Session) {
	session.Progress.Confirmed = false
	if err := s.save(ctx, session); err != nil {
		slog.Error("failed to reopen wizard session after enrollment failure", "session_id", session.ID, "error", err)
	}
}

func (s *AssignmentService) Discard(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", models.ErrInvalidParameter)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return normalizeStoreError(err)
	}
	slog.Info("wizard session discarded", "session_id", sessionID)
	return nil
}

func (s *AssignmentService) publishEnrollmentCreated(ctx context.Context, session *assignment.Session, result *ConfirmationResult) {
	if s.events == nil {
		return
	}
	ids := make([]string, len(result.Enrollments))
	for i, e := range result.Enrollments {
		ids[i] = e.ID
	}
	err := s.events.PublishEnrollmentCreated(ctx, event.EnrollmentCreatedEvent{
		SessionID:       session.ID,
		ProductID:       result.ProductID,
		Season:          result.Season,
		EnrollmentIDs:   ids,
		FarmerIDs:       session.Selection.FarmerIDs,
		TotalAreaHa:     result.TotalAreaHa,
		TotalPremium:    result.TotalPremium,
		TotalSumInsured: result.TotalSumInsured,
		CreatedAt:       s.now(),
	})
	if err != nil {
		slog.Error("failed to publish enrollment_created", "session_id", session.ID, "error", err)
	}
}

// loadCatalog fetches the plot catalogs of farmerIDs concurrently.
func (s *AssignmentService) loadCatalog(ctx context.Context, farmerIDs []string) (assignment.PlotCatalog, error) {
	catalog := make(assignment.PlotCatalog, len(farmerIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogFetchConcurrency)
	for _, farmerID := range farmerIDs {
		g.Go(func() error {
			plots, err := s.gateway.FetchPlotsForFarmer(gctx, farmerID)
			if err != nil {
				return err
			}
			mu.Lock()
			catalog[farmerID] = plots
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (s *AssignmentService) summarizeWithCatalog(ctx context.Context, session *assignment.Session) (*assignment.Summary, error) {
	product, err := s.gateway.FetchProduct(ctx, session.ProductID)
	if err != nil {
		return nil, err
	}

	withPlots := make([]string, 0, len(session.Selection.Plots))
	for _, farmerID := range session.Selection.FarmerIDs {
		if len(session.Selection.PlotsFor(farmerID)) > 0 {
			withPlots = append(withPlots, farmerID)
		}
	}
	catalog, err := s.loadCatalog(ctx, withPlots)
	if err != nil {
		return nil, err
	}
	return s.summarize(session, product, catalog)
}

func (s *AssignmentService) summarize(session *assignment.Session, product *models.Product, catalog assignment.PlotCatalog) (*assignment.Summary, error) {
	summary, err := assignment.Summarize(session, catalog, product.PremiumRatePerHectare, s.sessions.TTL())
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *AssignmentService) loadSession(ctx context.Context, sessionID string) (*assignment.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", models.ErrInvalidParameter)
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, normalizeStoreError(err)
	}
	return session, nil
}

func (s *AssignmentService) loadMutableSession(ctx context.Context, sessionID string) (*assignment.Session, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Progress.Confirmed {
		return nil, fmt.Errorf("%w: wizard session %s is already confirmed", models.ErrInvalidState, sessionID)
	}
	return session, nil
}

func (s *AssignmentService) save(ctx context.Context, session *assignment.Session) error {
	session.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return normalizeStoreError(err)
	}
	return nil
}

func missingFarmers(ids []string, farmers []models.Farmer) []string {
	found := make(map[string]struct{}, len(farmers))
	for _, f := range farmers {
		found[f.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// normalizeStoreError keeps taxonomy errors and reports anything else from
// the session store as unavailable.
func normalizeStoreError(err error) error {
	if models.ErrorCode(err) != models.CodeInternal {
		return err
	}
	return fmt.Errorf("%w: session store: %w", models.ErrUnavailable, err)
}
