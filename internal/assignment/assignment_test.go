package assignment

import (
	"testing"
	"time"

	"agrisa-ops/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func testPlot(id, farmerID string, area float64) models.Plot {
	return models.Plot{ID: id, FarmerID: farmerID, AreaHa: area, CropType: "rice"}
}

func testCatalog() PlotCatalog {
	return PlotCatalog{
		"f1": {testPlot("p1", "f1", 2.0), testPlot("p2", "f1", 3.5)},
		"f2": {testPlot("p3", "f2", 1.25)},
	}
}

func testProduct() *models.Product {
	return &models.Product{
		ID:                    "prod-1",
		Status:                models.ProductActive,
		CoverageStart:         models.NewDate(2026, time.January, 1),
		CoverageEnd:           models.NewDate(2026, time.June, 30),
		PremiumRatePerHectare: 25,
		SumInsuredPerHectare:  1000,
	}
}

// ============================================================================
// TEST SUITE 1: SELECTION STORE
// ============================================================================

func TestSelectFarmers_ClearsPlots(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1", "f2"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1"}))
	require.NoError(t, sel.SelectPlots("f2", []string{"p3"}))

	sel.SelectFarmers([]string{"f2"})

	assert.Equal(t, []string{"f2"}, sel.FarmerIDs)
	assert.Empty(t, sel.PlotsFor("f1"), "plots of deselected farmer must be gone")
	assert.Empty(t, sel.PlotsFor("f2"), "selecting farmers clears every plot choice")
	assert.Equal(t, 0, sel.TotalPlotsSelected())
}

func TestSelectFarmers_Idempotent(t *testing.T) {
	once := NewSelection()
	once.SelectFarmers([]string{"f1", "f2"})

	twice := NewSelection()
	twice.SelectFarmers([]string{"f1", "f2"})
	twice.SelectFarmers([]string{"f1", "f2"})

	assert.Equal(t, once, twice)
}

func TestSelectFarmers_NormalizesInput(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{" f1", "f1", "", "f2"})

	assert.Equal(t, []string{"f1", "f2"}, sel.FarmerIDs)
}

func TestSelectPlots_UnselectedFarmer(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1"})

	err := sel.SelectPlots("f2", []string{"p3"})

	assert.ErrorIs(t, err, models.ErrInvalidReference)
	assert.Equal(t, 0, sel.TotalPlotsSelected())
}

func TestSelectPlots_ReplacesAndCounts(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1", "f2"})

	require.NoError(t, sel.SelectPlots("f1", []string{"p1", "p2"}))
	require.NoError(t, sel.SelectPlots("f2", []string{"p3"}))
	assert.Equal(t, 3, sel.TotalPlotsSelected())

	require.NoError(t, sel.SelectPlots("f1", []string{"p2"}))
	assert.Equal(t, []string{"p2"}, sel.PlotsFor("f1"))
	assert.Equal(t, 2, sel.TotalPlotsSelected())

	require.NoError(t, sel.SelectPlots("f1", nil))
	assert.Equal(t, 1, sel.TotalPlotsSelected())
	assert.True(t, sel.HasAnyPlot())
}

func TestSelection_CloneIsIndependent(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1"}))

	clone := sel.Clone()
	clone.Plots["f1"][0] = "changed"

	assert.Equal(t, "p1", sel.PlotsFor("f1")[0])
}

// ============================================================================
// TEST SUITE 2: AREA & PREMIUM CALCULATOR
// ============================================================================

func TestTotalArea_AndPremium(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1", "p2"}))

	assert.Equal(t, 5.5, TotalArea(sel, testCatalog()))

	premium, err := EstimatedPremium(sel, testCatalog(), 25)
	require.NoError(t, err)
	assert.Equal(t, 137.5, premium)
}

func TestTotalArea_SkipsStaleReferences(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1", "f2"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1", "gone"}))
	require.NoError(t, sel.SelectPlots("f2", []string{"p3"}))

	assert.Equal(t, 3.25, TotalArea(sel, testCatalog()))
}

func TestEstimatedPremium_NegativeRate(t *testing.T) {
	sel := NewSelection()

	_, err := EstimatedPremium(sel, testCatalog(), -1)

	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestResolvePlots_StrictOnStaleReference(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1", "p3"}))

	_, err := ResolvePlots(sel, testCatalog(), "f1")

	assert.ErrorIs(t, err, models.ErrInvalidReference)
	assert.Equal(t, []string{"p3"}, MissingPlots(testCatalog(), "f1", []string{"p1", "p3"}))
}

// ============================================================================
// TEST SUITE 3: PROGRESS TRACKER
// ============================================================================

func TestNewProgress_StepBounds(t *testing.T) {
	_, err := NewProgress(1)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = NewProgress(4)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	p, err := NewProgress(3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStep)
}

func TestStepStatus(t *testing.T) {
	p := Progress{CurrentStep: 2, TotalSteps: 3}

	assert.Equal(t, StepCompleted, p.StepStatus(1))
	assert.Equal(t, StepCurrent, p.StepStatus(2))
	assert.Equal(t, StepPending, p.StepStatus(3))

	steps := p.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "select_plots", steps[1].Name)
}

func TestCanAdvance_StepOneBoundary(t *testing.T) {
	sel := NewSelection()
	assert.False(t, CanAdvance(StepSelectFarmers, sel, false))

	sel.SelectFarmers([]string{"f1"})
	assert.True(t, CanAdvance(StepSelectFarmers, sel, false), "one farmer with zero plots is enough")
	assert.False(t, CanAdvance(StepSelectPlots, sel, false))
	assert.False(t, CanAdvance(StepReview, sel, false))
	assert.True(t, CanAdvance(StepReview, sel, true))
}

func TestAdvance_SilentlyRefused(t *testing.T) {
	p, err := NewProgress(2)
	require.NoError(t, err)
	sel := NewSelection()

	assert.False(t, p.Advance(sel))
	assert.Equal(t, 1, p.CurrentStep)

	sel.SelectFarmers([]string{"f1"})
	assert.True(t, p.Advance(sel))
	assert.Equal(t, 2, p.CurrentStep)

	require.NoError(t, sel.SelectPlots("f1", []string{"p1"}))
	assert.False(t, p.Advance(sel), "last step cannot advance")
	assert.Equal(t, 2, p.CurrentStep)
}

func TestBack(t *testing.T) {
	p := Progress{CurrentStep: 1, TotalSteps: 2}
	assert.False(t, p.Back())

	p.CurrentStep = 2
	assert.True(t, p.Back())
	assert.Equal(t, 1, p.CurrentStep)
}

func TestConfirm(t *testing.T) {
	p, err := NewProgress(2)
	require.NoError(t, err)
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1"})

	assert.ErrorIs(t, p.Confirm(sel), models.ErrInvalidState, "not at last step")

	require.True(t, p.Advance(sel))
	assert.ErrorIs(t, p.Confirm(sel), models.ErrInvalidState, "no plot selected")

	require.NoError(t, sel.SelectPlots("f1", []string{"p1"}))
	require.NoError(t, p.Confirm(sel))
	assert.True(t, p.Confirmed)
	assert.ErrorIs(t, p.Confirm(sel), models.ErrInvalidState, "second confirmation")
	assert.False(t, p.Back())
}

// ============================================================================
// TEST SUITE 4: ENROLLMENT BUILDER
// ============================================================================

func TestBuildEnrollments_PlotAndFarmerLevelRows(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1", "f2"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1", "p2"}))

	rows, err := BuildEnrollments(testProduct(), sel, testCatalog(), "")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NotNil(t, rows[0].PlotID)
	assert.Equal(t, "p1", *rows[0].PlotID)
	assert.Equal(t, 50.0, rows[0].Premium)
	assert.Equal(t, 2000.0, rows[0].SumInsured)
	assert.Equal(t, "2026", rows[0].Season)

	assert.Equal(t, "f2", rows[2].FarmerID)
	assert.Nil(t, rows[2].PlotID, "farmer without plots gets farmer-level coverage")
	assert.Equal(t, 1.25, rows[2].AreaHa)

	area, premium, sumInsured := Totals(rows)
	assert.Equal(t, 6.75, area)
	assert.Equal(t, 168.75, premium)
	assert.Equal(t, 6750.0, sumInsured)
}

func TestBuildEnrollments_StaleReference(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f1"})
	require.NoError(t, sel.SelectPlots("f1", []string{"p1", "removed"}))

	_, err := BuildEnrollments(testProduct(), sel, testCatalog(), "2026")

	assert.ErrorIs(t, err, models.ErrInvalidReference)
}

func TestBuildEnrollments_FarmerWithoutCatalog(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f9"})

	_, err := BuildEnrollments(testProduct(), sel, testCatalog(), "2026")

	assert.ErrorIs(t, err, models.ErrInvalidReference)
}

func TestBuildEnrollments_ExplicitSeason(t *testing.T) {
	sel := NewSelection()
	sel.SelectFarmers([]string{"f2"})
	require.NoError(t, sel.SelectPlots("f2", []string{"p3"}))

	rows, err := BuildEnrollments(testProduct(), sel, testCatalog(), " 2026-summer ")
	require.NoError(t, err)
	assert.Equal(t, "2026-summer", rows[0].Season)
}

// ============================================================================
// TEST SUITE 5: SESSION SUMMARY
// ============================================================================

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	session, err := NewSession("prod-1", 2, now)
	require.NoError(t, err)

	session.Selection.SelectFarmers([]string{"f1"})
	require.NoError(t, session.Selection.SelectPlots("f1", []string{"p1", "p2"}))
	require.True(t, session.Progress.Advance(session.Selection))

	summary, err := Summarize(session, testCatalog(), 25, 2*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CurrentStep)
	assert.Equal(t, 2, summary.TotalPlots)
	assert.Equal(t, 5.5, summary.TotalAreaHa)
	assert.Equal(t, 137.5, summary.EstimatedPremium)
	assert.False(t, summary.CanAdvance)
	assert.True(t, summary.CanConfirm)
	assert.Equal(t, now.Add(2*time.Hour), summary.ExpiresAt)
}

func TestCheckVersion(t *testing.T) {
	fresh := &Session{ID: "s1"}
	assert.NoError(t, CheckVersion(nil, fresh), "first save of a new session")

	loaded := &Session{ID: "s1", Version: 3}
	assert.NoError(t, CheckVersion(&Session{ID: "s1", Version: 3}, loaded))
	assert.ErrorIs(t, CheckVersion(&Session{ID: "s1", Version: 4}, loaded), models.ErrInvalidState)
	assert.ErrorIs(t, CheckVersion(nil, loaded), models.ErrNotFound, "deleted sessions are not written back")
}
