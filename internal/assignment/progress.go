package assignment

import (
	"fmt"

	"agrisa-ops/internal/models"
)

type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepCurrent   StepStatus = "current"
	StepPending   StepStatus = "pending"
)

const (
	StepSelectFarmers = 1
	StepSelectPlots   = 2
	StepReview        = 3
)

var stepNames = map[int]string{
	StepSelectFarmers: "select_farmers",
	StepSelectPlots:   "select_plots",
	StepReview:        "review",
}

type StepView struct {
	Index  int        `json:"index"`
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

// Progress is the wizard step machine over CurrentStep in [1, TotalSteps].
type Progress struct {
	CurrentStep int  `json:"current_step"`
	TotalSteps  int  `json:"total_steps"`
	Confirmed   bool `json:"confirmed"`
}

func NewProgress(totalSteps int) (Progress, error) {
	if totalSteps < StepSelectPlots || totalSteps > StepReview {
		return Progress{}, fmt.Errorf("%w: wizard must have %d or %d steps, got %d",
			models.ErrInvalidParameter, StepSelectPlots, StepReview, totalSteps)
	}
	return Progress{CurrentStep: StepSelectFarmers, TotalSteps: totalSteps}, nil
}

func (p Progress) StepStatus(step int) StepStatus {
	switch {
	case step < p.CurrentStep:
		return StepCompleted
	case step == p.CurrentStep:
		return StepCurrent
	default:
		return StepPending
	}
}

func (p Progress) Steps() []StepView {
	views := make([]StepView, 0, p.TotalSteps)
	for i := 1; i <= p.TotalSteps; i++ {
		views = append(views, StepView{Index: i, Name: stepNames[i], Status: p.StepStatus(i)})
	}
	return views
}

// CanAdvance evaluates the completion predicate of step. Steps beyond plot
// selection only complete with an explicit confirmation.
func CanAdvance(step int, sel Selection, confirmed bool) bool {
	switch step {
	case StepSelectFarmers:
		return sel.HasAnyFarmer()
	case StepSelectPlots:
		return sel.HasAnyPlot()
	default:
		return confirmed
	}
}

func (p Progress) AtLastStep() bool {
	return p.CurrentStep == p.TotalSteps
}

// Advance moves one step forward when the current step is complete and is
// not the last one. It reports whether the step changed.
func (p *Progress) Advance(sel Selection) bool {
	if p.CurrentStep >= p.TotalSteps || !CanAdvance(p.CurrentStep, sel, p.Confirmed) {
		return false
	}
	p.CurrentStep++
	return true
}

// Back moves one step backward. It is a no-op on the first step.
func (p *Progress) Back() bool {
	if p.CurrentStep <= StepSelectFarmers || p.Confirmed {
		return false
	}
	p.CurrentStep--
	return true
}

// ReadyToConfirm reports whether the selection satisfies every step that
// has a selection predicate.
func ReadyToConfirm(sel Selection) bool {
	return CanAdvance(StepSelectFarmers, sel, false) && CanAdvance(StepSelectPlots, sel, false)
}

// Confirm accepts the terminal confirmation. It requires the last step and
// a complete selection.
func (p *Progress) Confirm(sel Selection) error {
	if p.Confirmed {
		return fmt.Errorf("%w: wizard already confirmed", models.ErrInvalidState)
	}
	if !p.AtLastStep() {
		return fmt.Errorf("%w: confirmation requires step %d, wizard is at step %d",
			models.ErrInvalidState, p.TotalSteps, p.CurrentStep)
	}
	if !ReadyToConfirm(sel) {
		return fmt.Errorf("%w: at least one farmer and one plot must be selected", models.ErrInvalidState)
	}
	p.Confirmed = true
	return nil
}
