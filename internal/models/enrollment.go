package models

import (
	"time"

	utils "agrisa-ops/shared/utils"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// EnrollmentRequest is one row submitted to the gateway on confirmation.
// A nil PlotID means farmer-level coverage.
type EnrollmentRequest struct {
	ProductID  string  `json:"productId"`
	FarmerID   string  `json:"farmerId"`
	PlotID     *string `json:"plotId,omitempty"`
	Season     string  `json:"season"`
	Premium    float64 `json:"premium"`
	SumInsured float64 `json:"sumInsured"`
	AreaHa     float64 `json:"areaHa"`
}

type Enrollment struct {
	ID             string           `json:"id" db:"id"`
	EnrollmentCode string           `json:"enrollment_code" db:"enrollment_code"`
	ProductID      string           `json:"product_id" db:"product_id"`
	FarmerID       string           `json:"farmer_id" db:"farmer_id"`
	PlotID         *string          `json:"plot_id,omitempty" db:"plot_id"`
	Season         string           `json:"season" db:"season"`
	AreaHa         float64          `json:"area_ha" db:"area_ha"`
	Premium        float64          `json:"premium" db:"premium"`
	SumInsured     float64          `json:"sum_insured" db:"sum_insured"`
	Status         EnrollmentStatus `json:"status" db:"status"`
	Metadata       utils.JSONMap    `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// EnrollmentResult is what the gateway returns for a batch submission.
type EnrollmentResult struct {
	Enrollments     []Enrollment `json:"enrollments"`
	TotalAreaHa     float64      `json:"total_area_ha"`
	TotalPremium    float64      `json:"total_premium"`
	TotalSumInsured float64      `json:"total_sum_insured"`
}
