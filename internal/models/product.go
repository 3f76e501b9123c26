package models

import (
	"fmt"
	"time"
)

type ProductStatus string

const (
	ProductDraft     ProductStatus = "draft"
	ProductActive    ProductStatus = "active"
	ProductSuspended ProductStatus = "suspended"
	ProductArchived  ProductStatus = "archived"
)

// Product is an insurance product farmers are enrolled into.
type Product struct {
	ID                    string        `json:"id" db:"id"`
	Code                  string        `json:"code" db:"code"`
	Name                  string        `json:"name" db:"name"`
	CropType              string        `json:"crop_type" db:"crop_type"`
	Status                ProductStatus `json:"status" db:"status"`
	CoverageStart         Date          `json:"coverage_start" db:"coverage_start"`
	CoverageEnd           Date          `json:"coverage_end" db:"coverage_end"`
	RegionDescription     *string       `json:"region_description,omitempty" db:"region_description"`
	Province              *string       `json:"province,omitempty" db:"province"`
	District              *string       `json:"district,omitempty" db:"district"`
	Commune               *string       `json:"commune,omitempty" db:"commune"`
	PremiumRatePerHectare float64       `json:"premium_rate_per_hectare" db:"premium_rate_per_hectare"`
	SumInsuredPerHectare  float64       `json:"sum_insured_per_hectare" db:"sum_insured_per_hectare"`
	Currency              string        `json:"currency" db:"currency"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at" db:"updated_at"`
}

func (p *Product) Validate() error {
	if p.CoverageStart.After(p.CoverageEnd.Time) {
		return fmt.Errorf("%w: coverage_start must not be after coverage_end", ErrInvalidParameter)
	}
	if p.PremiumRatePerHectare < 0 {
		return fmt.Errorf("%w: premium_rate_per_hectare must be non-negative", ErrInvalidParameter)
	}
	if p.SumInsuredPerHectare < 0 {
		return fmt.Errorf("%w: sum_insured_per_hectare must be non-negative", ErrInvalidParameter)
	}
	return nil
}

// DefaultSeason derives the season label from the coverage window, e.g.
// "2026" or "2026-2027" when coverage crosses a year boundary.
func (p *Product) DefaultSeason() string {
	start, end := p.CoverageStart.Year(), p.CoverageEnd.Year()
	if start == end {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}
