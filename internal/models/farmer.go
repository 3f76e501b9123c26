package models

import "time"

// ============================================================================
// FARMERS AND PLOTS
// ============================================================================

type Farmer struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Province  *string   `json:"province,omitempty" db:"province"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Plot is a land parcel owned by exactly one farmer. Plots are read-only
// snapshots once fetched.
type Plot struct {
	ID        string    `json:"id" db:"id"`
	FarmerID  string    `json:"farmer_id" db:"farmer_id"`
	PlotCode  *string   `json:"plot_code,omitempty" db:"plot_code"`
	AreaHa    float64   `json:"area_ha" db:"area_ha"`
	CropType  string    `json:"crop_type" db:"crop_type"`
	Province  *string   `json:"province,omitempty" db:"province"`
	District  *string   `json:"district,omitempty" db:"district"`
	Commune   *string   `json:"commune,omitempty" db:"commune"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type FarmerFilter struct {
	Province     string
	VerifiedOnly bool
	Limit        int
}
