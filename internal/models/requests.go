package models

type StartSessionRequest struct {
	ProductID string `json:"product_id"`
}

type SelectFarmersRequest struct {
	FarmerIDs []string `json:"farmer_ids"`
}

type SelectPlotsRequest struct {
	PlotIDs []string `json:"plot_ids"`
}

type ConfirmSessionRequest struct {
	Season string `json:"season"`
}

type CreateWeatherJobRequest struct {
	Dataset   string   `json:"dataset"`
	Provinces []string `json:"provinces"`
	DateStart string   `json:"date_start"`
	DateEnd   string   `json:"date_end"`
}
