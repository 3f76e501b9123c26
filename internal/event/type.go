package event

import "time"

const (
	WeatherJobRequestsQueue = "weather_job_requests"
	EnrollmentEventsQueue   = "enrollment_events"

	// JobUpdatesChannel is the Redis pub/sub channel carrying weather job
	// snapshots.
	JobUpdatesChannel = "weather_job_updates"
)

// WeatherJobRequestedEvent asks the weather service to execute a queued job.
type WeatherJobRequestedEvent struct {
	JobID       string    `json:"job_id"`
	RequestedAt time.Time `json:"requested_at"`
	Attempt     int       `json:"attempt"`
}

type EnrollmentCreatedEvent struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	ProductID       string    `json:"product_id"`
	Season          string    `json:"season"`
	EnrollmentIDs   []string  `json:"enrollment_ids"`
	FarmerIDs       []string  `json:"farmer_ids"`
	TotalAreaHa     float64   `json:"total_area_ha"`
	TotalPremium    float64   `json:"total_premium"`
	TotalSumInsured float64   `json:"total_sum_insured"`
	CreatedAt       time.Time `json:"created_at"`
}

const EnrollmentCreatedType = "enrollment_created"
