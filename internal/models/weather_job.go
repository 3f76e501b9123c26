package models

import (
	"time"

	"github.com/lib/pq"
)

type WeatherJobStatus string

const (
	WeatherJobQueued    WeatherJobStatus = "queued"
	WeatherJobRunning   WeatherJobStatus = "running"
	WeatherJobCompleted WeatherJobStatus = "completed"
	WeatherJobFailed    WeatherJobStatus = "failed"
)

// rank orders the lifecycle; both terminal states share the top rank.
func (s WeatherJobStatus) rank() int {
	switch s {
	case WeatherJobQueued:
		return 1
	case WeatherJobRunning:
		return 2
	case WeatherJobCompleted, WeatherJobFailed:
		return 3
	default:
		return 0
	}
}

func (s WeatherJobStatus) IsValid() bool {
	return s.rank() > 0
}

func (s WeatherJobStatus) IsTerminal() bool {
	return s == WeatherJobCompleted || s == WeatherJobFailed
}

// Advances reports whether moving from s to next is progress through
// queued -> running -> {completed | failed}. Skipping running is allowed
// (a job may fail before it starts). Terminal states never move.
func (s WeatherJobStatus) Advances(next WeatherJobStatus) bool {
	if s.IsTerminal() || !next.IsValid() {
		return false
	}
	return next.rank() > s.rank()
}

// Predecessors lists the states a job may be in right before entering s.
func (s WeatherJobStatus) Predecessors() []WeatherJobStatus {
	switch s {
	case WeatherJobRunning:
		return []WeatherJobStatus{WeatherJobQueued}
	case WeatherJobCompleted:
		return []WeatherJobStatus{WeatherJobRunning}
	case WeatherJobFailed:
		return []WeatherJobStatus{WeatherJobQueued, WeatherJobRunning}
	default:
		return nil
	}
}

type WeatherDataset string

const (
	DatasetDailySummary       WeatherDataset = "daily_summary"
	DatasetDailyPrecipitation WeatherDataset = "daily_precipitation"
	DatasetDailyTemperature   WeatherDataset = "daily_temperature"
)

func (d WeatherDataset) IsValid() bool {
	switch d {
	case DatasetDailySummary, DatasetDailyPrecipitation, DatasetDailyTemperature:
		return true
	default:
		return false
	}
}

// WeatherJob is an asynchronous climate-data download request. It is
// created by the assignment service and mutated only by the weather service.
type WeatherJob struct {
	ID           string           `json:"id" db:"id"`
	Dataset      WeatherDataset   `json:"dataset" db:"dataset"`
	Provinces    pq.StringArray   `json:"provinces" db:"provinces"`
	DateStart    Date             `json:"date_start" db:"date_start"`
	DateEnd      Date             `json:"date_end" db:"date_end"`
	Status       WeatherJobStatus `json:"status" db:"status"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	FileURL      *string          `json:"file_url,omitempty" db:"file_url"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty" db:"started_at"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty" db:"finished_at"`
}

func (j *WeatherJob) DateRange() DateRange {
	return DateRange{Start: j.DateStart, End: j.DateEnd}
}

// WeatherJobParams is the creation request sent to the gateway.
type WeatherJobParams struct {
	Dataset   WeatherDataset `json:"dataset"`
	Provinces []string       `json:"provinces"`
	DateStart Date           `json:"date_start"`
	DateEnd   Date           `json:"date_end"`
}

// WeatherJobTransition is a status change applied by the executor.
type WeatherJobTransition struct {
	JobID        string
	To           WeatherJobStatus
	ErrorMessage *string
	FileURL      *string
}
