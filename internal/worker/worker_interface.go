package worker

import (
	"context"
	"errors"
	"sync"
)

type (
	JobFunc func(ctx context.Context, params map[string]any) error
	Worker  interface {
		Run(ctx context.Context, wg *sync.WaitGroup)
	}
)

var (
	ErrPoolStopped    = errors.New("worker pool stopped")
	ErrUnknownJobType = errors.New("unknown job type")
)

// JobPayload is one unit of work submitted to a pool. Type selects the
// registered JobFunc.
type JobPayload struct {
	JobID      string         `json:"job_id"`
	Type       string         `json:"type"`
	Params     map[string]any `json:"params"`
	MaxRetries int            `json:"max_retries"`
	RetryCount int            `json:"retry_count"`
}

type Pool interface {
	Start(ctx context.Context, managerWg *sync.WaitGroup)

	SubmitJob(ctx context.Context, job JobPayload) error

	RegisterJob(jobType string, jobFunc JobFunc)

	GetName() string
}
