package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobScheduler submits a fixed list of jobs to a pool on every tick.
type JobScheduler struct {
	Name     string
	Interval time.Duration
	Jobs     []JobPayload
	Pool     Pool
	mu       sync.RWMutex
}

func NewJobScheduler(name string, interval time.Duration, pool Pool) *JobScheduler {
	return &JobScheduler{
		Name:     name,
		Interval: interval,
		Jobs:     make([]JobPayload, 0),
		Pool:     pool,
	}
}

func (s *JobScheduler) AddJob(job JobPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Jobs = append(s.Jobs, job)
}

func (s *JobScheduler) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	slog.Info("Scheduler running", "scheduler", s.Name, "interval", s.Interval)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.submitJobs(ctx)
		case <-ctx.Done():
			slog.Info("Scheduler shutting down", "scheduler", s.Name)
			return
		}
	}
}

func (s *JobScheduler) submitJobs(ctx context.Context) {
	s.mu.RLock()
	jobsToRun := make([]JobPayload, len(s.Jobs))
	copy(jobsToRun, s.Jobs)
	s.mu.RUnlock()

	for _, job := range jobsToRun {
		job.JobID = uuid.NewString()
		job.RetryCount = 0

		submitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.Pool.SubmitJob(submitCtx, job); err != nil {
			slog.Error("Scheduler failed to submit job", "scheduler", s.Name, "job_type", job.Type, "error", err)
		}
		cancel()
	}
}
