package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type WorkingPool struct {
	name       string
	NumWorkers int
	jobChan    chan JobPayload
	done       chan struct{}
	retryDelay time.Duration

	mu       sync.RWMutex
	registry map[string]JobFunc
}

func NewWorkingPool(name string, numWorkers int, queueSize int) *WorkingPool {
	return &WorkingPool{
		name:       name,
		NumWorkers: max(numWorkers, 1),
		jobChan:    make(chan JobPayload, queueSize),
		done:       make(chan struct{}),
		retryDelay: time.Second,
		registry:   make(map[string]JobFunc),
	}
}

func (p *WorkingPool) GetName() string {
	return p.name
}

func (p *WorkingPool) RegisterJob(jobType string, jobFunc JobFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registry[jobType] = jobFunc
}

// SubmitJob enqueues job, blocking while the queue is full until ctx ends or
// the pool stops.
func (p *WorkingPool) SubmitJob(ctx context.Context, job JobPayload) error {
	if _, ok := p.lookup(job.Type); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}

	select {
	case <-p.done:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobChan <- job:
		return nil
	case <-p.done:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkingPool) Start(ctx context.Context, managerWg *sync.WaitGroup) {
	defer managerWg.Done()

	var workerWg sync.WaitGroup
	for i := range p.NumWorkers {
		workerWg.Add(1)
		go p.worker(ctx, &workerWg, i+1)
	}

	<-ctx.Done()
	slog.Info("Working pool shutdown signaled", "pool_name", p.name)
	close(p.done)

	workerWg.Wait()
	slog.Info("Working pool stopped", "pool_name", p.name, "dropped_jobs", len(p.jobChan))
}

func (p *WorkingPool) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	for {
		select {
		case job := <-p.jobChan:
			p.runWithRetry(ctx, job, id)
		case <-ctx.Done():
			return
		}
	}
}

func (p *WorkingPool) runWithRetry(ctx context.Context, job JobPayload, workerID int) {
	for {
		err := p.safeExecution(ctx, job, workerID)
		if err == nil || job.RetryCount >= job.MaxRetries {
			return
		}
		job.RetryCount++
		slog.Warn("Retrying job", "pool_name", p.name, "job_id", job.JobID, "retry", job.RetryCount, "max_retries", job.MaxRetries)

		select {
		case <-time.After(p.retryDelay * time.Duration(job.RetryCount)):
		case <-ctx.Done():
			return
		}
	}
}

func (p *WorkingPool) safeExecution(ctx context.Context, job JobPayload, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic recovered in job", "pool_name", p.name, "worker", workerID, "job_id", job.JobID, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", job.JobID, r)
		}
	}()

	jobFunc, ok := p.lookup(job.Type)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}

	err = jobFunc(ctx, job.Params)
	if err != nil {
		slog.Error("Error executing job", "pool_name", p.name, "worker", workerID, "job_id", job.JobID, "job_type", job.Type, "error", err)
	}
	return err
}

func (p *WorkingPool) lookup(jobType string) (JobFunc, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn, ok := p.registry[jobType]
	return fn, ok
}
