package weatherjob

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"agrisa-ops/internal/models"
)

// Subscriber delivers every weather job snapshot that changes. The returned
// func stops the subscription.
type Subscriber interface {
	SubscribeToJobUpdates(ctx context.Context, callback func(models.WeatherJob)) (func(), error)
}

// Hub fans a single job update subscription out to per-job watchers.
// Updates for jobs nobody watches are dropped.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[chan models.WeatherJob]struct{}
	bufSize  int
}

func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 4
	}
	return &Hub{
		watchers: make(map[string]map[chan models.WeatherJob]struct{}),
		bufSize:  bufSize,
	}
}

// Start subscribes the hub to sub until ctx is cancelled.
func (h *Hub) Start(ctx context.Context, sub Subscriber) error {
	unsubscribe, err := sub.SubscribeToJobUpdates(ctx, h.Dispatch)
	if err != nil {
		return fmt.Errorf("failed to subscribe to job updates: %w", err)
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
		slog.Info("job update hub stopped")
	}()
	return nil
}

// Watch registers interest in jobID. The channel is closed by the returned
// cancel func, which must be called exactly once.
func (h *Hub) Watch(jobID string) (<-chan models.WeatherJob, func()) {
	ch := make(chan models.WeatherJob, h.bufSize)

	h.mu.Lock()
	set, ok := h.watchers[jobID]
	if !ok {
		set = make(map[chan models.WeatherJob]struct{})
		h.watchers[jobID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.watchers[jobID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.watchers, jobID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Dispatch delivers job to its watchers without blocking. A full buffer
// loses its oldest snapshot.
func (h *Hub) Dispatch(job models.WeatherJob) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.watchers[job.ID] {
		select {
		case ch <- job:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- job:
		default:
			slog.Warn("dropped job update", "job_id", job.ID, "status", job.Status)
		}
	}
}

func (h *Hub) watching(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[jobID])
}
