package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"agrisa-ops/internal/models"
	utils "agrisa-ops/shared/utils"

	"github.com/redis/go-redis/v9"
)

// JobUpdateBus carries weather job snapshots over Redis pub/sub. The weather
// service publishes every transition; the assignment service subscribes.
type JobUpdateBus struct {
	client  *redis.Client
	channel string
}

func NewJobUpdateBus(client *redis.Client) *JobUpdateBus {
	return &JobUpdateBus{client: client, channel: JobUpdatesChannel}
}

func (b *JobUpdateBus) Publish(ctx context.Context, job models.WeatherJob) error {
	payload, err := utils.SerializeModel(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job update: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish job update: %w", err)
	}
	return nil
}

// Subscribe calls callback for every snapshot received until the returned
// func is called or ctx ends. Undecodable payloads are logged and skipped.
func (b *JobUpdateBus) Subscribe(ctx context.Context, callback func(models.WeatherJob)) (func(), error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var job models.WeatherJob
			if err := utils.DeserializeModel([]byte(msg.Payload), &job); err != nil {
				slog.Warn("invalid job update payload", "error", err)
				continue
			}
			callback(job)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				slog.Error("failed to close job update subscription", "error", err)
			}
			<-done
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	slog.Info("subscribed to job updates", "channel", b.channel)
	return stop, nil
}
