package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"agrisa-ops/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// WeatherJobRequestHandler accepts a job request for execution.
type WeatherJobRequestHandler interface {
	HandleWeatherJobRequested(ctx context.Context, event WeatherJobRequestedEvent) error
}

// WeatherJobConsumer consumes weather job requests from RabbitMQ
type WeatherJobConsumer struct {
	conn     *RabbitMQConnection
	handler  WeatherJobRequestHandler
	prefetch int
}

func NewWeatherJobConsumer(conn *RabbitMQConnection, handler WeatherJobRequestHandler, prefetch int) *WeatherJobConsumer {
	return &WeatherJobConsumer{
		conn:     conn,
		handler:  handler,
		prefetch: max(prefetch, 1),
	}
}

// Start begins consuming requests until ctx is cancelled.
func (c *WeatherJobConsumer) Start(ctx context.Context) error {
	_, err := c.conn.Channel.QueueDeclare(
		WeatherJobRequestsQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.conn.Channel.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := c.conn.Channel.Consume(
		WeatherJobRequestsQueue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("Weather job consumer started", "queue", WeatherJobRequestsQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("Weather job consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("Weather job consumer channel closed")
					return
				}
				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *WeatherJobConsumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event WeatherJobRequestedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.JobID == "" {
		slog.Error("malformed weather job request, dropping", "error", err)
		msg.Nack(false, false)
		return
	}

	slog.Info("Received weather job request", "job_id", event.JobID, "attempt", event.Attempt)

	if err := c.handler.HandleWeatherJobRequested(ctx, event); err != nil {
		requeue := errors.Is(err, models.ErrUnavailable)
		slog.Error("failed to handle weather job request",
			"job_id", event.JobID,
			"requeue", requeue,
			"error", err,
		)
		msg.Nack(false, requeue)
		return
	}

	msg.Ack(false)
}
