package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type PublisherStats struct {
	MessagesPublished int64
	MessagesFailed    int64
	LastPublishTime   time.Time
}

// EventPublisher publishes JSON events to durable queues. An amqp channel is
// not safe for concurrent use, so publishes are serialized.
type EventPublisher struct {
	mu       sync.Mutex
	ch       Channel
	declared map[string]bool
	stats    PublisherStats
}

func NewEventPublisher(conn *RabbitMQConnection) *EventPublisher {
	return NewEventPublisherWithChannel(conn.Channel)
}

func NewEventPublisherWithChannel(ch Channel) *EventPublisher {
	return &EventPublisher{
		ch:       ch,
		declared: make(map[string]bool),
		stats:    PublisherStats{LastPublishTime: time.Now()},
	}
}

func (p *EventPublisher) PublishWeatherJobRequested(ctx context.Context, jobID string, attempt int) error {
	return p.publish(ctx, WeatherJobRequestsQueue, WeatherJobRequestedEvent{
		JobID:       jobID,
		RequestedAt: time.Now(),
		Attempt:     attempt,
	})
}

func (p *EventPublisher) PublishEnrollmentCreated(ctx context.Context, event EnrollmentCreatedEvent) error {
	event.Type = EnrollmentCreatedType
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return p.publish(ctx, EnrollmentEventsQueue, event)
}

func (p *EventPublisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[queue] {
		_, err := p.ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			p.stats.MessagesFailed++
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		p.declared[queue] = true
	}

	err = p.ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.stats.MessagesFailed++
		return fmt.Errorf("failed to publish event to %s: %w", queue, err)
	}

	p.stats.MessagesPublished++
	p.stats.LastPublishTime = time.Now()
	slog.Debug("event published", "queue", queue, "bytes", len(body))
	return nil
}

func (p *EventPublisher) Stats() PublisherStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
