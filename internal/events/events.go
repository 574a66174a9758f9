// Package events publishes workout lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/claude/gymcoach/internal/metrics"
)

const (
	TypeWorkoutCompleted = "workout.completed"
	TypeWorkoutDeleted   = "workout.deleted"
)

// Event is the payload of every published message.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	WorkoutID  string    `json:"workout_id"`
	Date       string    `json:"date,omitempty"`
	Theme      string    `json:"theme,omitempty"`
	Volume     float64   `json:"volume,omitempty"`
	Sets       int       `json:"sets,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// MessageWriter writes messages to a named topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes each event type to its own topic, keyed by user
// so one user's events stay ordered within a partition.
type KafkaPublisher struct {
	writer      MessageWriter
	topicPrefix string
	metrics     *metrics.Manager
}

// NewKafkaPublisher creates a publisher writing to topicPrefix+event type.
func NewKafkaPublisher(writer MessageWriter, topicPrefix string, m *metrics.Manager) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topicPrefix: topicPrefix, metrics: m}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, p.topicPrefix+e.Type, msg); err != nil {
		p.count(e.Type, "error")
		return fmt.Errorf("publishing %s: %w", e.Type, err)
	}
	p.count(e.Type, "success")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) count(eventType, status string) {
	if p.metrics != nil {
		p.metrics.CounterEventsPublished.WithLabelValues(eventType, status).Inc()
	}
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
