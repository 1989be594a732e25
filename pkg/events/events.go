// Package events publishes booking lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bazcar/bazcar-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const TypeBookingSubmitted = "booking.submitted"

// BookingSubmitted is emitted after the booking API accepted a cart.
type BookingSubmitted struct {
	EventID         string    `json:"event_id"`
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	CarIDs          []int64   `json:"car_ids"`
	ItemsCount      int       `json:"items_count"`
	TotalPrice      int64     `json:"total_price"`
	DiscountPercent int       `json:"discount_percent,omitempty"`
	QRCode          string    `json:"qr_code,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Publisher sends booking events somewhere durable.
type Publisher interface {
	PublishBookingSubmitted(ctx context.Context, event BookingSubmitted) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON, keyed by session id so one
// visitor's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            5,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}

	logger.Info("Kafka publisher created", logger.Fields{
		"brokers": brokers,
		"topic":   topic,
	})
	return &KafkaPublisher{writer: writer, topic: topic}
}

func (p *KafkaPublisher) PublishBookingSubmitted(ctx context.Context, event BookingSubmitted) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	event.Type = TypeBookingSubmitted
	if event.SubmittedAt.IsZero() {
		event.SubmittedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TypeBookingSubmitted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error("Failed to publish booking event", err, logger.Fields{
			"topic":    p.topic,
			"event_id": event.EventID,
		})
		return err
	}

	logger.Debug("Booking event published", logger.Fields{
		"topic":    p.topic,
		"event_id": event.EventID,
	})
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBookingSubmitted(ctx context.Context, event BookingSubmitted) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// New returns a Kafka publisher, or a no-op one when brokers is empty.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		logger.Info("No Kafka brokers configured, booking events are disabled")
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
