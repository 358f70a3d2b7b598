// Package kafka publishes catalog events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/eventstream"
)

const (
	// DefaultTopic is used when Config.Topic is empty.
	DefaultTopic = "warren.catalog"

	defaultWriteTimeout = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config is the configuration for the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses, e.g. "localhost:9092".
	Brokers []string

	// Topic is the destination topic (defaults to "warren.catalog").
	Topic string

	// WriteTimeout bounds a single publish (defaults to 5s).
	WriteTimeout time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Publisher writes each event as one JSON message keyed by category name, so
// every event for a category lands on the same partition in order.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

// NewPublisher creates a Publisher backed by a kafka-go Writer.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, c), nil
}

func newPublisher(w messageWriter, c Config) *Publisher {
	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Publisher{
		writer:  w,
		timeout: timeout,
		logger:  logger,
	}
}

// Publish encodes the event and writes it to the topic.
func (p *Publisher) Publish(ctx context.Context, event *eventstream.CatalogEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Name),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event %s: %w", event.EventID, err)
	}

	p.logger.Debug("event published",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.String("name", event.Name),
	)
	return nil
}

// Close flushes pending writes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
