// File: internal/events/kafka/producer.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudEvent is the envelope for published events, per CloudEvents v1.0.
type CloudEvent struct {
	SpecVersion     string             `json:"specversion"`
	Type            EventType          `json:"type"`
	Source          string             `json:"source"`
	Subject         string             `json:"subject,omitempty"`
	ID              string             `json:"id"`
	Time            time.Time          `json:"time"`
	DataContentType string             `json:"datacontenttype"`
	Data            FactorEventPayload `json:"data"`
}

const (
	cloudEventSpecVersion     = "1.0"
	cloudEventDataContentType = "application/json"
	cloudEventSource          = "/mfa-service"
)

// Publisher publishes factor lifecycle events. A no-op implementation is
// used when kafka is disabled.
type Publisher interface {
	PublishFactorEvent(ctx context.Context, eventType EventType, payload FactorEventPayload)
	Close() error
}

// Producer publishes CloudEvents to a single Kafka topic.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProducer creates a synchronous, idempotent Kafka producer.
func NewProducer(brokers []string, topic string, logger *zap.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // required by the idempotent producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// PublishFactorEvent sends a factor lifecycle event, keyed by user id so
// per-user ordering is preserved. Publish failures are logged, not
// propagated; the state change has already been committed.
func (p *Producer) PublishFactorEvent(ctx context.Context, eventType EventType, payload FactorEventPayload) {
	event := CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		Type:            eventType,
		Source:          cloudEventSource,
		Subject:         payload.FactorID.String(),
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: cloudEventDataContentType,
		Data:            payload,
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal factor event", zap.Error(err), zap.String("type", string(eventType)))
		return
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(payload.UserID.String()),
		Value: sarama.ByteEncoder(value),
	}

	if _, _, err := p.producer.SendMessage(message); err != nil {
		p.logger.Error("Failed to publish factor event",
			zap.Error(err),
			zap.String("type", string(eventType)),
			zap.String("factor_id", payload.FactorID.String()),
		)
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

var _ Publisher = (*Producer)(nil)

// NopPublisher drops all events; used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishFactorEvent(context.Context, EventType, FactorEventPayload) {}

func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}
