package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/payreto-reconciler/pkg/logger"
)

// ErrNoHandler is returned for messages whose event type has no registered handler
var ErrNoHandler = errors.New("no handler registered for event type")

// Message is a consumed event with its routing metadata
type Message struct {
	EventType string
	EventID   string
	Key       string
	Value     []byte
}

// Retry defaults for failed handlers
const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// Consumer wraps Kafka consumer
type Consumer struct {
	consumer      sarama.ConsumerGroup
	brokers       []string
	groupID       string
	topics        []string
	handlers      map[string]EventHandler
	handlersMutex sync.RWMutex
	maxAttempts   int
	retryBackoff  time.Duration
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, msg Message) error

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Logger.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Strs("topics", topics).
		Msg("Kafka consumer initialized")

	c := newConsumer(groupID, topics)
	c.consumer = consumer
	c.brokers = brokers
	return c, nil
}

func newConsumer(groupID string, topics []string) *Consumer {
	return &Consumer{
		groupID:      groupID,
		topics:       topics,
		handlers:     make(map[string]EventHandler),
		maxAttempts:  DefaultMaxAttempts,
		retryBackoff: DefaultRetryBackoff,
	}
}

// SetRetry configures how often a failing handler is retried before the claim gives up
func (c *Consumer) SetRetry(maxAttempts int, backoff time.Duration) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	c.maxAttempts = maxAttempts
	c.retryBackoff = backoff
}

// RegisterHandler registers an event handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler EventHandler) {
	c.handlersMutex.Lock()
	defer c.handlersMutex.Unlock()
	c.handlers[eventType] = handler
	logger.Logger.Info().
		Str("event_type", eventType).
		Msg("Event handler registered")
}

// Start starts consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		consumer: c,
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Info().Msg("Consumer context cancelled, stopping...")
				return
			default:
				if err := c.consumer.Consume(ctx, c.topics, handler); err != nil {
					if errors.Is(err, sarama.ErrClosedConsumerGroup) {
						return
					}
					logger.Logger.Error().
						Err(err).
						Msg("Error from consumer")
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for err := range c.consumer.Errors() {
			logger.Logger.Error().
				Err(err).
				Msg("Consumer error")
		}
	}()

	logger.Logger.Info().
		Strs("topics", c.topics).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")

	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	if c.consumer != nil {
		return c.consumer.Close()
	}
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim handles messages one at a time so notifications of a partition keep delivery order.
// A message is marked only once it is handled or has no handler. When retries run out the claim
// returns the error unmarked, ending the session so the message is read again from the last
// committed offset.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handleWithRetry(session.Context(), message); err != nil {
			return err
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *consumerGroupHandler) handleWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	backoff := h.consumer.retryBackoff
	var err error
	for attempt := 1; attempt <= h.consumer.maxAttempts; attempt++ {
		err = h.handleMessage(ctx, message)
		if err == nil || errors.Is(err, ErrNoHandler) {
			return nil
		}
		if attempt == h.consumer.maxAttempts {
			break
		}

		logger.Logger.Warn().
			Err(err).
			Str("topic", message.Topic).
			Int32("partition", message.Partition).
			Int64("offset", message.Offset).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying message")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
	return fmt.Errorf("message at %s/%d/%d not handled after %d attempts: %w",
		message.Topic, message.Partition, message.Offset, h.consumer.maxAttempts, err)
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	// Extract trace context from Kafka headers
	carrier := propagation.MapCarrier{}
	for _, header := range message.Headers {
		key := string(header.Key)
		if key == "traceparent" || key == "tracestate" {
			carrier[key] = string(header.Value)
		}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("kafka-consumer")
	ctx, span := tracer.Start(ctx, "kafka.consume."+message.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.source", message.Topic),
			attribute.String("messaging.source_kind", "topic"),
			attribute.Int("messaging.kafka.partition", int(message.Partition)),
			attribute.Int64("messaging.kafka.offset", message.Offset),
		),
	)
	defer span.End()

	logger.Logger.Debug().
		Str("topic", message.Topic).
		Int32("partition", message.Partition).
		Int64("offset", message.Offset).
		Str("trace_id", span.SpanContext().TraceID().String()).
		Msg("Received message")

	msg := Message{Key: string(message.Key), Value: message.Value}
	for _, header := range message.Headers {
		switch string(header.Key) {
		case "event_type":
			msg.EventType = string(header.Value)
		case "event_id":
			msg.EventID = string(header.Value)
		}
	}

	// Producers that cannot set headers put the type in the body
	if msg.EventType == "" {
		var meta struct {
			EventID   string `json:"event_id"`
			EventType string `json:"event_type"`
		}
		if err := json.Unmarshal(message.Value, &meta); err == nil {
			msg.EventType = meta.EventType
			if msg.EventID == "" {
				msg.EventID = meta.EventID
			}
		}
	}

	if msg.EventType == "" {
		span.SetStatus(codes.Error, "Message without event_type")
		logger.Logger.Warn().Str("topic", message.Topic).Msg("Message without event_type")
		return fmt.Errorf("message at %s/%d/%d: %w", message.Topic, message.Partition, message.Offset, ErrNoHandler)
	}

	span.SetAttributes(
		attribute.String("event.type", msg.EventType),
		attribute.String("event.id", msg.EventID),
	)

	h.consumer.handlersMutex.RLock()
	handler, exists := h.consumer.handlers[msg.EventType]
	h.consumer.handlersMutex.RUnlock()

	if !exists {
		span.SetStatus(codes.Error, "No handler registered")
		logger.Logger.Warn().
			Str("event_type", msg.EventType).
			Msg("No handler registered for event type")
		return fmt.Errorf("%s: %w", msg.EventType, ErrNoHandler)
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to handle event")
		logger.Logger.Error().
			Err(err).
			Str("event_type", msg.EventType).
			Str("event_id", msg.EventID).
			Str("trace_id", span.SpanContext().TraceID().String()).
			Msg("Failed to handle event")
		return err
	}

	span.SetStatus(codes.Ok, "Event handled successfully")
	logger.Logger.Info().
		Str("event_type", msg.EventType).
		Str("event_id", msg.EventID).
		Str("trace_id", span.SpanContext().TraceID().String()).
		Msg("Event handled successfully")
	return nil
}
