package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/reelworks/reco/internal/config"
	"github.com/reelworks/reco/pkg/models"
)

const ConsumerGroup = "reco-profile-invalidation"

// BehaviorEvent mirrors one behavioral-log append on the wire. Downstream
// consumers (profile cache invalidation, analytics) read it from the
// user-behavior topic; the PostgreSQL row remains the source of truth.
type BehaviorEvent struct {
	Record    models.BehaviorRecord `json:"record"`
	Timestamp time.Time             `json:"timestamp"`
}

// BehaviorBus publishes behavioral-log events and feeds the in-process
// invalidation consumer.
type BehaviorBus struct {
	writer *kafka.Writer
	reader *kafka.Reader
	logger *logrus.Logger
}

func NewBehaviorBus(cfg *config.Config, logger *logrus.Logger) (*BehaviorBus, error) {
	topic := cfg.Kafka.Topics.UserBehavior

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // key by user so one user's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        ConsumerGroup,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &BehaviorBus{
		writer: writer,
		reader: reader,
		logger: logger,
	}, nil
}

// Publish appends one behavior event to the bus. Failures are the caller's
// to log and swallow; the event is already durable in PostgreSQL.
func (b *BehaviorBus) Publish(ctx context.Context, record models.BehaviorRecord) error {
	event := BehaviorEvent{
		Record:    record,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal behavior event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(record.UserID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "behavior_type", Value: []byte(record.BehaviorType)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.writer.WriteMessages(writeCtx, message); err != nil {
		return fmt.Errorf("failed to write behavior event: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"user_id":       record.UserID,
		"content_id":    record.ContentID,
		"behavior_type": record.BehaviorType,
	}).Debug("Behavior event published")

	return nil
}

// Consume delivers behavior events to handler until ctx is canceled. Handler
// errors are logged and the event is dropped; the log in PostgreSQL is the
// durable record so replays are not needed here.
func (b *BehaviorBus) Consume(ctx context.Context, handler func(BehaviorEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := b.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				b.logger.WithError(err).Error("Failed to read behavior event")
				continue
			}

			var event BehaviorEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				b.logger.WithError(err).Error("Failed to unmarshal behavior event")
				continue
			}

			if err := handler(event); err != nil {
				b.logger.WithError(err).WithField(
					"user_id", event.Record.UserID,
				).Warn("Behavior event handler failed")
			}
		}
	}
}

func (b *BehaviorBus) Close() error {
	var errs []error

	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close writer: %w", err))
	}

	if err := b.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close reader: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing behavior bus: %v", errs)
	}

	return nil
}
