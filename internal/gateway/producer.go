package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tourhub/internal/notifications"
	"tourhub/internal/shared/apperrors"

	"github.com/IBM/sarama"
)

// KafkaDispatcher publishes transfer requests keyed by refund ID.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaDispatcher creates a transfer dispatcher using the shared producer settings
func NewKafkaDispatcher(brokers []string, topic string, logger *slog.Logger) (*KafkaDispatcher, error) {
	cfg := notifications.DefaultKafkaProducerConfig()
	cfg.Brokers = brokers
	cfg.Topic = topic

	producer, err := sarama.NewSyncProducer(brokers, notifications.NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer producer: %w", err)
	}
	return NewKafkaDispatcherWith(producer, topic, logger), nil
}

// NewKafkaDispatcherWith wraps an existing sarama producer.
func NewKafkaDispatcherWith(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaDispatcher{producer: producer, topic: topic, logger: logger}
}

// Dispatch returns a GatewayError when the request could not be handed off.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, req TransferRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(req.RefundID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("refund_id"), Value: []byte(req.RefundID.String())},
			{Key: []byte("reference"), Value: []byte(req.Reference)},
			{Key: []byte("producer"), Value: []byte("tourhub-refunds")},
		},
		Timestamp: time.Now().UTC(),
	}

	partition, offset, err := d.producer.SendMessage(message)
	if err != nil {
		return apperrors.Gateway("DISPATCH_FAILED", "failed to submit refund transfer", map[string]interface{}{
			"topic": d.topic,
			"cause": err.Error(),
		})
	}

	d.logger.InfoContext(ctx, "refund transfer dispatched",
		slog.String("refund_id", req.RefundID.String()),
		slog.String("amount", req.Amount.StringFixed(2)),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

func (d *KafkaDispatcher) Close() error {
	if err := d.producer.Close(); err != nil {
		return fmt.Errorf("failed to close transfer producer: %w", err)
	}
	return nil
}

// ManualDispatcher accepts every transfer without sending it anywhere.
// Operators settle such refunds by hand and report them through the
// callback or attach-transaction endpoints.
type ManualDispatcher struct {
	Logger *slog.Logger
}

func (d ManualDispatcher) Dispatch(ctx context.Context, req TransferRequest) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "gateway disabled, refund transfer awaits manual settlement",
		slog.String("refund_id", req.RefundID.String()),
		slog.String("amount", req.Amount.StringFixed(2)),
	)
	return nil
}
