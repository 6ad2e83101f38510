package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tourhub/internal/shared/apperrors"

	"github.com/IBM/sarama"
	"github.com/go-playground/validator/v10"
)

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "tourhub-refund-results",
		Topics:               []string{"refund-results"},
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    time.Minute,
		OffsetOldest:         true,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// ResultConsumer feeds gateway results from Kafka into a ResultHandler.
type ResultConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handler       ResultHandler
	logger        *slog.Logger
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewResultConsumer(config *ConsumerConfig, handler ResultHandler, logger *slog.Logger) (*ResultConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	// Results must not be skipped when the group first joins
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ResultConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		handler:       handler,
		logger:        logger,
	}, nil
}

// Start runs numWorkers consume loops until Stop is called.
func (rc *ResultConsumer) Start(ctx context.Context, numWorkers int) {
	ctx, rc.cancel = context.WithCancel(ctx)
	rc.logger.Info("starting refund result consumers",
		slog.Int("workers", numWorkers), slog.Any("topics", rc.config.Topics))

	go rc.handleErrors()

	for i := 0; i < numWorkers; i++ {
		rc.wg.Add(1)
		go func(workerID int) {
			defer rc.wg.Done()
			rc.runWorker(ctx, workerID)
		}(i)
	}
}

func (rc *ResultConsumer) runWorker(ctx context.Context, workerID int) {
	handler := newGroupHandler(rc.handler, workerID, rc.config.MaxRetries, rc.config.RetryBackoffDuration, rc.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := rc.consumerGroup.Consume(ctx, rc.config.Topics, handler); err != nil {
				rc.logger.Warn("error consuming refund results",
					slog.Int("worker", workerID), slog.String("error", err.Error()))
				time.Sleep(time.Second)
			}
		}
	}
}

func (rc *ResultConsumer) handleErrors() {
	for err := range rc.consumerGroup.Errors() {
		rc.logger.Warn("refund result consumer group error", slog.String("error", err.Error()))
	}
}

func (rc *ResultConsumer) Stop() error {
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.wg.Wait()
	if err := rc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

type groupHandler struct {
	handler    ResultHandler
	workerID   int
	maxRetries int
	backoff    time.Duration
	validate   *validator.Validate
	logger     *slog.Logger
}

func newGroupHandler(handler ResultHandler, workerID, maxRetries int, backoff time.Duration, logger *slog.Logger) *groupHandler {
	return &groupHandler{
		handler:    handler,
		workerID:   workerID,
		maxRetries: maxRetries,
		backoff:    backoff,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				// no offset past a failed result may be marked; the next
				// session resumes here
				h.logger.Error("failed to apply refund result, ending session",
					slog.Int("worker", h.workerID),
					slog.Int("partition", int(message.Partition)),
					slog.Int64("offset", message.Offset),
					slog.String("error", err.Error()))
				return fmt.Errorf("refund result at offset %d: %w", message.Offset, err)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// processMessage returns an error only for failures worth redelivering.
// Malformed messages and results the refund can no longer accept are logged
// and skipped.
func (h *groupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var result Result
	if err := json.Unmarshal(message.Value, &result); err != nil {
		h.logger.Warn("skipping malformed refund result",
			slog.Int64("offset", message.Offset), slog.String("error", err.Error()))
		return nil
	}
	if err := h.validate.Struct(result); err != nil {
		h.logger.Warn("skipping invalid refund result",
			slog.String("refund_id", result.RefundID.String()), slog.String("error", err.Error()))
		return nil
	}

	err := h.executeWithRetry(ctx, result)
	if err == nil || isPermanent(err) {
		if err != nil {
			h.logger.Warn("refund result rejected",
				slog.String("refund_id", result.RefundID.String()), slog.String("error", err.Error()))
		}
		return nil
	}
	return err
}

func (h *groupHandler) executeWithRetry(ctx context.Context, result Result) error {
	var err error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		err = h.handler(ctx, result)
		if err == nil || isPermanent(err) {
			return err
		}
		if attempt == h.maxRetries {
			break
		}

		// Exponential backoff
		delay := h.backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrInvalidStateTransition)
}
