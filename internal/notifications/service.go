package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Notifier accepts notifications without blocking the caller. Delivery
// failures never surface to the caller.
type Notifier interface {
	Notify(ctx context.Context, notification *Notification)
}

// Dispatcher queues notifications and publishes them from a background worker.
type Dispatcher struct {
	producer Producer
	queue    chan *Notification
	logger   *slog.Logger
	timeout  time.Duration

	mu      sync.RWMutex
	running bool
	closed  bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a queue of the given size.
func NewDispatcher(producer Producer, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		producer: producer,
		queue:    make(chan *Notification, queueSize),
		logger:   logger,
		timeout:  10 * time.Second,
	}
}

// Start launches the publishing worker.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("notification dispatcher is already running")
	}
	if d.closed {
		return errors.New("notification dispatcher is stopped")
	}
	d.running = true

	d.wg.Add(1)
	go d.run(context.WithoutCancel(ctx))
	d.logger.Info("notification dispatcher started", slog.Int("queue_size", cap(d.queue)))
	return nil
}

// Notify enqueues the notification, dropping it with a warning when the
// queue is full or the dispatcher is stopped.
func (d *Dispatcher) Notify(ctx context.Context, notification *Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, notification, "dispatcher stopped")
		return
	}

	select {
	case d.queue <- notification:
	default:
		d.drop(ctx, notification, "queue full")
	}
}

// Stop drains queued notifications and closes the producer.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	running := d.running
	d.mu.Unlock()

	if running {
		d.wg.Wait()
	}
	return d.producer.Close()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for notification := range d.queue {
		publishCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := d.producer.Publish(publishCtx, notification); err != nil {
			d.logger.WarnContext(ctx, "failed to publish notification",
				slog.String("notification_id", notification.ID.String()),
				slog.String("template_id", string(notification.TemplateID)),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

func (d *Dispatcher) drop(ctx context.Context, notification *Notification, reason string) {
	d.logger.WarnContext(ctx, "notification dropped",
		slog.String("reason", reason),
		slog.String("notification_id", notification.ID.String()),
		slog.String("template_id", string(notification.TemplateID)),
		slog.String("recipient_id", notification.RecipientID.String()),
	)
}

// LogProducer writes notifications to the log instead of a broker. It is
// used when Kafka is disabled.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, notification *Notification) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		slog.String("notification_id", notification.ID.String()),
		slog.String("template_id", string(notification.TemplateID)),
		slog.String("recipient_id", notification.RecipientID.String()),
		slog.Any("data", notification.Data),
	)
	return nil
}

func (LogProducer) Close() error { return nil }
