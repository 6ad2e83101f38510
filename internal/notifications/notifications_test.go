package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestKafkaProducerPublishesJSON(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	recipient := uuid.New()
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var decoded map[string]interface{}
		if err := json.Unmarshal(val, &decoded); err != nil {
			return err
		}
		if decoded["templateId"] != string(TemplateRefundCompleted) {
			return errors.New("unexpected template")
		}
		if decoded["recipientId"] != recipient.String() {
			return errors.New("unexpected recipient")
		}
		return nil
	})

	producer := NewKafkaProducerWith(sp, "notifications", quiet)
	n := NewNotificationBuilder().
		WithTemplate(TemplateRefundCompleted).
		WithRecipient(recipient).
		WithData("amount", "1336.00").
		Build()

	require.NoError(t, producer.Publish(context.Background(), n))
	require.NoError(t, producer.Close())
}

func TestKafkaProducerReportsFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(errors.New("broker down"))

	producer := NewKafkaProducerWith(sp, "notifications", quiet)
	err := producer.Publish(context.Background(), NewNotificationBuilder().WithTemplate(TemplateDisputeOpened).Build())

	assert.Error(t, err)
	require.NoError(t, producer.Close())
}

type recordingProducer struct {
	mu        sync.Mutex
	published []*Notification
	fail      bool
	closed    bool
}

func (p *recordingProducer) Publish(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("publish failed")
	}
	p.published = append(p.published, n)
	return nil
}

func (p *recordingProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func TestDispatcherDropsWhenQueueIsFull(t *testing.T) {
	producer := &recordingProducer{}
	d := NewDispatcher(producer, 1, quiet)

	done := make(chan struct{})
	go func() {
		// not started, so the second notification finds the queue full
		d.Notify(context.Background(), NewNotificationBuilder().Build())
		d.Notify(context.Background(), NewNotificationBuilder().Build())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	require.NoError(t, d.Start(context.Background()))
	require.NoError(t, d.Stop())
	assert.Equal(t, 1, producer.count())
	assert.True(t, producer.closed)
}

func TestDispatcherDrainsOnStop(t *testing.T) {
	producer := &recordingProducer{}
	d := NewDispatcher(producer, 16, quiet)
	require.NoError(t, d.Start(context.Background()))

	for i := 0; i < 10; i++ {
		d.Notify(context.Background(), NewNotificationBuilder().WithTemplate(TemplateDisputeResolved).Build())
	}
	require.NoError(t, d.Stop())

	assert.Equal(t, 10, producer.count())
	d.Notify(context.Background(), NewNotificationBuilder().Build()) // after stop: dropped, no panic
	assert.Equal(t, 10, producer.count())
}

func TestDispatcherSurvivesPublishFailures(t *testing.T) {
	producer := &recordingProducer{fail: true}
	d := NewDispatcher(producer, 4, quiet)
	require.NoError(t, d.Start(context.Background()))

	d.Notify(context.Background(), NewNotificationBuilder().Build())
	require.NoError(t, d.Stop())
	assert.Equal(t, 0, producer.count())
}

func TestDefaultPriority(t *testing.T) {
	n := NewNotificationBuilder().WithTemplate(TemplateDisputeOpened).Build()
	assert.Equal(t, PriorityHigh, n.Priority)
	assert.Equal(t, PriorityMedium, GetDefaultPriority(TemplateCancellationApproved))
}
