package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TemplateID names the message the notification service renders. Rendering
// and delivery happen downstream; this service only publishes data.
type TemplateID string

const (
	TemplateCancellationApproved TemplateID = "CANCELLATION_APPROVED"
	TemplateCancellationRejected TemplateID = "CANCELLATION_REJECTED"
	TemplateRefundCompleted      TemplateID = "REFUND_COMPLETED"
	TemplateRefundFailed         TemplateID = "REFUND_FAILED"
	TemplateDisputeOpened        TemplateID = "DISPUTE_OPENED"
	TemplateDisputeResolved      TemplateID = "DISPUTE_RESOLVED"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Notification is the message published to the notifications topic.
type Notification struct {
	ID          uuid.UUID              `json:"id"`
	TemplateID  TemplateID             `json:"templateId"`
	RecipientID uuid.UUID              `json:"recipientId"`
	Priority    Priority               `json:"priority"`
	Data        map[string]interface{} `json:"data"`
	CreatedAt   time.Time              `json:"createdAt"`

	// Context
	BookingID             *uuid.UUID `json:"bookingId,omitempty"`
	CancellationRequestID *uuid.UUID `json:"cancellationRequestId,omitempty"`
	RefundID              *uuid.UUID `json:"refundId,omitempty"`
	DisputeID             *uuid.UUID `json:"disputeId,omitempty"`
}

type NotificationBuilder struct {
	notification *Notification
}

func NewNotificationBuilder() *NotificationBuilder {
	return &NotificationBuilder{
		notification: &Notification{
			ID:        uuid.New(),
			Priority:  PriorityMedium,
			Data:      make(map[string]interface{}),
			CreatedAt: time.Now().UTC(),
		},
	}
}

func (nb *NotificationBuilder) WithTemplate(templateID TemplateID) *NotificationBuilder {
	nb.notification.TemplateID = templateID
	nb.notification.Priority = GetDefaultPriority(templateID)
	return nb
}

func (nb *NotificationBuilder) WithRecipient(userID uuid.UUID) *NotificationBuilder {
	nb.notification.RecipientID = userID
	return nb
}

func (nb *NotificationBuilder) WithData(key string, value interface{}) *NotificationBuilder {
	nb.notification.Data[key] = value
	return nb
}

func (nb *NotificationBuilder) WithBookingContext(bookingID uuid.UUID) *NotificationBuilder {
	nb.notification.BookingID = &bookingID
	return nb
}

func (nb *NotificationBuilder) WithCancellationContext(requestID uuid.UUID) *NotificationBuilder {
	nb.notification.CancellationRequestID = &requestID
	return nb
}

func (nb *NotificationBuilder) WithRefundContext(refundID uuid.UUID) *NotificationBuilder {
	nb.notification.RefundID = &refundID
	return nb
}

func (nb *NotificationBuilder) WithDisputeContext(disputeID uuid.UUID) *NotificationBuilder {
	nb.notification.DisputeID = &disputeID
	return nb
}

func (nb *NotificationBuilder) Build() *Notification {
	return nb.notification
}

func GetDefaultPriority(templateID TemplateID) Priority {
	switch templateID {
	case TemplateRefundFailed, TemplateDisputeOpened:
		return PriorityHigh
	case TemplateCancellationApproved, TemplateCancellationRejected, TemplateRefundCompleted, TemplateDisputeResolved:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func (n *Notification) GetPartitionKey() string {
	return n.RecipientID.String()
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
