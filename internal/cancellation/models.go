package cancellation

import (
	"time"

	"tourhub/internal/policies"

	"github.com/google/uuid"
)

// CancellationRequest is a customer's request to cancel a booking. It is
// changed only by an admin decision and never deleted.
type CancellationRequest struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"booking_id"`
	BookingRef   string     `gorm:"type:varchar(64);not null" json:"booking_ref"`
	TenantID     string     `gorm:"type:varchar(64);not null" json:"tenant_id"`
	CustomerID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	GuideID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"guide_id"`
	Reason       Reason     `gorm:"type:varchar(32);not null;check:reason IN ('USER_REQUEST', 'WEATHER', 'GUIDE_UNAVAILABLE', 'FORCE_MAJEURE', 'HEALTH_SAFETY', 'SCHEDULE_CONFLICT', 'QUALITY_ISSUE', 'OTHER')" json:"reason"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	CustomReason string     `gorm:"type:varchar(500)" json:"custom_reason,omitempty"`
	Status       Status     `gorm:"type:varchar(20);not null;check:status IN ('PENDING', 'APPROVED', 'REJECTED');default:'PENDING'" json:"status"`
	RequestedAt  time.Time  `gorm:"not null" json:"requested_at"`
	RequestedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"requested_by"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	ProcessedBy  *uuid.UUID `gorm:"type:uuid" json:"processed_by,omitempty"`
	AdminNotes   string     `gorm:"type:text" json:"admin_notes,omitempty"`

	Calculation policies.RefundCalculation `gorm:"embedded;embeddedPrefix:calc_" json:"calculation"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for CancellationRequest
func (CancellationRequest) TableName() string {
	return "cancellation_requests"
}

// IsParticipant reports whether userID is the booking's customer or guide.
func (r *CancellationRequest) IsParticipant(userID uuid.UUID) bool {
	return r.CustomerID == userID || r.GuideID == userID
}
