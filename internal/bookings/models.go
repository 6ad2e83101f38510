package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking is the booking collaborator's record as seen by the cancellation
// engine. It is read-only here.
type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID        string          `gorm:"type:varchar(64);index;not null;default:'default'" json:"tenant_id"`
	BookingRef      string          `gorm:"unique;not null" json:"booking_ref"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"customer_id"`
	GuideID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"guide_id"`
	TourName        string          `gorm:"type:varchar(200)" json:"tour_name"`
	ServiceDateTime time.Time       `gorm:"not null" json:"service_date_time"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency        string          `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	PolicyID        *uuid.UUID      `gorm:"type:uuid" json:"policy_id,omitempty"`
	Status          Status          `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// IsParticipant reports whether userID is the booking's customer or guide.
func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.CustomerID == userID || b.GuideID == userID
}
