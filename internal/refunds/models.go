package refunds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RefundRecord tracks one movement of refund money. Records are never
// deleted; a failed transfer is retried by a new record that supersedes it.
type RefundRecord struct {
	ID                    uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Reference             string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"reference"`
	CancellationRequestID uuid.UUID       `gorm:"type:uuid;not null" json:"cancellation_request_id"`
	BookingID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"booking_id"`
	CustomerID            uuid.UUID       `gorm:"type:uuid;index;not null" json:"customer_id"`
	DisputeID             *uuid.UUID      `gorm:"type:uuid;index" json:"dispute_id,omitempty"`
	SupersedesID          *uuid.UUID      `gorm:"type:uuid" json:"supersedes_id,omitempty"`
	Kind                  Kind            `gorm:"type:varchar(20);not null;check:kind IN ('ORIGINAL', 'COMPENSATING', 'RETRY')" json:"kind"`
	IdempotencyKey        string          `gorm:"type:varchar(120);uniqueIndex;not null" json:"-"`
	Amount                decimal.Decimal `gorm:"type:numeric(12,2);not null;check:amount >= 0" json:"amount"`
	Currency              string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Method                Method          `gorm:"type:varchar(30);not null" json:"method"`
	Status                Status          `gorm:"type:varchar(20);not null;index;check:status IN ('PENDING', 'PROCESSING', 'APPROVED', 'REJECTED', 'COMPLETED', 'FAILED')" json:"status"`
	ExternalTransactionID string          `gorm:"type:varchar(128)" json:"external_transaction_id,omitempty"`

	ErrorCode    string            `gorm:"type:varchar(64)" json:"error_code,omitempty"`
	ErrorMessage string            `gorm:"type:text" json:"error_message,omitempty"`
	ErrorDetails datatypes.JSONMap `gorm:"type:jsonb" json:"error_details,omitempty"`

	InitiatedAt     time.Time  `gorm:"not null" json:"initiated_at"`
	InitiatedBy     uuid.UUID  `gorm:"type:uuid;not null" json:"initiated_by"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessedBy     *uuid.UUID `gorm:"type:uuid" json:"processed_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedBy     *uuid.UUID `gorm:"type:uuid" json:"completed_by,omitempty"`
	FailedAt        *time.Time `json:"failed_at,omitempty"`
	FailedBy        *uuid.UUID `gorm:"type:uuid" json:"failed_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      *uuid.UUID `gorm:"type:uuid" json:"rejected_by,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`
	Notes           string     `gorm:"type:text" json:"notes,omitempty"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RefundRecord) TableName() string {
	return "refund_records"
}

// ProcessingTime is (completedAt, else processedAt) minus initiatedAt, or
// nil when neither stage has been reached.
func (r *RefundRecord) ProcessingTime() *time.Duration {
	end := r.CompletedAt
	if end == nil {
		end = r.ProcessedAt
	}
	if end == nil {
		return nil
	}
	d := end.Sub(r.InitiatedAt)
	return &d
}

// HasError reports whether a failure reason is recorded.
func (r *RefundRecord) HasError() bool {
	return r.ErrorCode != ""
}

// RefundResponse adds derived fields to a record for API output.
type RefundResponse struct {
	*RefundRecord
	ProcessingTimeSeconds *float64 `json:"processing_time_seconds,omitempty"`
}

func NewRefundResponse(r *RefundRecord) RefundResponse {
	resp := RefundResponse{RefundRecord: r}
	if d := r.ProcessingTime(); d != nil {
		secs := d.Seconds()
		resp.ProcessingTimeSeconds = &secs
	}
	return resp
}
