package disputes

import (
	"time"

	"tourhub/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DisputeCase is a party's challenge of a cancellation or refund outcome.
// Evidence and communications are append-only; the resolution is set once.
type DisputeCase struct {
	ID                    uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Reference             string     `gorm:"type:varchar(40);uniqueIndex;not null" json:"reference"`
	CancellationRequestID uuid.UUID  `gorm:"type:uuid;not null;index" json:"cancellation_request_id"`
	RefundRecordID        *uuid.UUID `gorm:"type:uuid;index" json:"refund_record_id,omitempty"`
	BookingID             uuid.UUID  `gorm:"type:uuid;not null" json:"booking_id"`
	CustomerID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	GuideID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"guide_id"`
	OpenedBy              uuid.UUID  `gorm:"type:uuid;not null" json:"opened_by"`
	OpenedByRole          users.Role `gorm:"type:varchar(20);not null" json:"opened_by_role"`

	Type        Type     `gorm:"type:varchar(32);not null;check:type IN ('REFUND_AMOUNT', 'CANCELLATION_REJECTED', 'SERVICE_NOT_PROVIDED', 'QUALITY_ISSUE', 'BILLING_ERROR', 'OTHER')" json:"type"`
	Status      Status   `gorm:"type:varchar(20);not null;check:status IN ('OPEN', 'INVESTIGATING', 'RESOLVED', 'ESCALATED', 'CLOSED');default:'OPEN'" json:"status"`
	Priority    Priority `gorm:"type:varchar(10);not null;check:priority IN ('LOW', 'MEDIUM', 'HIGH', 'URGENT');default:'MEDIUM'" json:"priority"`
	Description string   `gorm:"type:text;not null" json:"description"`

	AssignedTo     *uuid.UUID `gorm:"type:uuid" json:"assigned_to,omitempty"`
	InvestigatedAt *time.Time `json:"investigated_at,omitempty"`
	EscalatedAt    *time.Time `json:"escalated_at,omitempty"`
	EscalationNote string     `gorm:"type:text" json:"escalation_note,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosedBy       *uuid.UUID `gorm:"type:uuid" json:"closed_by,omitempty"`
	CloseReason    string     `gorm:"type:text" json:"close_reason,omitempty"`

	Resolution Resolution `gorm:"embedded;embeddedPrefix:resolution_" json:"-"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	Evidence       []Evidence      `gorm:"foreignKey:DisputeID;constraint:OnDelete:RESTRICT;" json:"evidence"`
	Communications []Communication `gorm:"foreignKey:DisputeID;constraint:OnDelete:RESTRICT;" json:"communications"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolution is the admin's final outcome. Type is empty until resolved.
type Resolution struct {
	Type                 ResolutionType              `gorm:"type:varchar(20)" json:"type"`
	Amount               decimal.NullDecimal         `gorm:"type:numeric(12,2)" json:"amount"`
	Description          string                      `gorm:"type:text" json:"description"`
	AgreedBy             datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"agreed_by"`
	ResolvedBy           *uuid.UUID                  `gorm:"type:uuid" json:"resolved_by,omitempty"`
	CompensatingRefundID *uuid.UUID                  `gorm:"type:uuid" json:"compensating_refund_id,omitempty"`
}

// Evidence is an append-only exhibit attached to a dispute.
type Evidence struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DisputeID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"dispute_id"`
	Sequence       int          `gorm:"not null" json:"sequence"`
	Type           EvidenceType `gorm:"type:varchar(20);not null" json:"type"`
	Title          string       `gorm:"type:varchar(200);not null" json:"title"`
	Content        string       `gorm:"type:text;not null" json:"content"`
	UploadedBy     uuid.UUID    `gorm:"type:uuid;not null" json:"uploaded_by"`
	UploadedByRole users.Role   `gorm:"type:varchar(20);not null" json:"uploaded_by_role"`
	UploadedAt     time.Time    `gorm:"not null" json:"uploaded_at"`
}

// Communication is an append-only message on a dispute. Internal messages
// are only shown to admins.
type Communication struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DisputeID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"dispute_id"`
	Sequence     int        `gorm:"not null" json:"sequence"`
	FromUserID   uuid.UUID  `gorm:"type:uuid;not null" json:"from_user_id"`
	FromUserRole users.Role `gorm:"type:varchar(20);not null" json:"from_user_role"`
	Message      string     `gorm:"type:text;not null" json:"message"`
	IsInternal   bool       `gorm:"not null;default:false" json:"is_internal"`
	SentAt       time.Time  `gorm:"not null" json:"sent_at"`
}

func (DisputeCase) TableName() string {
	return "dispute_cases"
}

func (Evidence) TableName() string {
	return "dispute_evidence"
}

func (Communication) TableName() string {
	return "dispute_communications"
}

// IsParticipant reports whether userID is the booking's customer or guide.
func (d *DisputeCase) IsParticipant(userID uuid.UUID) bool {
	return d.CustomerID == userID || d.GuideID == userID
}

// IsResolved reports whether a resolution has been recorded.
func (d *DisputeCase) IsResolved() bool {
	return d.Resolution.Type != ""
}

// DisputeResponse is a dispute as shown to one viewer.
type DisputeResponse struct {
	*DisputeCase
	Resolution     *Resolution     `json:"resolution"`
	Communications []Communication `json:"communications"`
}

// NewDisputeResponse hides internal communications from non-admin viewers.
func NewDisputeResponse(d *DisputeCase, viewer users.Actor) DisputeResponse {
	resp := DisputeResponse{DisputeCase: d, Communications: make([]Communication, 0, len(d.Communications))}
	if d.IsResolved() {
		resolution := d.Resolution
		resp.Resolution = &resolution
	}
	for _, c := range d.Communications {
		if c.IsInternal && !viewer.IsAdmin() {
			continue
		}
		resp.Communications = append(resp.Communications, c)
	}
	return resp
}
