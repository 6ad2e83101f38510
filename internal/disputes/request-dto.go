package disputes

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenDisputeRequest is the body of POST /disputes
type OpenDisputeRequest struct {
	CancellationRequestID uuid.UUID  `json:"cancellation_request_id" validate:"required"`
	RefundRecordID        *uuid.UUID `json:"refund_record_id"`
	Type                  Type       `json:"type" validate:"required,oneof=REFUND_AMOUNT CANCELLATION_REJECTED SERVICE_NOT_PROVIDED QUALITY_ISSUE BILLING_ERROR OTHER"`
	Priority              Priority   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Description           string     `json:"description" validate:"required,min=10,max=5000"`
}

type AddEvidenceRequest struct {
	Type    EvidenceType `json:"type" validate:"omitempty,oneof=TEXT DOCUMENT PHOTO RECEIPT LINK OTHER"`
	Title   string       `json:"title" validate:"required,max=200"`
	Content string       `json:"content" validate:"required,max=10000"`
}

type AddCommunicationRequest struct {
	Message    string `json:"message" validate:"required,max=5000"`
	IsInternal bool   `json:"is_internal"`
}

// ResolveDisputeRequest carries the outcome. Amount is a decimal string.
type ResolveDisputeRequest struct {
	Type        ResolutionType   `json:"type" validate:"required,oneof=FULL_REFUND PARTIAL_REFUND NO_REFUND CREDIT REBOOK"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description" validate:"required,max=5000"`
	AgreedBy    []string         `json:"agreed_by" validate:"max=10,dive,required,max=100"`
}

// NoteRequest is the optional body of escalate and close.
type NoteRequest struct {
	Note string `json:"note" validate:"max=2000"`
}
