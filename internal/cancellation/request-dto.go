package cancellation

import "tourhub/internal/refunds"

// CreateCancellationRequest is the body of POST /bookings/:id/cancellation-requests
type CreateCancellationRequest struct {
	Reason       Reason `json:"reason" validate:"required,max=32"`
	Description  string `json:"description" validate:"max=2000"`
	CustomReason string `json:"custom_reason" validate:"max=500"`
}

// ApproveCancellationRequest is the body of the approve command
type ApproveCancellationRequest struct {
	Notes        string         `json:"notes" validate:"max=1000"`
	RefundMethod refunds.Method `json:"refund_method" validate:"omitempty,oneof=ORIGINAL_PAYMENT BANK_TRANSFER CREDIT VOUCHER"`
}

type RejectCancellationRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}
