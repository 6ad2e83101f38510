package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRequest asks the payment gateway to move refund money.
type TransferRequest struct {
	RefundID              uuid.UUID       `json:"refundId"`
	Reference             string          `json:"reference"`
	CancellationRequestID uuid.UUID       `json:"cancellationRequestId"`
	CustomerID            uuid.UUID       `json:"customerId"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Method                string          `json:"method"`
	RequestedAt           time.Time       `json:"requestedAt"`
}

// Result is the gateway's asynchronous answer to a TransferRequest.
type Result struct {
	RefundID              uuid.UUID    `json:"refundId" validate:"required"`
	Success               bool         `json:"success"`
	ExternalTransactionID string       `json:"externalTransactionId,omitempty" validate:"required_if=Success true,max=128"`
	Error                 *ResultError `json:"error,omitempty" validate:"required_if=Success false"`
}

// ResultError carries the gateway's failure reason verbatim.
type ResultError struct {
	Code    string                 `json:"code" validate:"required,max=64"`
	Message string                 `json:"message" validate:"required,max=1000"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Dispatcher sends transfer requests to the gateway.
type Dispatcher interface {
	Dispatch(ctx context.Context, req TransferRequest) error
}

// ResultHandler applies a gateway result to the refund it names.
type ResultHandler func(ctx context.Context, result Result) error
