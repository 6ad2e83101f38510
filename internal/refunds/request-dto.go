package refunds

// AdvanceRefundRequest moves a refund one stage forward
type AdvanceRefundRequest struct {
	Stage Stage  `json:"stage" validate:"required,oneof=process approve complete"`
	Notes string `json:"notes" validate:"max=1000"`
}

// FailRefundRequest records a failure reported outside the gateway feed
type FailRefundRequest struct {
	Code    string                 `json:"code" validate:"required,max=64"`
	Message string                 `json:"message" validate:"required,max=1000"`
	Details map[string]interface{} `json:"details"`
}

type RejectRefundRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

type AttachTransactionRequest struct {
	ExternalTransactionID string `json:"external_transaction_id" validate:"required,max=128"`
}
