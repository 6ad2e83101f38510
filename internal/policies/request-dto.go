package policies

import "github.com/shopspring/decimal"

// RuleRequest describes one refund bracket
type RuleRequest struct {
	HoursBeforeStart int             `json:"hours_before_start" validate:"min=0,max=8760"`
	RefundPercentage decimal.Decimal `json:"refund_percentage"`
	ProcessingFee    decimal.Decimal `json:"processing_fee"`
	Description      string          `json:"description" validate:"max=500"`
}

// UpsertPolicyRequest creates or replaces a cancellation policy
type UpsertPolicyRequest struct {
	TenantID    string        `json:"tenant_id" validate:"omitempty,max=64"`
	Name        string        `json:"name" validate:"required,min=2,max=120"`
	Description string        `json:"description" validate:"max=2000"`
	IsDefault   bool          `json:"is_default"`
	Rules       []RuleRequest `json:"rules" validate:"required,min=1,max=20,dive"`

	// Version is the policy version the update was based on; ignored on create.
	Version int `json:"version" validate:"min=0"`
}
