package policies

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancellationPolicy is an ordered set of refund rules. Rules are kept
// sorted by HoursBeforeStart descending; Position 0 is the largest threshold.
type CancellationPolicy struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    string             `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	Name        string             `gorm:"type:varchar(120);not null" json:"name"`
	Description string             `gorm:"type:text" json:"description,omitempty"`
	IsDefault   bool               `gorm:"not null;default:false" json:"is_default"`
	Version     int                `gorm:"not null;default:1" json:"version"`
	Rules       []CancellationRule `gorm:"foreignKey:PolicyID;constraint:OnDelete:CASCADE;" json:"rules"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CancellationRule grants RefundPercentage minus ProcessingFee to
// cancellations made at least HoursBeforeStart hours before service.
type CancellationRule struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PolicyID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"policy_id"`
	Position         int             `gorm:"not null" json:"position"`
	HoursBeforeStart int             `gorm:"not null;check:hours_before_start >= 0" json:"hours_before_start"`
	RefundPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;check:refund_percentage >= 0 AND refund_percentage <= 100" json:"refund_percentage"`
	ProcessingFee    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;check:processing_fee >= 0" json:"processing_fee"`
	Description      string          `gorm:"type:varchar(500)" json:"description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AppliedRule is the copy of a rule kept inside a calculation snapshot.
type AppliedRule struct {
	HoursBeforeStart int             `gorm:"not null" json:"hours_before_start"`
	RefundPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"refund_percentage"`
	ProcessingFee    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"processing_fee"`
	Description      string          `gorm:"type:varchar(500)" json:"description,omitempty"`
}

// RefundCalculation is an immutable quote. It is embedded into cancellation
// requests and never edited; re-quoting produces a new value.
type RefundCalculation struct {
	TotalAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	RefundPercentage  decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"refund_percentage"`
	RefundAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"refund_amount"`
	ProcessingFee     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"processing_fee"`
	FinalRefundAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"final_refund_amount"`
	HoursUntilService float64         `gorm:"not null" json:"hours_until_service"`
	FallbackApplied   bool            `gorm:"not null;default:false" json:"fallback_applied"`
	PolicyID          uuid.UUID       `gorm:"type:uuid;not null" json:"policy_id"`
	PolicyName        string          `gorm:"type:varchar(120);not null" json:"policy_name"`
	RuleApplied       AppliedRule     `gorm:"embedded;embeddedPrefix:rule_" json:"rule_applied"`
	CalculatedAt      time.Time       `gorm:"not null" json:"calculated_at"`
}

func (CancellationPolicy) TableName() string {
	return "cancellation_policies"
}

func (CancellationRule) TableName() string {
	return "cancellation_rules"
}
