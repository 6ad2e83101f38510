package policies

import (
	"time"

	"tourhub/internal/shared/apperrors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculate quotes the refund for cancelling at cancellationTime a booking
// worth amount whose service starts at serviceTime.
//
// Rules are scanned in stored order (descending thresholds) and the first
// rule with HoursBeforeStart <= hoursUntilService wins. When none qualifies
// the last rule, the smallest threshold, is used and FallbackApplied is set.
// The result depends only on its inputs; CalculatedAt is cancellationTime.
func Calculate(policy *CancellationPolicy, amount decimal.Decimal, serviceTime, cancellationTime time.Time) (RefundCalculation, error) {
	if !amount.IsPositive() {
		return RefundCalculation{}, apperrors.Validation("booking amount must be greater than zero").
			WithDetail("amount", amount.String())
	}
	if policy == nil {
		return RefundCalculation{}, apperrors.PolicyResolution("no cancellation policy available")
	}
	if len(policy.Rules) == 0 {
		return RefundCalculation{}, apperrors.PolicyResolution("cancellation policy %q has no rules", policy.Name).
			WithDetail("policy_id", policy.ID.String())
	}

	hoursUntil := serviceTime.Sub(cancellationTime).Hours()

	rule, fallback := selectRule(policy.Rules, hoursUntil)

	refundAmount := amount.Mul(rule.RefundPercentage).Div(hundred).Round(2)
	final := refundAmount.Sub(rule.ProcessingFee)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return RefundCalculation{
		TotalAmount:       amount,
		RefundPercentage:  rule.RefundPercentage,
		RefundAmount:      refundAmount,
		ProcessingFee:     rule.ProcessingFee,
		FinalRefundAmount: final,
		HoursUntilService: hoursUntil,
		FallbackApplied:   fallback,
		PolicyID:          policy.ID,
		PolicyName:        policy.Name,
		RuleApplied: AppliedRule{
			HoursBeforeStart: rule.HoursBeforeStart,
			RefundPercentage: rule.RefundPercentage,
			ProcessingFee:    rule.ProcessingFee,
			Description:      rule.Description,
		},
		CalculatedAt: cancellationTime.UTC(),
	}, nil
}

func selectRule(rules []CancellationRule, hoursUntil float64) (CancellationRule, bool) {
	for _, rule := range rules {
		if float64(rule.HoursBeforeStart) <= hoursUntil {
			return rule, false
		}
	}
	return rules[len(rules)-1], true
}
