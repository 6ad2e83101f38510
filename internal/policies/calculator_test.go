package policies

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"tourhub/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func standardPolicy() *CancellationPolicy {
	return &CancellationPolicy{
		ID:   uuid.MustParse("6f1c2d3e-0000-4000-8000-000000000001"),
		Name: "standard",
		Rules: []CancellationRule{
			{Position: 0, HoursBeforeStart: 72, RefundPercentage: dec("100"), ProcessingFee: dec("0"), Description: "A"},
			{Position: 1, HoursBeforeStart: 48, RefundPercentage: dec("75"), ProcessingFee: dec("50"), Description: "B"},
			{Position: 2, HoursBeforeStart: 24, RefundPercentage: dec("50"), ProcessingFee: dec("100"), Description: "C"},
			{Position: 3, HoursBeforeStart: 0, RefundPercentage: dec("0"), ProcessingFee: dec("0"), Description: "D"},
		},
	}
}

func TestCalculateStandardScenarios(t *testing.T) {
	service := time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC)
	amount := dec("1848")

	cases := []struct {
		name         string
		hoursUntil   float64
		rule         string
		refundAmount string
		fee          string
		final        string
		fallback     bool
	}{
		{name: "well ahead", hoursUntil: 80, rule: "A", refundAmount: "1848", fee: "0", final: "1848"},
		{name: "second bracket", hoursUntil: 50, rule: "B", refundAmount: "1386", fee: "50", final: "1336"},
		{name: "last day", hoursUntil: 10, rule: "D", refundAmount: "0", fee: "0", final: "0"},
		{name: "after start", hoursUntil: -5, rule: "D", refundAmount: "0", fee: "0", final: "0", fallback: true},
		{name: "exact threshold", hoursUntil: 48, rule: "B", refundAmount: "1386", fee: "50", final: "1336"},
		{name: "just under threshold", hoursUntil: 47.99, rule: "C", refundAmount: "924", fee: "100", final: "824"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cancelAt := service.Add(-time.Duration(tc.hoursUntil * float64(time.Hour)))

			calc, err := Calculate(standardPolicy(), amount, service, cancelAt)
			require.NoError(t, err)

			assert.Equal(t, tc.rule, calc.RuleApplied.Description)
			assert.True(t, dec(tc.refundAmount).Equal(calc.RefundAmount), "refund amount %s", calc.RefundAmount)
			assert.True(t, dec(tc.fee).Equal(calc.ProcessingFee), "fee %s", calc.ProcessingFee)
			assert.True(t, dec(tc.final).Equal(calc.FinalRefundAmount), "final %s", calc.FinalRefundAmount)
			assert.Equal(t, tc.fallback, calc.FallbackApplied)
			assert.Equal(t, "standard", calc.PolicyName)
			assert.InDelta(t, tc.hoursUntil, calc.HoursUntilService, 1e-6)
		})
	}
}

func TestCalculateFallbackIsSmallestThresholdNotMostPunitive(t *testing.T) {
	policy := &CancellationPolicy{
		Name: "no zero rule",
		Rules: []CancellationRule{
			{HoursBeforeStart: 48, RefundPercentage: dec("50"), ProcessingFee: dec("0")},
			{HoursBeforeStart: 24, RefundPercentage: dec("80"), ProcessingFee: dec("10")},
		},
	}
	service := time.Date(2026, 11, 20, 9, 0, 0, 0, time.UTC)

	calc, err := Calculate(policy, dec("200"), service, service.Add(2*time.Hour))
	require.NoError(t, err)

	assert.True(t, calc.FallbackApplied)
	assert.Equal(t, 24, calc.RuleApplied.HoursBeforeStart)
	assert.True(t, dec("150").Equal(calc.FinalRefundAmount))
}

func TestCalculateFloorsAtZero(t *testing.T) {
	policy := &CancellationPolicy{
		Name:  "fee heavy",
		Rules: []CancellationRule{{HoursBeforeStart: 0, RefundPercentage: dec("10"), ProcessingFee: dec("100")}},
	}
	now := time.Now()

	calc, err := Calculate(policy, dec("50"), now.Add(100*time.Hour), now)
	require.NoError(t, err)

	assert.True(t, calc.FinalRefundAmount.IsZero())
	assert.True(t, dec("5").Equal(calc.RefundAmount))
}

func TestCalculateSelectsLargestQualifyingThreshold(t *testing.T) {
	policy := standardPolicy()
	service := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		hours := rng.Float64() * 200
		calc, err := Calculate(policy, dec("1848"), service, service.Add(-time.Duration(hours*float64(time.Hour))))
		require.NoError(t, err)

		want := -1
		for _, r := range policy.Rules {
			if float64(r.HoursBeforeStart) <= calc.HoursUntilService && r.HoursBeforeStart > want {
				want = r.HoursBeforeStart
			}
		}
		require.Equal(t, want, calc.RuleApplied.HoursBeforeStart, "hours=%f", hours)
		require.False(t, calc.FinalRefundAmount.IsNegative())

		expected := calc.TotalAmount.Mul(calc.RefundPercentage).Div(hundred).Round(2).Sub(calc.ProcessingFee)
		if expected.IsNegative() {
			expected = decimal.Zero
		}
		require.True(t, expected.Equal(calc.FinalRefundAmount))
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	service := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cancelAt := service.Add(-50 * time.Hour)

	first, err := Calculate(standardPolicy(), dec("1848"), service, cancelAt)
	require.NoError(t, err)
	second, err := Calculate(standardPolicy(), dec("1848"), service, cancelAt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculateValidation(t *testing.T) {
	now := time.Now()

	_, err := Calculate(standardPolicy(), decimal.Zero, now, now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = Calculate(standardPolicy(), dec("-1"), now, now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = Calculate(nil, dec("10"), now, now)
	assert.True(t, errors.Is(err, apperrors.ErrPolicyResolution))

	_, err = Calculate(&CancellationPolicy{Name: "empty"}, dec("10"), now, now)
	assert.True(t, errors.Is(err, apperrors.ErrPolicyResolution))
}
