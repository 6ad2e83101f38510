package disputes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tourhub/internal/cancellation"
	"tourhub/internal/notifications"
	"tourhub/internal/policies"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/apperrors"
	"tourhub/internal/users"
	"tourhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = users.Actor{ID: uuid.New(), Role: users.RoleAdmin}
	customer = users.Actor{ID: uuid.New(), Role: users.RoleCustomer}
	guide    = users.Actor{ID: uuid.New(), Role: users.RoleGuide}
	stranger = users.Actor{ID: uuid.New(), Role: users.RoleCustomer}
)

type fixture struct {
	svc           *service
	repo          *memoryRepository
	cancellations cancellationStore
	ledger        *memoryLedger
	notifier      *recordingNotifier

	request  cancellation.CancellationRequest
	original refunds.RefundRecord
}

// newFixture holds an approved 1848.00 cancellation whose original refund
// of 1336.00 is already recorded.
func newFixture() *fixture {
	f := &fixture{
		repo:          newMemoryRepository(),
		cancellations: cancellationStore{},
		ledger:        newMemoryLedger(),
		notifier:      &recordingNotifier{},
	}
	f.request = cancellation.CancellationRequest{
		ID:         uuid.New(),
		BookingID:  uuid.New(),
		CustomerID: customer.ID,
		GuideID:    guide.ID,
		Reason:     cancellation.ReasonQualityIssue,
		Status:     cancellation.StatusApproved,
		Calculation: policies.RefundCalculation{
			TotalAmount:       decimal.NewFromInt(1848),
			FinalRefundAmount: decimal.NewFromInt(1336),
		},
	}
	f.cancellations[f.request.ID] = f.request
	f.original = refunds.RefundRecord{
		ID:                    uuid.New(),
		CancellationRequestID: f.request.ID,
		CustomerID:            customer.ID,
		Kind:                  refunds.KindOriginal,
		Amount:                decimal.NewFromInt(1336),
		Status:                refunds.StatusCompleted,
	}
	f.ledger.records[f.original.ID] = f.original

	quiet := logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.repo, f.cancellations, f.ledger, inlineTransactor{}, f.notifier, quiet).(*service)
	f.svc.now = func() time.Time { return time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) open(t *testing.T) *DisputeCase {
	t.Helper()
	refundID := f.original.ID
	d, err := f.svc.Open(context.Background(), customer, OpenInput{
		CancellationRequestID: f.request.ID,
		RefundRecordID:        &refundID,
		Type:                  TypeRefundAmount,
		Description:           "the tour was cut short by half",
	})
	require.NoError(t, err)
	return d
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestResolveCreatesCompensatingRefund(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.open(t)

	resolved, err := f.svc.Resolve(ctx, admin, d.ID, ResolveInput{
		Type:        ResolutionPartialRefund,
		Amount:      amount("500"),
		Description: "half day lost to weather",
		AgreedBy:    []string{customer.ID.String(), admin.ID.String()},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, resolved.Resolution.Amount.Valid)
	assert.Equal(t, "500", resolved.Resolution.Amount.Decimal.String())
	assert.Len(t, resolved.Resolution.AgreedBy, 2)

	require.Len(t, f.ledger.compensation, 1)
	comp := f.ledger.compensation[0]
	assert.Equal(t, d.ID, comp.DisputeID)
	assert.Equal(t, f.request.ID, comp.CancellationRequestID)
	assert.Equal(t, refunds.MethodOriginalPayment, comp.Method)
	assert.Equal(t, *resolved.Resolution.CompensatingRefundID, f.findCompensation(t, d.ID).ID)

	original, err := f.ledger.GetRefundRecord(ctx, f.original.ID)
	require.NoError(t, err)
	assert.Equal(t, f.original, *original, "history is never rewritten")
}

func (f *fixture) findCompensation(t *testing.T, disputeID uuid.UUID) refunds.RefundRecord {
	t.Helper()
	for _, r := range f.ledger.records {
		if r.DisputeID != nil && *r.DisputeID == disputeID {
			return r
		}
	}
	t.Fatalf("no compensating refund for dispute %s", disputeID)
	return refunds.RefundRecord{}
}

func TestResolveIsEffectiveOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.open(t)

	_, err := f.svc.Resolve(ctx, admin, d.ID, ResolveInput{Type: ResolutionCredit, Amount: amount("200"), Description: "voucher"})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, admin, d.ID, ResolveInput{Type: ResolutionFullRefund, Amount: amount("1848"), Description: "changed"})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyResolved))

	stored, err := f.repo.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ResolutionCredit, stored.Resolution.Type)
	assert.Equal(t, "200", stored.Resolution.Amount.Decimal.String())
	require.Len(t, f.ledger.compensation, 1)
	assert.Equal(t, refunds.MethodCredit, f.ledger.compensation[0].Method)
}

func TestResolveValidation(t *testing.T) {
	cases := map[string]ResolveInput{
		"full refund without amount": {Type: ResolutionFullRefund, Description: "x"},
		"no refund with amount":      {Type: ResolutionNoRefund, Amount: amount("10"), Description: "x"},
		"zero amount":                {Type: ResolutionPartialRefund, Amount: amount("0"), Description: "x"},
		"negative amount":            {Type: ResolutionCredit, Amount: amount("-5"), Description: "x"},
		"unknown type":               {Type: "SPLIT", Description: "x"},
		"blank description":          {Type: ResolutionNoRefund, Description: "  "},
		"more than the booking":      {Type: ResolutionFullRefund, Amount: amount("1848.01"), Description: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			d := f.open(t)

			_, err := f.svc.Resolve(context.Background(), admin, d.ID, in)

			assert.True(t, errors.Is(err, apperrors.ErrValidation), "%v", err)
			stored, _ := f.repo.GetByID(context.Background(), d.ID)
			assert.Equal(t, StatusOpen, stored.Status)
			assert.Empty(t, f.ledger.compensation)
		})
	}
}

func TestResolveWithoutAmountCreatesNoRefund(t *testing.T) {
	f := newFixture()
	d := f.open(t)

	resolved, err := f.svc.Resolve(context.Background(), admin, d.ID, ResolveInput{Type: ResolutionNoRefund, Description: "policy applied correctly"})
	require.NoError(t, err)

	assert.False(t, resolved.Resolution.Amount.Valid)
	assert.Nil(t, resolved.Resolution.CompensatingRefundID)
	assert.Empty(t, f.ledger.compensation)
}

func TestResolveFailsWhenCompensationFails(t *testing.T) {
	f := newFixture()
	f.ledger.err = errors.New("refund store unavailable")
	d := f.open(t)

	_, err := f.svc.Resolve(context.Background(), admin, d.ID, ResolveInput{Type: ResolutionPartialRefund, Amount: amount("50"), Description: "x"})
	require.Error(t, err)

	stored, err := f.repo.GetByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, stored.Status)
	assert.False(t, stored.IsResolved())
}

func TestDisputeStateMachine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.open(t)

	_, err := f.svc.Escalate(ctx, admin, d.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition), "escalation needs an investigation first")

	investigating, err := f.svc.Investigate(ctx, admin, d.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, *investigating.AssignedTo)

	escalated, err := f.svc.Escalate(ctx, admin, d.ID, "guide disputes the timeline")
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, escalated.Status)
	assert.Equal(t, PriorityHigh, escalated.Priority)
	assert.Equal(t, 3, escalated.Version)

	closed, err := f.svc.Close(ctx, admin, d.ID, "withdrawn by customer")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)

	_, err = f.svc.Resolve(ctx, admin, d.ID, ResolveInput{Type: ResolutionNoRefund, Description: "late"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	_, err = f.svc.Investigate(ctx, admin, d.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	_, err = f.svc.Close(ctx, admin, d.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
}

func TestResolvedDisputeIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.open(t)
	_, err := f.svc.Resolve(ctx, admin, d.ID, ResolveInput{Type: ResolutionRebook, Description: "moved to next week"})
	require.NoError(t, err)

	_, err = f.svc.Close(ctx, admin, d.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	_, err = f.svc.AddEvidence(ctx, customer, d.ID, EvidenceInput{Title: "late photo", Content: "https://example.test/p.jpg"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
	_, err = f.svc.AddCommunication(ctx, admin, d.ID, "one more thing", false)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
}

func TestAdminOnlyTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.open(t)

	_, err := f.svc.Investigate(ctx, customer, d.ID)
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization))
	_, err = f.svc.Resolve(ctx, guide, d.ID, ResolveInput{Type: ResolutionNoRefund, Description: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization))
	_, err = f.svc.Close(ctx, customer, d.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization))
}

func TestOpenDispute(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.svc.Open(ctx, guide, OpenInput{
		CancellationRequestID: f.request.ID,
		Type:                  TypeCancellationRejected,
		Description:           "the customer never showed up",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, d.Status)
	assert.Equal(t, PriorityMedium, d.Priority)
	assert.Equal(t, users.RoleGuide, d.OpenedByRole)
	assert.True(t, strings.HasPrefix(d.Reference, "DSP-"))

	require.Len(t, f.notifier.sent, 2)
	recipients := []uuid.UUID{f.notifier.sent[0].RecipientID, f.notifier.sent[1].RecipientID}
	assert.ElementsMatch(t, []uuid.UUID{customer.ID, guide.ID}, recipients)
	assert.Equal(t, notifications.TemplateDisputeOpened, f.notifier.sent[0].TemplateID)

	_, err = f.svc.Open(ctx, stranger, OpenInput{CancellationRequestID: f.request.ID, Type: TypeOther, Description: "not mine"})
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization))

	foreign := refunds.RefundRecord{ID: uuid.New(), CancellationRequestID: uuid.New()}
	f.ledger.records[foreign.ID] = foreign
	_, err = f.svc.Open(ctx, customer, OpenInput{
		CancellationRequestID: f.request.ID, RefundRecordID: &foreign.ID, Type: TypeBillingError, Description: "wrong refund",
	})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.Open(ctx, customer, OpenInput{CancellationRequestID: f.request.ID, Type: "ANGRY", Description: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestEvidenceAndCommunicationsAreAppendOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := f.open(t)

	first, err := f.svc.AddEvidence(ctx, customer, d.ID, EvidenceInput{Type: EvidencePhoto, Title: "itinerary", Content: "https://example.test/1.jpg"})
	require.NoError(t, err)
	second, err := f.svc.AddEvidence(ctx, guide, d.ID, EvidenceInput{Title: "log", Content: "arrived 09:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, EvidenceText, second.Type)

	_, err = f.svc.AddEvidence(ctx, customer, d.ID, EvidenceInput{Title: " ", Content: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	_, err = f.svc.AddEvidence(ctx, stranger, d.ID, EvidenceInput{Title: "t", Content: "c"})
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization))

	_, err = f.svc.AddCommunication(ctx, customer, d.ID, "secret", true)
	assert.True(t, errors.Is(err, apperrors.ErrAuthorization), "only admins write internal notes")

	_, err = f.svc.AddCommunication(ctx, customer, d.ID, "any update?", false)
	require.NoError(t, err)
	note, err := f.svc.AddCommunication(ctx, admin, d.ID, "guide has a history of late starts", true)
	require.NoError(t, err)
	assert.Equal(t, 2, note.Sequence)
	assert.Equal(t, users.RoleAdmin, note.FromUserRole)

	full, err := f.svc.Get(ctx, customer, d.ID)
	require.NoError(t, err)
	assert.Len(t, full.Evidence, 2)
	assert.Len(t, full.Communications, 2)

	asCustomer := NewDisputeResponse(full, customer)
	require.Len(t, asCustomer.Communications, 1)
	assert.False(t, asCustomer.Communications[0].IsInternal)
	assert.Nil(t, asCustomer.Resolution)

	asAdmin := NewDisputeResponse(full, admin)
	assert.Len(t, asAdmin.Communications, 2)
}

func TestListScopesToParticipants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.open(t)

	mine, err := f.svc.List(ctx, guide, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := f.svc.List(ctx, stranger, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	open, err := f.svc.List(ctx, admin, StatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = f.svc.List(ctx, admin, "PAUSED")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestLostTransitionRace(t *testing.T) {
	f := newFixture()
	d := f.open(t)
	f.repo.beforeSave = func(m *memoryRepository) {
		m.mutate(d.ID, func(d *DisputeCase) { d.Status = StatusClosed; d.Version++ })
	}

	_, err := f.svc.Investigate(context.Background(), admin, d.ID)

	assert.True(t, errors.Is(err, apperrors.ErrInvalidStateTransition))
}
