package refunds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourhub/internal/gateway"
	"tourhub/internal/notifications"
	"tourhub/internal/shared/apperrors"
	"tourhub/internal/users"
	"tourhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	entityName      = "refund record"
	defaultCurrency = "USD"
)

// CreateRefundInput seeds the refund for an approved cancellation request.
type CreateRefundInput struct {
	CancellationRequestID uuid.UUID
	BookingID             uuid.UUID
	CustomerID            uuid.UUID
	Amount                decimal.Decimal
	Currency              string
	Method                Method
	InitiatedBy           uuid.UUID
	Notes                 string
}

// CompensationInput seeds an extra refund granted by a dispute resolution.
type CompensationInput struct {
	DisputeID             uuid.UUID
	CancellationRequestID uuid.UUID
	BookingID             uuid.UUID
	CustomerID            uuid.UUID
	Amount                decimal.Decimal
	Currency              string
	Method                Method
	InitiatedBy           uuid.UUID
}

// FailureInput is the error recorded on a failed refund.
type FailureInput struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// Service interface defines the refund lifecycle
type Service interface {
	// CreateForCancellation is idempotent per cancellation request.
	CreateForCancellation(ctx context.Context, in CreateRefundInput) (*RefundRecord, error)

	// CreateCompensating is idempotent per dispute.
	CreateCompensating(ctx context.Context, in CompensationInput) (*RefundRecord, error)

	Advance(ctx context.Context, actor users.Actor, id uuid.UUID, stage Stage, notes string) (*RefundRecord, error)
	Fail(ctx context.Context, actor users.Actor, id uuid.UUID, failure FailureInput) (*RefundRecord, error)
	Reject(ctx context.Context, actor users.Actor, id uuid.UUID, reason string) (*RefundRecord, error)
	Retry(ctx context.Context, actor users.Actor, id uuid.UUID) (*RefundRecord, error)
	AttachTransaction(ctx context.Context, actor users.Actor, id uuid.UUID, externalTransactionID string) (*RefundRecord, error)

	// HandleGatewayResult applies an asynchronous gateway outcome. Replays
	// of an already applied result return the record unchanged.
	HandleGatewayResult(ctx context.Context, result gateway.Result) (*RefundRecord, error)

	GetRefund(ctx context.Context, actor users.Actor, id uuid.UUID) (*RefundRecord, error)

	// GetRefundRecord is unscoped; callers check access themselves.
	GetRefundRecord(ctx context.Context, id uuid.UUID) (*RefundRecord, error)
	ListByCancellation(ctx context.Context, actor users.Actor, cancellationRequestID uuid.UUID) ([]RefundRecord, error)
}

type service struct {
	repo       Repository
	dispatcher gateway.Dispatcher
	notifier   notifications.Notifier
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, dispatcher gateway.Dispatcher, notifier notifications.Notifier, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateForCancellation(ctx context.Context, in CreateRefundInput) (*RefundRecord, error) {
	if in.Amount.IsNegative() {
		return nil, apperrors.Validation("refund amount must not be negative")
	}
	if in.Method == "" {
		in.Method = MethodOriginalPayment
	}
	if !in.Method.IsValid() {
		return nil, apperrors.Validation("unknown refund method %q", in.Method)
	}

	return s.create(ctx, &RefundRecord{
		CancellationRequestID: in.CancellationRequestID,
		BookingID:             in.BookingID,
		CustomerID:            in.CustomerID,
		Kind:                  KindOriginal,
		IdempotencyKey:        "cancellation:" + in.CancellationRequestID.String(),
		Amount:                in.Amount.Round(2),
		Currency:              in.Currency,
		Method:                in.Method,
		InitiatedBy:           in.InitiatedBy,
		Notes:                 in.Notes,
	})
}

func (s *service) CreateCompensating(ctx context.Context, in CompensationInput) (*RefundRecord, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.Validation("compensation amount must be greater than zero")
	}
	if !in.Method.IsValid() {
		return nil, apperrors.Validation("unknown refund method %q", in.Method)
	}

	disputeID := in.DisputeID
	return s.create(ctx, &RefundRecord{
		CancellationRequestID: in.CancellationRequestID,
		BookingID:             in.BookingID,
		CustomerID:            in.CustomerID,
		DisputeID:             &disputeID,
		Kind:                  KindCompensating,
		IdempotencyKey:        "dispute:" + in.DisputeID.String(),
		Amount:                in.Amount.Round(2),
		Currency:              in.Currency,
		Method:                in.Method,
		InitiatedBy:           in.InitiatedBy,
	})
}

func (s *service) Advance(ctx context.Context, actor users.Actor, id uuid.UUID, stage Stage, notes string) (*RefundRecord, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can advance refunds")
	}
	from, to, ok := stage.from()
	if !ok {
		return nil, apperrors.Validation("unknown refund stage %q", stage)
	}

	now := s.now()
	actorID := actor.ID
	record, err := s.transition(ctx, id, string(stage), &actorID, []Status{from}, func(r *RefundRecord) error {
		switch stage {
		case StageProcess:
			r.ProcessedAt, r.ProcessedBy = &now, &actorID
		case StageApprove:
			r.ApprovedAt, r.ApprovedBy = &now, &actorID
		case StageComplete:
			if r.ExternalTransactionID == "" {
				return apperrors.Validation("a refund cannot complete without an external transaction id")
			}
			r.CompletedAt, r.CompletedBy = &now, &actorID
		}
		r.Status = to
		if notes = strings.TrimSpace(notes); notes != "" {
			r.Notes = notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch stage {
	case StageApprove:
		return s.dispatch(ctx, record)
	case StageComplete:
		s.notifyCompleted(ctx, record)
	}
	return record, nil
}

func (s *service) Fail(ctx context.Context, actor users.Actor, id uuid.UUID, failure FailureInput) (*RefundRecord, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can fail refunds")
	}
	failure.Code = strings.TrimSpace(failure.Code)
	failure.Message = strings.TrimSpace(failure.Message)
	if failure.Code == "" || failure.Message == "" {
		return nil, apperrors.Validation("a failure needs an error code and message")
	}
	actorID := actor.ID
	return s.fail(ctx, id, &actorID, failure)
}

func (s *service) Reject(ctx context.Context, actor users.Actor, id uuid.UUID, reason string) (*RefundRecord, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can reject refunds")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}

	now := s.now()
	actorID := actor.ID
	return s.transition(ctx, id, "reject", &actorID, []Status{StatusPending, StatusProcessing}, func(r *RefundRecord) error {
		r.Status = StatusRejected
		r.RejectedAt, r.RejectedBy = &now, &actorID
		r.RejectionReason = reason
		return nil
	})
}

// Retry creates a RETRY record superseding a FAILED one. Repeated calls
// return the same retry record.
func (s *service) Retry(ctx context.Context, actor users.Actor, id uuid.UUID) (*RefundRecord, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can retry refunds")
	}
	failed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if failed.Status != StatusFailed {
		return nil, apperrors.InvalidTransition(entityName, "retry", string(failed.Status))
	}

	supersedes := failed.ID
	return s.create(ctx, &RefundRecord{
		CancellationRequestID: failed.CancellationRequestID,
		BookingID:             failed.BookingID,
		CustomerID:            failed.CustomerID,
		DisputeID:             failed.DisputeID,
		SupersedesID:          &supersedes,
		Kind:                  KindRetry,
		IdempotencyKey:        "retry:" + failed.ID.String(),
		Amount:                failed.Amount,
		Currency:              failed.Currency,
		Method:                failed.Method,
		InitiatedBy:           actor.ID,
	})
}

func (s *service) AttachTransaction(ctx context.Context, actor users.Actor, id uuid.UUID, externalTransactionID string) (*RefundRecord, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can attach transactions")
	}
	externalTransactionID = strings.TrimSpace(externalTransactionID)
	if externalTransactionID == "" {
		return nil, apperrors.Validation("external transaction id is required")
	}

	actorID := actor.ID
	return s.transition(ctx, id, "attach transaction to", &actorID, []Status{StatusApproved}, func(r *RefundRecord) error {
		return attach(r, externalTransactionID)
	})
}

func (s *service) HandleGatewayResult(ctx context.Context, result gateway.Result) (*RefundRecord, error) {
	record, err := s.repo.GetByID(ctx, result.RefundID)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		if result.Error == nil {
			return nil, apperrors.Validation("failed gateway result carries no error")
		}
		if record.Status == StatusFailed && record.ErrorCode == result.Error.Code {
			return record, nil
		}
		s.logger.LogGatewayResult(ctx, record.ID.String(), false, result.Error.Code+": "+result.Error.Message)
		return s.fail(ctx, record.ID, nil, FailureInput{
			Code:    result.Error.Code,
			Message: result.Error.Message,
			Details: result.Error.Details,
		})
	}

	if record.Status == StatusCompleted && record.ExternalTransactionID == result.ExternalTransactionID {
		return record, nil
	}
	s.logger.LogGatewayResult(ctx, record.ID.String(), true, result.ExternalTransactionID)

	now := s.now()
	completed, err := s.transition(ctx, record.ID, "complete", nil, []Status{StatusApproved}, func(r *RefundRecord) error {
		if err := attach(r, result.ExternalTransactionID); err != nil {
			return err
		}
		r.Status = StatusCompleted
		r.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyCompleted(ctx, completed)
	return completed, nil
}

func (s *service) GetRefund(ctx context.Context, actor users.Actor, id uuid.UUID) (*RefundRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && record.CustomerID != actor.ID {
		return nil, apperrors.Authorization("refund belongs to another customer")
	}
	return record, nil
}

func (s *service) GetRefundRecord(ctx context.Context, id uuid.UUID) (*RefundRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByCancellation(ctx context.Context, actor users.Actor, cancellationRequestID uuid.UUID) ([]RefundRecord, error) {
	list, err := s.repo.ListByCancellation(ctx, cancellationRequestID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		for _, r := range list {
			if r.CustomerID != actor.ID {
				return nil, apperrors.Authorization("refunds belong to another customer")
			}
		}
	}
	return list, nil
}

// create returns the existing record when one already carries the
// idempotency key.
func (s *service) create(ctx context.Context, record *RefundRecord) (*RefundRecord, error) {
	existing, err := s.repo.GetByIdempotencyKey(ctx, record.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	record.ID = uuid.New()
	record.Reference = newReference()
	record.Status = StatusPending
	record.InitiatedAt = s.now()
	record.Version = 1
	if record.Currency == "" {
		record.Currency = defaultCurrency
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.LogRefundTransition(ctx, record.ID.String(), "", string(StatusPending), record.InitiatedBy.String())
	return record, nil
}

// transition loads the record, checks its status against allowed, applies
// mutate and saves with a version check. A lost race is reported as an
// invalid transition when the winner moved the record out of allowed, and
// as a concurrency conflict otherwise.
func (s *service) transition(ctx context.Context, id uuid.UUID, action string, actorID *uuid.UUID, allowed []Status, mutate func(r *RefundRecord) error) (*RefundRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from, fromVersion := record.Status, record.Version
	if !from.in(allowed...) {
		return nil, apperrors.InvalidTransition(entityName, action, string(from))
	}

	if err := mutate(record); err != nil {
		return nil, err
	}
	record.Version = fromVersion + 1

	saved, err := s.repo.SaveIfCurrent(ctx, record, from, fromVersion)
	if err != nil {
		return nil, err
	}
	if !saved {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.Status.in(allowed...) {
			return nil, apperrors.InvalidTransition(entityName, action, string(current.Status))
		}
		return nil, apperrors.ConcurrencyConflict("refund record was modified concurrently").
			WithDetail("current_version", current.Version)
	}

	actor := "system"
	if actorID != nil {
		actor = actorID.String()
	}
	s.logger.LogRefundTransition(ctx, record.ID.String(), string(from), string(record.Status), actor)
	return record, nil
}

func (s *service) fail(ctx context.Context, id uuid.UUID, actorID *uuid.UUID, failure FailureInput) (*RefundRecord, error) {
	now := s.now()
	record, err := s.transition(ctx, id, "fail", actorID, []Status{StatusPending, StatusProcessing, StatusApproved}, func(r *RefundRecord) error {
		r.Status = StatusFailed
		r.FailedAt, r.FailedBy = &now, actorID
		r.ErrorCode = failure.Code
		r.ErrorMessage = failure.Message
		r.ErrorDetails = datatypes.JSONMap(failure.Details)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, record, notifications.TemplateRefundFailed)
	return record, nil
}

// dispatch hands an approved record to the gateway. A refused hand-off is
// recorded on the record, which comes back FAILED without an error.
func (s *service) dispatch(ctx context.Context, record *RefundRecord) (*RefundRecord, error) {
	err := s.dispatcher.Dispatch(ctx, gateway.TransferRequest{
		RefundID:              record.ID,
		Reference:             record.Reference,
		CancellationRequestID: record.CancellationRequestID,
		CustomerID:            record.CustomerID,
		Amount:                record.Amount,
		Currency:              record.Currency,
		Method:                string(record.Method),
		RequestedAt:           s.now(),
	})
	if err == nil {
		return record, nil
	}

	gwErr, ok := apperrors.As(err)
	if !ok || gwErr.Kind != apperrors.KindGateway {
		gwErr = apperrors.Gateway("DISPATCH_FAILED", err.Error(), nil)
	}
	s.logger.LogGatewayResult(ctx, record.ID.String(), false, gwErr.Error())
	return s.fail(ctx, record.ID, nil, FailureInput{
		Code:    gwErr.Code,
		Message: gwErr.Message,
		Details: gwErr.Details,
	})
}

func (s *service) notifyCompleted(ctx context.Context, record *RefundRecord) {
	s.notify(ctx, record, notifications.TemplateRefundCompleted)
}

func (s *service) notify(ctx context.Context, record *RefundRecord, template notifications.TemplateID) {
	if s.notifier == nil {
		return
	}
	n := notifications.NewNotificationBuilder().
		WithTemplate(template).
		WithRecipient(record.CustomerID).
		WithRefundContext(record.ID).
		WithCancellationContext(record.CancellationRequestID).
		WithBookingContext(record.BookingID).
		WithData("reference", record.Reference).
		WithData("amount", record.Amount.StringFixed(2)).
		WithData("currency", record.Currency).
		WithData("method", string(record.Method)).
		WithData("kind", string(record.Kind))
	if record.ExternalTransactionID != "" {
		n.WithData("external_transaction_id", record.ExternalTransactionID)
	}
	if record.HasError() {
		n.WithData("error_code", record.ErrorCode)
	}
	s.notifier.Notify(ctx, n.Build())
}

func attach(r *RefundRecord, externalTransactionID string) error {
	if r.ExternalTransactionID != "" && r.ExternalTransactionID != externalTransactionID {
		return apperrors.Validation("refund already carries external transaction %s", r.ExternalTransactionID)
	}
	r.ExternalTransactionID = externalTransactionID
	return nil
}

func newReference() string {
	return fmt.Sprintf("RF-%s", ulid.Make().String())
}
