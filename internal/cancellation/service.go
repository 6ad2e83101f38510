package cancellation

import (
	"context"
	"errors"
	"strings"
	"time"

	"tourhub/internal/bookings"
	"tourhub/internal/notifications"
	"tourhub/internal/policies"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/constants"
	"tourhub/internal/shared/database"
	"tourhub/internal/users"
	"tourhub/pkg/lock"
	"tourhub/pkg/logger"

	"github.com/google/uuid"
)

const entityName = "cancellation request"

// BookingReader is the slice of the booking collaborator this package needs.
type BookingReader interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error)
}

// PolicyResolver finds the policy that governs a booking.
type PolicyResolver interface {
	ResolveForBooking(ctx context.Context, tenantID string, policyID *uuid.UUID) (*policies.CancellationPolicy, error)
}

// RefundCreator seeds the refund record of an approved request.
type RefundCreator interface {
	CreateForCancellation(ctx context.Context, in refunds.CreateRefundInput) (*refunds.RefundRecord, error)
}

// CreateInput is a customer's cancellation request for a booking.
type CreateInput struct {
	Reason       Reason
	Description  string
	CustomReason string
}

// ApproveInput carries the admin's notes and an optional refund method.
type ApproveInput struct {
	Notes        string
	RefundMethod refunds.Method
}

// Approval is the approved request and the refund record it produced.
type Approval struct {
	Request *CancellationRequest `json:"cancellation_request"`
	Refund  *refunds.RefundRecord `json:"refund"`
}

// Service interface defines the cancellation request lifecycle
type Service interface {
	Create(ctx context.Context, actor users.Actor, bookingID uuid.UUID, in CreateInput) (*CancellationRequest, error)

	// Quote prices a cancellation made now without persisting anything.
	Quote(ctx context.Context, actor users.Actor, bookingID uuid.UUID) (*policies.RefundCalculation, error)

	Approve(ctx context.Context, actor users.Actor, id uuid.UUID, in ApproveInput) (*Approval, error)
	Reject(ctx context.Context, actor users.Actor, id uuid.UUID, notes string) (*CancellationRequest, error)

	// GetCancellationRequest is unscoped; callers check access themselves.
	GetCancellationRequest(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	GetForActor(ctx context.Context, actor users.Actor, id uuid.UUID) (*CancellationRequest, error)
	ListMine(ctx context.Context, actor users.Actor) ([]CancellationRequest, error)
	ListPending(ctx context.Context, actor users.Actor) ([]CancellationRequest, error)
}

type service struct {
	repo       Repository
	bookings   BookingReader
	policies   PolicyResolver
	refunds    RefundCreator
	transactor database.Transactor
	locker     lock.Locker
	lockTTL    time.Duration
	notifier   notifications.Notifier
	logger     *logger.Logger
	now        func() time.Time
}

// Dependencies groups the collaborators of the cancellation service
type Dependencies struct {
	Repository Repository
	Bookings   BookingReader
	Policies   PolicyResolver
	Refunds    RefundCreator
	Transactor database.Transactor
	Locker     lock.Locker
	LockTTL    time.Duration
	Notifier   notifications.Notifier
	Logger     *logger.Logger
}

// NewService creates a new cancellation service instance
func NewService(deps Dependencies) Service {
	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = constants.TTL_BOOKING_CANCELLATION_LOCK
	}
	return &service{
		repo:       deps.Repository,
		bookings:   deps.Bookings,
		policies:   deps.Policies,
		refunds:    deps.Refunds,
		transactor: deps.Transactor,
		locker:     deps.Locker,
		lockTTL:    ttl,
		notifier:   deps.Notifier,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, actor users.Actor, bookingID uuid.UUID, in CreateInput) (*CancellationRequest, error) {
	in.CustomReason = strings.TrimSpace(in.CustomReason)
	if !in.Reason.IsValid() {
		return nil, apperrors.Validation("unknown cancellation reason %q", in.Reason)
	}
	if in.Reason == ReasonOther && in.CustomReason == "" {
		return nil, apperrors.Validation("a custom reason is required when the reason is OTHER")
	}

	booking, err := s.cancellableBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	release, err := s.lockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer release()

	open, err := s.repo.FindOpenByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if open.Status == StatusApproved {
			return nil, apperrors.InvalidTransition("booking", "cancel", "CANCELLATION_APPROVED")
		}
		return nil, apperrors.ConcurrencyConflict("an active cancellation request already exists for booking %s", bookingID).
			WithDetail("cancellation_request_id", open.ID.String())
	}

	now := s.now()
	calc, err := s.quote(ctx, booking, now)
	if err != nil {
		return nil, err
	}

	request := &CancellationRequest{
		ID:           uuid.New(),
		BookingID:    booking.ID,
		BookingRef:   booking.BookingRef,
		TenantID:     booking.TenantID,
		CustomerID:   booking.CustomerID,
		GuideID:      booking.GuideID,
		Reason:       in.Reason,
		Description:  strings.TrimSpace(in.Description),
		CustomReason: in.CustomReason,
		Status:       StatusPending,
		RequestedAt:  now,
		RequestedBy:  actor.ID,
		Calculation:  calc,
		Version:      1,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.LogCancellationRequested(ctx, request.ID.String(), booking.ID.String(),
		calc.PolicyID.String(), calc.FinalRefundAmount.StringFixed(2), calc.FallbackApplied)
	return request, nil
}

func (s *service) Quote(ctx context.Context, actor users.Actor, bookingID uuid.UUID) (*policies.RefundCalculation, error) {
	booking, err := s.cancellableBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	calc, err := s.quote(ctx, booking, s.now())
	if err != nil {
		return nil, err
	}
	return &calc, nil
}

// Approve moves the request to APPROVED and creates its refund record in
// the same transaction.
func (s *service) Approve(ctx context.Context, actor users.Actor, id uuid.UUID, in ApproveInput) (*Approval, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can approve cancellation requests")
	}
	if in.RefundMethod != "" && !in.RefundMethod.IsValid() {
		return nil, apperrors.Validation("unknown refund method %q", in.RefundMethod)
	}

	var result Approval
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		request, err := s.decide(txCtx, actor, id, StatusApproved, "approve", in.Notes)
		if err != nil {
			return err
		}
		refund, err := s.refunds.CreateForCancellation(txCtx, refunds.CreateRefundInput{
			CancellationRequestID: request.ID,
			BookingID:             request.BookingID,
			CustomerID:            request.CustomerID,
			Amount:                request.Calculation.FinalRefundAmount,
			Method:                in.RefundMethod,
			InitiatedBy:           actor.ID,
			Notes:                 request.AdminNotes,
		})
		if err != nil {
			return err
		}
		result = Approval{Request: request, Refund: refund}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogCancellationDecided(ctx, id.String(), string(StatusApproved), actor.ID.String())
	s.notify(ctx, result.Request, notifications.TemplateCancellationApproved, result.Refund)
	return &result, nil
}

func (s *service) Reject(ctx context.Context, actor users.Actor, id uuid.UUID, notes string) (*CancellationRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can reject cancellation requests")
	}
	request, err := s.decide(ctx, actor, id, StatusRejected, "reject", notes)
	if err != nil {
		return nil, err
	}

	s.logger.LogCancellationDecided(ctx, id.String(), string(StatusRejected), actor.ID.String())
	s.notify(ctx, request, notifications.TemplateCancellationRejected, nil)
	return request, nil
}

func (s *service) GetCancellationRequest(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetForActor(ctx context.Context, actor users.Actor, id uuid.UUID) (*CancellationRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !request.IsParticipant(actor.ID) {
		return nil, apperrors.Authorization("cancellation request belongs to another booking")
	}
	return request, nil
}

func (s *service) ListMine(ctx context.Context, actor users.Actor) ([]CancellationRequest, error) {
	return s.repo.ListByCustomer(ctx, actor.ID)
}

func (s *service) ListPending(ctx context.Context, actor users.Actor) ([]CancellationRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can review cancellation requests")
	}
	return s.repo.ListByStatus(ctx, StatusPending)
}

// cancellableBooking loads a booking the actor may cancel: its customer or
// an admin, and only while it is still confirmed.
func (s *service) cancellableBooking(ctx context.Context, actor users.Actor, bookingID uuid.UUID) (*bookings.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && booking.CustomerID != actor.ID {
		return nil, apperrors.Authorization("only the booking's customer or an admin can cancel it")
	}
	if !booking.Status.CanBeCancelled() {
		return nil, apperrors.InvalidTransition("booking", "cancel", booking.Status.String())
	}
	return booking, nil
}

func (s *service) quote(ctx context.Context, booking *bookings.Booking, at time.Time) (policies.RefundCalculation, error) {
	policy, err := s.policies.ResolveForBooking(ctx, booking.TenantID, booking.PolicyID)
	if err != nil {
		return policies.RefundCalculation{}, err
	}
	return policies.Calculate(policy, booking.TotalAmount, booking.ServiceDateTime, at)
}

// lockBooking serializes request creation per booking. Redis being
// unavailable degrades to the partial unique index alone.
func (s *service) lockBooking(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	release, err := s.locker.Acquire(ctx, constants.BuildBookingCancellationLockKey(bookingID.String()), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperrors.ConcurrencyConflict("another cancellation request for booking %s is being created", bookingID)
		}
		s.logger.Warn("booking lock unavailable", "booking_id", bookingID.String(), "error", err)
		return noop, nil
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release booking lock", "booking_id", bookingID.String(), "error", err)
		}
	}, nil
}

// decide applies an admin decision from PENDING with a version check.
func (s *service) decide(ctx context.Context, actor users.Actor, id uuid.UUID, to Status, action, notes string) (*CancellationRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != StatusPending {
		return nil, apperrors.InvalidTransition(entityName, action, string(request.Status))
	}

	fromVersion := request.Version
	now := s.now()
	actorID := actor.ID
	request.Status = to
	request.ProcessedAt = &now
	request.ProcessedBy = &actorID
	request.AdminNotes = strings.TrimSpace(notes)
	request.Version = fromVersion + 1

	saved, err := s.repo.SaveIfCurrent(ctx, request, StatusPending, fromVersion)
	if err != nil {
		return nil, err
	}
	if !saved {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != StatusPending {
			return nil, apperrors.InvalidTransition(entityName, action, string(current.Status))
		}
		return nil, apperrors.ConcurrencyConflict("cancellation request was modified concurrently").
			WithDetail("current_version", current.Version)
	}
	return request, nil
}

func (s *service) notify(ctx context.Context, request *CancellationRequest, template notifications.TemplateID, refund *refunds.RefundRecord) {
	if s.notifier == nil {
		return
	}
	n := notifications.NewNotificationBuilder().
		WithTemplate(template).
		WithRecipient(request.CustomerID).
		WithCancellationContext(request.ID).
		WithBookingContext(request.BookingID).
		WithData("booking_ref", request.BookingRef).
		WithData("reason", string(request.Reason)).
		WithData("final_refund_amount", request.Calculation.FinalRefundAmount.StringFixed(2)).
		WithData("refund_percentage", request.Calculation.RefundPercentage.String())
	if request.AdminNotes != "" {
		n.WithData("admin_notes", request.AdminNotes)
	}
	if refund != nil {
		n.WithRefundContext(refund.ID).WithData("refund_reference", refund.Reference)
	}
	s.notifier.Notify(ctx, n.Build())
}
