package disputes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourhub/internal/cancellation"
	"tourhub/internal/notifications"
	"tourhub/internal/refunds"
	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/database"
	"tourhub/internal/users"
	"tourhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CancellationReader looks up the request a dispute is about.
type CancellationReader interface {
	GetCancellationRequest(ctx context.Context, id uuid.UUID) (*cancellation.CancellationRequest, error)
}

// RefundLedger is the part of the refund lifecycle disputes rely on.
type RefundLedger interface {
	GetRefundRecord(ctx context.Context, id uuid.UUID) (*refunds.RefundRecord, error)
	CreateCompensating(ctx context.Context, in refunds.CompensationInput) (*refunds.RefundRecord, error)
}

type OpenInput struct {
	CancellationRequestID uuid.UUID
	RefundRecordID        *uuid.UUID
	Type                  Type
	Priority              Priority
	Description           string
}

type EvidenceInput struct {
	Type    EvidenceType
	Title   string
	Content string
}

type ResolveInput struct {
	Type        ResolutionType
	Amount      *decimal.Decimal
	Description string
	AgreedBy    []string
}

// Service interface defines the dispute workflow
type Service interface {
	Open(ctx context.Context, actor users.Actor, in OpenInput) (*DisputeCase, error)
	Investigate(ctx context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error)
	Escalate(ctx context.Context, actor users.Actor, id uuid.UUID, note string) (*DisputeCase, error)
	Close(ctx context.Context, actor users.Actor, id uuid.UUID, reason string) (*DisputeCase, error)

	// Resolve records the outcome exactly once. When the outcome pays an
	// amount, the compensating refund is created before the dispute is
	// marked RESOLVED.
	Resolve(ctx context.Context, actor users.Actor, id uuid.UUID, in ResolveInput) (*DisputeCase, error)

	AddEvidence(ctx context.Context, actor users.Actor, id uuid.UUID, in EvidenceInput) (*Evidence, error)
	AddCommunication(ctx context.Context, actor users.Actor, id uuid.UUID, message string, isInternal bool) (*Communication, error)

	Get(ctx context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error)
	List(ctx context.Context, actor users.Actor, status Status) ([]DisputeCase, error)
}

type service struct {
	repo          Repository
	cancellations CancellationReader
	refunds       RefundLedger
	transactor    database.Transactor
	notifier      notifications.Notifier
	logger        *logger.Logger
	now           func() time.Time
}

func NewService(repo Repository, cancellations CancellationReader, ledger RefundLedger, transactor database.Transactor, notifier notifications.Notifier, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:          repo,
		cancellations: cancellations,
		refunds:       ledger,
		transactor:    transactor,
		notifier:      notifier,
		logger:        log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Open(ctx context.Context, actor users.Actor, in OpenInput) (*DisputeCase, error) {
	in.Description = strings.TrimSpace(in.Description)
	if !in.Type.IsValid() {
		return nil, apperrors.Validation("unknown dispute type %q", in.Type)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.IsValid() {
		return nil, apperrors.Validation("unknown dispute priority %q", in.Priority)
	}
	if in.Description == "" {
		return nil, apperrors.Validation("a dispute needs a description")
	}

	request, err := s.cancellations.GetCancellationRequest(ctx, in.CancellationRequestID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !request.IsParticipant(actor.ID) {
		return nil, apperrors.Authorization("only the booking's customer, its guide or an admin can open a dispute")
	}
	if in.RefundRecordID != nil {
		refund, err := s.refunds.GetRefundRecord(ctx, *in.RefundRecordID)
		if err != nil {
			return nil, err
		}
		if refund.CancellationRequestID != request.ID {
			return nil, apperrors.Validation("refund %s does not belong to cancellation request %s", refund.ID, request.ID)
		}
	}

	dispute := &DisputeCase{
		ID:                    uuid.New(),
		Reference:             fmt.Sprintf("DSP-%s", ulid.Make().String()),
		CancellationRequestID: request.ID,
		RefundRecordID:        in.RefundRecordID,
		BookingID:             request.BookingID,
		CustomerID:            request.CustomerID,
		GuideID:               request.GuideID,
		OpenedBy:              actor.ID,
		OpenedByRole:          actor.Role,
		Type:                  in.Type,
		Status:                StatusOpen,
		Priority:              in.Priority,
		Description:           in.Description,
		Version:               1,
	}
	if err := s.repo.Create(ctx, dispute); err != nil {
		return nil, err
	}

	s.logger.LogDisputeTransition(ctx, dispute.ID.String(), "", string(StatusOpen), actor.ID.String())
	s.notify(ctx, dispute, notifications.TemplateDisputeOpened)
	return dispute, nil
}

func (s *service) Investigate(ctx context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can investigate disputes")
	}
	now := s.now()
	actorID := actor.ID
	return s.transition(ctx, actor, id, "investigate", []Status{StatusOpen}, func(d *DisputeCase) {
		d.Status = StatusInvestigating
		d.InvestigatedAt = &now
		d.AssignedTo = &actorID
	})
}

// Escalate raises the priority to at least HIGH.
func (s *service) Escalate(ctx context.Context, actor users.Actor, id uuid.UUID, note string) (*DisputeCase, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can escalate disputes")
	}
	now := s.now()
	return s.transition(ctx, actor, id, "escalate", []Status{StatusInvestigating}, func(d *DisputeCase) {
		d.Status = StatusEscalated
		d.EscalatedAt = &now
		d.EscalationNote = strings.TrimSpace(note)
		d.Priority = d.Priority.atLeastHigh()
	})
}

func (s *service) Close(ctx context.Context, actor users.Actor, id uuid.UUID, reason string) (*DisputeCase, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can close disputes")
	}
	now := s.now()
	actorID := actor.ID
	return s.transition(ctx, actor, id, "close", activeStatuses, func(d *DisputeCase) {
		d.Status = StatusClosed
		d.ClosedAt = &now
		d.ClosedBy = &actorID
		d.CloseReason = strings.TrimSpace(reason)
	})
}

func (s *service) Resolve(ctx context.Context, actor users.Actor, id uuid.UUID, in ResolveInput) (*DisputeCase, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can resolve disputes")
	}
	if err := validateResolution(&in); err != nil {
		return nil, err
	}

	var resolved *DisputeCase
	var from Status
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		dispute, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		from = dispute.Status
		if dispute.IsResolved() || from == StatusResolved {
			return apperrors.AlreadyResolved("dispute %s is already resolved", dispute.Reference).
				WithDetail("resolution_type", string(dispute.Resolution.Type))
		}
		if !from.in(activeStatuses...) {
			return apperrors.InvalidTransition(entityName, "resolve", string(from))
		}

		actorID := actor.ID
		resolution := Resolution{
			Type:        in.Type,
			Description: in.Description,
			AgreedBy:    datatypes.JSONSlice[string](in.AgreedBy),
			ResolvedBy:  &actorID,
		}
		if in.Amount != nil {
			refund, err := s.compensate(txCtx, actor, dispute, in)
			if err != nil {
				return err
			}
			resolution.Amount = decimal.NewNullDecimal(refund.Amount)
			resolution.CompensatingRefundID = &refund.ID
		}

		now := s.now()
		fromVersion := dispute.Version
		dispute.Status = StatusResolved
		dispute.Resolution = resolution
		dispute.ResolvedAt = &now
		dispute.Version = fromVersion + 1

		saved, err := s.repo.SaveIfCurrent(txCtx, dispute, from, fromVersion)
		if err != nil {
			return err
		}
		if !saved {
			return apperrors.ConcurrencyConflict("dispute case was modified concurrently")
		}
		resolved = dispute
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogDisputeTransition(ctx, id.String(), string(from), string(StatusResolved), actor.ID.String())
	s.notify(ctx, resolved, notifications.TemplateDisputeResolved)
	return resolved, nil
}

func (s *service) AddEvidence(ctx context.Context, actor users.Actor, id uuid.UUID, in EvidenceInput) (*Evidence, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Title == "" || in.Content == "" {
		return nil, apperrors.Validation("evidence needs a title and content")
	}
	if in.Type == "" {
		in.Type = EvidenceText
	}
	if !in.Type.IsValid() {
		return nil, apperrors.Validation("unknown evidence type %q", in.Type)
	}

	evidence := &Evidence{
		ID:             uuid.New(),
		DisputeID:      id,
		Type:           in.Type,
		Title:          in.Title,
		Content:        in.Content,
		UploadedBy:     actor.ID,
		UploadedByRole: actor.Role,
		UploadedAt:     s.now(),
	}
	err := s.appendTo(ctx, actor, id, "add evidence to", func(txCtx context.Context) error {
		return s.repo.AppendEvidence(txCtx, evidence)
	})
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

func (s *service) AddCommunication(ctx context.Context, actor users.Actor, id uuid.UUID, message string, isInternal bool) (*Communication, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.Validation("message must not be empty")
	}
	if isInternal && !actor.IsAdmin() {
		return nil, apperrors.Authorization("only admins can post internal notes")
	}

	communication := &Communication{
		ID:           uuid.New(),
		DisputeID:    id,
		FromUserID:   actor.ID,
		FromUserRole: actor.Role,
		Message:      message,
		IsInternal:   isInternal,
		SentAt:       s.now(),
	}
	err := s.appendTo(ctx, actor, id, "add communication to", func(txCtx context.Context) error {
		return s.repo.AppendCommunication(txCtx, communication)
	})
	if err != nil {
		return nil, err
	}
	return communication, nil
}

func (s *service) Get(ctx context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error) {
	dispute, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !dispute.IsParticipant(actor.ID) {
		return nil, apperrors.Authorization("dispute belongs to another booking")
	}
	return dispute, nil
}

// List returns every dispute for admins and the actor's own otherwise.
func (s *service) List(ctx context.Context, actor users.Actor, status Status) ([]DisputeCase, error) {
	if status != "" && !status.IsValid() {
		return nil, apperrors.Validation("unknown dispute status %q", status)
	}
	filter := ListFilter{Status: status}
	if !actor.IsAdmin() {
		actorID := actor.ID
		filter.ParticipantID = &actorID
	}
	return s.repo.List(ctx, filter)
}

func validateResolution(in *ResolveInput) error {
	in.Description = strings.TrimSpace(in.Description)
	if !in.Type.IsValid() {
		return apperrors.Validation("unknown resolution type %q", in.Type)
	}
	if in.Description == "" {
		return apperrors.Validation("a resolution needs a description")
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return apperrors.Validation("resolution amount must be greater than zero")
	}
	if in.Type.RequiresAmount() && in.Amount == nil {
		return apperrors.Validation("%s resolutions require an amount", in.Type)
	}
	if in.Type == ResolutionNoRefund && in.Amount != nil {
		return apperrors.Validation("NO_REFUND resolutions must not carry an amount")
	}
	return nil
}

// compensate creates the dispute's compensating refund, capped at the
// booking's total.
func (s *service) compensate(ctx context.Context, actor users.Actor, dispute *DisputeCase, in ResolveInput) (*refunds.RefundRecord, error) {
	request, err := s.cancellations.GetCancellationRequest(ctx, dispute.CancellationRequestID)
	if err != nil {
		return nil, err
	}
	if total := request.Calculation.TotalAmount; in.Amount.GreaterThan(total) {
		return nil, apperrors.Validation("resolution amount exceeds the booking total of %s", total.StringFixed(2))
	}

	method := refunds.MethodOriginalPayment
	if in.Type == ResolutionCredit {
		method = refunds.MethodCredit
	}
	return s.refunds.CreateCompensating(ctx, refunds.CompensationInput{
		DisputeID:             dispute.ID,
		CancellationRequestID: dispute.CancellationRequestID,
		BookingID:             dispute.BookingID,
		CustomerID:            dispute.CustomerID,
		Amount:                *in.Amount,
		Method:                method,
		InitiatedBy:           actor.ID,
	})
}

// appendTo runs add under a lock on the dispute row, after checking the
// actor's access and that the dispute still accepts entries.
func (s *service) appendTo(ctx context.Context, actor users.Actor, id uuid.UUID, action string, add func(ctx context.Context) error) error {
	return s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		dispute, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !dispute.IsParticipant(actor.ID) {
			return apperrors.Authorization("dispute belongs to another booking")
		}
		if dispute.Status.IsTerminal() {
			return apperrors.InvalidTransition(entityName, action, string(dispute.Status))
		}
		return add(txCtx)
	})
}

func (s *service) transition(ctx context.Context, actor users.Actor, id uuid.UUID, action string, allowed []Status, mutate func(d *DisputeCase)) (*DisputeCase, error) {
	dispute, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from, fromVersion := dispute.Status, dispute.Version
	if !from.in(allowed...) {
		return nil, apperrors.InvalidTransition(entityName, action, string(from))
	}

	mutate(dispute)
	dispute.Version = fromVersion + 1

	saved, err := s.repo.SaveIfCurrent(ctx, dispute, from, fromVersion)
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
		return nil, apperrors.ConcurrencyConflict("dispute case was modified concurrently").
			WithDetail("current_version", current.Version)
	}

	s.logger.LogDisputeTransition(ctx, id.String(), string(from), string(dispute.Status), actor.ID.String())
	return dispute, nil
}

func (s *service) notify(ctx context.Context, dispute *DisputeCase, template notifications.TemplateID) {
	if s.notifier == nil {
		return
	}
	for _, recipient := range []uuid.UUID{dispute.CustomerID, dispute.GuideID} {
		n := notifications.NewNotificationBuilder().
			WithTemplate(template).
			WithRecipient(recipient).
			WithDisputeContext(dispute.ID).
			WithCancellationContext(dispute.CancellationRequestID).
			WithBookingContext(dispute.BookingID).
			WithData("reference", dispute.Reference).
			WithData("type", string(dispute.Type)).
			WithData("status", string(dispute.Status))
		if dispute.IsResolved() {
			n.WithData("resolution_type", string(dispute.Resolution.Type))
			if dispute.Resolution.Amount.Valid {
				n.WithData("resolution_amount", dispute.Resolution.Amount.Decimal.StringFixed(2))
			}
		}
		if dispute.RefundRecordID != nil {
			n.WithRefundContext(*dispute.RefundRecordID)
		}
		s.notifier.Notify(ctx, n.Build())
	}
}
