package cancellation

import (
	"context"
	"errors"
	"fmt"

	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines the contract for cancellation request storage
type Repository interface {
	Create(ctx context.Context, request *CancellationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)

	// FindOpenByBooking returns the booking's PENDING or APPROVED request,
	// or nil when it has none.
	FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]CancellationRequest, error)
	ListByStatus(ctx context.Context, status Status) ([]CancellationRequest, error)

	// SaveIfCurrent persists request only while the stored row is still at
	// fromStatus/fromVersion.
	SaveIfCurrent(ctx context.Context, request *CancellationRequest, fromStatus Status, fromVersion int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new cancellation repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, request *CancellationRequest) error {
	err := database.Conn(ctx, r.db).Create(request).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.ConcurrencyConflict("an active cancellation request already exists for booking %s", request.BookingID)
		}
		return fmt.Errorf("failed to create cancellation request: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	var request CancellationRequest
	err := database.Conn(ctx, r.db).First(&request, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(entityName, id)
		}
		return nil, fmt.Errorf("failed to get cancellation request: %w", err)
	}
	return &request, nil
}

func (r *repository) FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	var request CancellationRequest
	err := database.Conn(ctx, r.db).
		Where("booking_id = ? AND status IN ?", bookingID, []Status{StatusPending, StatusApproved}).
		Order("created_at DESC").
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cancellation request by booking ID: %w", err)
	}
	return &request, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]CancellationRequest, error) {
	var requests []CancellationRequest
	err := database.Conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user cancellation requests: %w", err)
	}
	return requests, nil
}

func (r *repository) ListByStatus(ctx context.Context, status Status) ([]CancellationRequest, error) {
	var requests []CancellationRequest
	err := database.Conn(ctx, r.db).
		Where("status = ?", status).
		Order("requested_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cancellation requests: %w", err)
	}
	return requests, nil
}

func (r *repository) SaveIfCurrent(ctx context.Context, request *CancellationRequest, fromStatus Status, fromVersion int) (bool, error) {
	return database.SaveIfCurrent(ctx, r.db, request, request.ID, string(fromStatus), fromVersion)
}
