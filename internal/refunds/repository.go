package refunds

import (
	"context"
	"errors"
	"fmt"

	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines the contract for refund record storage
type Repository interface {
	Create(ctx context.Context, record *RefundRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*RefundRecord, error)

	// GetByIdempotencyKey returns nil, nil when no record carries key.
	GetByIdempotencyKey(ctx context.Context, key string) (*RefundRecord, error)
	ListByCancellation(ctx context.Context, cancellationRequestID uuid.UUID) ([]RefundRecord, error)

	// SaveIfCurrent persists record when the stored row is still in
	// fromStatus at fromVersion.
	SaveIfCurrent(ctx context.Context, record *RefundRecord, fromStatus Status, fromVersion int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *RefundRecord) error {
	if err := database.Conn(ctx, r.db).Create(record).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.ConcurrencyConflict("refund record already exists").
				WithDetail("idempotency_key", record.IdempotencyKey)
		}
		return fmt.Errorf("failed to create refund record: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*RefundRecord, error) {
	var record RefundRecord
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("refund record", id)
		}
		return nil, fmt.Errorf("failed to get refund record: %w", err)
	}
	return &record, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*RefundRecord, error) {
	var record RefundRecord
	err := database.Conn(ctx, r.db).Where("idempotency_key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refund record by key: %w", err)
	}
	return &record, nil
}

func (r *repository) ListByCancellation(ctx context.Context, cancellationRequestID uuid.UUID) ([]RefundRecord, error) {
	var list []RefundRecord
	err := database.Conn(ctx, r.db).
		Where("cancellation_request_id = ?", cancellationRequestID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refund records: %w", err)
	}
	return list, nil
}

func (r *repository) SaveIfCurrent(ctx context.Context, record *RefundRecord, fromStatus Status, fromVersion int) (bool, error) {
	return database.SaveIfCurrent(ctx, r.db, record, record.ID, string(fromStatus), fromVersion)
}
