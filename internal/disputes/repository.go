package disputes

import (
	"context"
	"errors"
	"fmt"

	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const entityName = "dispute case"

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status        Status
	ParticipantID *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, dispute *DisputeCase) error

	// GetByID loads the dispute with evidence and communications in order.
	GetByID(ctx context.Context, id uuid.UUID) (*DisputeCase, error)

	// GetForUpdate locks the dispute row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*DisputeCase, error)
	List(ctx context.Context, filter ListFilter) ([]DisputeCase, error)
	SaveIfCurrent(ctx context.Context, dispute *DisputeCase, fromStatus Status, fromVersion int) (bool, error)

	// AppendEvidence and AppendCommunication assign the next sequence number.
	AppendEvidence(ctx context.Context, evidence *Evidence) error
	AppendCommunication(ctx context.Context, communication *Communication) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, dispute *DisputeCase) error {
	if err := database.Conn(ctx, r.db).Omit(clause.Associations).Create(dispute).Error; err != nil {
		return fmt.Errorf("failed to create dispute case: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*DisputeCase, error) {
	var dispute DisputeCase
	err := database.Conn(ctx, r.db).
		Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Preload("Communications", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&dispute, "id = ?", id).Error
	if err != nil {
		return nil, r.notFound(err, id)
	}
	return &dispute, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*DisputeCase, error) {
	var dispute DisputeCase
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dispute, "id = ?", id).Error
	if err != nil {
		return nil, r.notFound(err, id)
	}
	return &dispute, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]DisputeCase, error) {
	query := database.Conn(ctx, r.db).Model(&DisputeCase{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ParticipantID != nil {
		query = query.Where("customer_id = ? OR guide_id = ?", *filter.ParticipantID, *filter.ParticipantID)
	}

	var disputes []DisputeCase
	if err := query.Order("created_at DESC").Find(&disputes).Error; err != nil {
		return nil, fmt.Errorf("failed to list dispute cases: %w", err)
	}
	return disputes, nil
}

func (r *repository) SaveIfCurrent(ctx context.Context, dispute *DisputeCase, fromStatus Status, fromVersion int) (bool, error) {
	return database.SaveIfCurrent(ctx, r.db, dispute, dispute.ID, string(fromStatus), fromVersion)
}

func (r *repository) AppendEvidence(ctx context.Context, evidence *Evidence) error {
	seq, err := r.nextSequence(ctx, Evidence{}.TableName(), evidence.DisputeID)
	if err != nil {
		return err
	}
	evidence.Sequence = seq
	return r.append(ctx, evidence)
}

func (r *repository) AppendCommunication(ctx context.Context, communication *Communication) error {
	seq, err := r.nextSequence(ctx, Communication{}.TableName(), communication.DisputeID)
	if err != nil {
		return err
	}
	communication.Sequence = seq
	return r.append(ctx, communication)
}

func (r *repository) nextSequence(ctx context.Context, table string, disputeID uuid.UUID) (int, error) {
	var last int
	err := database.Conn(ctx, r.db).Table(table).
		Where("dispute_id = ?", disputeID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read %s sequence: %w", table, err)
	}
	return last + 1, nil
}

func (r *repository) append(ctx context.Context, entry interface{}) error {
	if err := database.Conn(ctx, r.db).Create(entry).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.ConcurrencyConflict("dispute was appended to concurrently")
		}
		return fmt.Errorf("failed to append %T: %w", entry, err)
	}
	return nil
}

func (r *repository) notFound(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entityName, id)
	}
	return fmt.Errorf("failed to get dispute case: %w", err)
}
