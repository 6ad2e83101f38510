package policies

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

// Repository interface defines the contract for policy data operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CancellationPolicy, error)
	GetDefault(ctx context.Context, tenantID string) (*CancellationPolicy, error)
	List(ctx context.Context, tenantID string) ([]CancellationPolicy, error)

	// Save creates the policy (expectedVersion 0) or replaces it while the
	// stored version still equals expectedVersion, together with its rules.
	// When the policy is default, every other default of the tenant is
	// cleared in the same transaction and their IDs are returned.
	Save(ctx context.Context, policy *CancellationPolicy, expectedVersion int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new policy repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func orderedRules(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CancellationPolicy, error) {
	var policy CancellationPolicy
	err := database.Conn(ctx, r.db).Preload("Rules", orderedRules).First(&policy, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("cancellation policy", id)
		}
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}
	return &policy, nil
}

func (r *repository) GetDefault(ctx context.Context, tenantID string) (*CancellationPolicy, error) {
	var policy CancellationPolicy
	err := database.Conn(ctx, r.db).Preload("Rules", orderedRules).
		First(&policy, "tenant_id = ? AND is_default = ?", tenantID, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("default cancellation policy", tenantID)
		}
		return nil, fmt.Errorf("failed to get default cancellation policy: %w", err)
	}
	return &policy, nil
}

func (r *repository) List(ctx context.Context, tenantID string) ([]CancellationPolicy, error) {
	var list []CancellationPolicy
	err := database.Conn(ctx, r.db).Preload("Rules", orderedRules).
		Where("tenant_id = ?", tenantID).
		Order("is_default DESC, name ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cancellation policies: %w", err)
	}
	return list, nil
}

func (r *repository) Save(ctx context.Context, policy *CancellationPolicy, expectedVersion int) ([]uuid.UUID, error) {
	var cleared []uuid.UUID
	err := database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		cleared = nil
		if policy.IsDefault {
			var previous []CancellationPolicy
			err := tx.Model(&previous).
				Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
				Where("tenant_id = ? AND is_default = ? AND id <> ?", policy.TenantID, true, policy.ID).
				Update("is_default", false).Error
			if err != nil {
				return fmt.Errorf("failed to clear previous default policy: %w", err)
			}
			for _, p := range previous {
				cleared = append(cleared, p.ID)
			}
		}

		rules := policy.Rules
		policy.Rules = nil
		defer func() { policy.Rules = rules }()

		if err := writePolicy(tx, policy, expectedVersion); err != nil {
			return err
		}

		if err := tx.Where("policy_id = ?", policy.ID).Delete(&CancellationRule{}).Error; err != nil {
			return fmt.Errorf("failed to replace cancellation rules: %w", err)
		}
		for i := range rules {
			rules[i].PolicyID = policy.ID
		}
		if err := tx.Create(&rules).Error; err != nil {
			return fmt.Errorf("failed to create cancellation rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

// writePolicy inserts the policy when expectedVersion is zero, otherwise it
// updates the row only while its stored version still equals expectedVersion.
func writePolicy(tx *gorm.DB, policy *CancellationPolicy, expectedVersion int) error {
	if expectedVersion == 0 {
		if err := tx.Create(policy).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.ConcurrencyConflict("another default policy was saved concurrently")
			}
			return fmt.Errorf("failed to create cancellation policy: %w", err)
		}
		return nil
	}

	res := tx.Model(policy).
		Where("version = ?", expectedVersion).
		Select("name", "description", "is_default", "version", "updated_at").
		Updates(policy)
	if res.Error != nil {
		if database.IsUniqueViolation(res.Error) {
			return apperrors.ConcurrencyConflict("another default policy was saved concurrently")
		}
		return fmt.Errorf("failed to update cancellation policy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ConcurrencyConflict("cancellation policy %s changed since version %d", policy.ID, expectedVersion)
	}
	return nil
}
