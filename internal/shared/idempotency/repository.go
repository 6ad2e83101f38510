package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourhub/internal/shared/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyReserved is returned by Reserve when a live record exists.
var ErrAlreadyReserved = errors.New("idempotency key already reserved")

// Store persists idempotency records.
type Store interface {
	// Get returns nil when the key is unknown or expired.
	Get(ctx context.Context, scope, key string, now time.Time) (*Record, error)
	Reserve(ctx context.Context, rec *Record) error
	Complete(ctx context.Context, scope, key string, body []byte) error
	Release(ctx context.Context, scope, key string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a Postgres backed Store
func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, scope, key string, now time.Time) (*Record, error) {
	var rec Record
	err := database.Conn(ctx, r.db).
		Where("scope = ? AND idempotency_key = ? AND expires_at > ?", scope, key, now).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}
	return &rec, nil
}

// Reserve inserts the record, replacing an expired one under the same key.
func (r *repository) Reserve(ctx context.Context, rec *Record) error {
	db := database.Conn(ctx, r.db)
	if err := db.Where("scope = ? AND idempotency_key = ? AND expires_at <= ?", rec.Scope, rec.Key, time.Now().UTC()).
		Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to purge expired idempotency record: %w", err)
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return fmt.Errorf("failed to reserve idempotency key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyReserved
	}
	return nil
}

func (r *repository) Complete(ctx context.Context, scope, key string, body []byte) error {
	err := database.Conn(ctx, r.db).Model(&Record{}).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		Updates(map[string]interface{}{
			"status":        StatusCompleted,
			"response_body": body,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete idempotency record: %w", err)
	}
	return nil
}

func (r *repository) Release(ctx context.Context, scope, key string) error {
	err := database.Conn(ctx, r.db).
		Where("scope = ? AND idempotency_key = ? AND status = ?", scope, key, StatusInProgress).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to release idempotency record: %w", err)
	}
	return nil
}
