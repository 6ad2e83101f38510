package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveIfCurrent writes every column of model, a pointer to an entity that
// already holds its new state and next version, while the stored row still
// has the expected status and version. It reports whether the row changed.
func SaveIfCurrent(ctx context.Context, db *gorm.DB, model interface{}, id uuid.UUID, status string, version int) (bool, error) {
	res := Conn(ctx, db).Model(model).
		Where("id = ? AND status = ? AND version = ?", id, status, version).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(model)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update %T: %w", model, res.Error)
	}
	return res.RowsAffected == 1, nil
}
