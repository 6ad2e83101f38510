package database

import (
	"gorm.io/gorm"
)

// Migrate creates or updates the tables for the given models.
// The uuid-ossp extension backs the uuid_generate_v4() column defaults.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	if len(models) == 0 {
		return nil
	}
	return db.AutoMigrate(models...)
}
