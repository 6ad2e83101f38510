package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ticket struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status    string
	Note      string
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

const guardedUpdate = `UPDATE "tickets" SET "status"=\$1,"note"=\$2,"version"=\$3,"updated_at"=\$4 ` +
	`WHERE \(?id = \$5 AND status = \$6 AND version = \$7\)? AND "id" = \$8`

func TestSaveIfCurrentGuardsOnStatusAndVersion(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	row := &ticket{ID: id, Status: "APPROVED", Note: "ok", Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(guardedUpdate).
		WithArgs("APPROVED", "ok", 2, sqlmock.AnyArg(), id, "PENDING", 1, id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := SaveIfCurrent(context.Background(), db, row, id, "PENDING", 1)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveIfCurrentReportsLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	row := &ticket{ID: id, Status: "REJECTED", Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(guardedUpdate).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	changed, err := SaveIfCurrent(context.Background(), db, row, id, "PENDING", 1)

	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveIfCurrentUsesContextTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()
	row := &ticket{ID: id, Status: "APPROVED", Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec(guardedUpdate).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	lost := errors.New("lost race")
	err := NewTransactor(db).WithinTransaction(context.Background(), func(ctx context.Context) error {
		changed, err := SaveIfCurrent(ctx, db, row, id, "PENDING", 1)
		if err != nil {
			return err
		}
		if !changed {
			return lost
		}
		return nil
	})

	assert.ErrorIs(t, err, lost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveIfCurrentWrapsDriverErrors(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(guardedUpdate).WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	changed, err := SaveIfCurrent(context.Background(), db, &ticket{ID: id, Status: "APPROVED", Version: 2}, id, "PENDING", 1)

	require.Error(t, err)
	assert.False(t, changed)
	assert.Contains(t, err.Error(), "failed to update *database.ticket")
	assert.NoError(t, mock.ExpectationsWereMet())
}
