package bookings

import (
	"context"
	"errors"
	"fmt"

	"tourhub/internal/shared/apperrors"
	"tourhub/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetCustomerBookings(ctx context.Context, customerID uuid.UUID) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("booking", id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) GetCustomerBookings(ctx context.Context, customerID uuid.UUID) ([]Booking, error) {
	var list []Booking
	err := database.Conn(ctx, r.db).
		Where("customer_id = ?", customerID).
		Order("service_date_time DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get customer bookings: %w", err)
	}
	return list, nil
}
