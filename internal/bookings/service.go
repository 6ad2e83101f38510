package bookings

import (
	"context"

	"tourhub/internal/shared/apperrors"
	"tourhub/internal/users"

	"github.com/google/uuid"
)

// Service interface defines read access to bookings
type Service interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error)

	// GetBookingForActor returns the booking when the actor is its customer,
	// its guide or an admin.
	GetBookingForActor(ctx context.Context, actor users.Actor, bookingID uuid.UUID) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return s.repo.GetBookingByID(ctx, bookingID)
}

func (s *service) GetBookingForActor(ctx context.Context, actor users.Actor, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !booking.IsParticipant(actor.ID) {
		return nil, apperrors.Authorization("booking belongs to another user")
	}
	return booking, nil
}

func (s *service) GetUserBookings(ctx context.Context, userID uuid.UUID) ([]Booking, error) {
	return s.repo.GetCustomerBookings(ctx, userID)
}
