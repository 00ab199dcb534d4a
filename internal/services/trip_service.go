package services

import (
	"context"

	"github.com/google/uuid"

	"tripgo/internal/models/db_models"
	"tripgo/internal/repositories"
	"tripgo/pkg/utils"
)

type TripServiceInterface interface {
	ListTrips(ctx context.Context, page int, pageSize int) ([]db_models.Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*db_models.Trip, error)
}

type tripService struct {
	tripRepo repositories.TripRepository
}

func NewTripService(tripRepo repositories.TripRepository) TripServiceInterface {
	return &tripService{tripRepo: tripRepo}
}

func (s *tripService) ListTrips(ctx context.Context, page int, pageSize int) ([]db_models.Trip, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, utils.ErrInvalidPageSize
	}
	trips, err := s.tripRepo.ListActive(ctx, page, pageSize)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return trips, nil
}

func (s *tripService) GetTrip(ctx context.Context, id uuid.UUID) (*db_models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if trip == nil {
		return nil, utils.ErrTripNotFound
	}
	return trip, nil
}
