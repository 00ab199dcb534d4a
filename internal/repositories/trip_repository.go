package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tripgo/internal/models/db_models"
	"tripgo/pkg/utils"
)

type TripRepository interface {
	ListActive(ctx context.Context, page int, pageSize int) ([]db_models.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (*db_models.Trip, error)

	// ReserveSeats and ReleaseSeats take the caller's transaction handle:
	// seat counters are only ever mutated inside the transaction that owns
	// the reservation or cancellation.
	ReserveSeats(tx *gorm.DB, tripID uuid.UUID, seats int) error
	ReleaseSeats(tx *gorm.DB, tripID uuid.UUID, seats int) error
}

func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

type tripRepository struct {
	db *gorm.DB
}

func (r *tripRepository) ListActive(ctx context.Context, page int, pageSize int) ([]db_models.Trip, error) {
	var trips []db_models.Trip
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Order("departs_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&trips).Error
	if err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *tripRepository) GetByID(ctx context.Context, id uuid.UUID) (*db_models.Trip, error) {
	var trip db_models.Trip
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) ReserveSeats(tx *gorm.DB, tripID uuid.UUID, seats int) error {
	res := tx.Model(&db_models.Trip{}).
		Where("id = ? AND seats_left >= ?", tripID, seats).
		UpdateColumn("seats_left", gorm.Expr("seats_left - ?", seats))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotEnoughSeats
	}
	return nil
}

func (r *tripRepository) ReleaseSeats(tx *gorm.DB, tripID uuid.UUID, seats int) error {
	return tx.Model(&db_models.Trip{}).
		Where("id = ?", tripID).
		UpdateColumn("seats_left", gorm.Expr("LEAST(seats_total, seats_left + ?)", seats)).Error
}
