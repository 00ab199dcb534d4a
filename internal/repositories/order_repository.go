package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripgo/internal/models/db_models"
)

type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*db_models.Order, error)
	GetByNumber(ctx context.Context, number string) (*db_models.Order, error)
	// ListExpiredSubmitted returns ids of submitted orders created before
	// the cutoff; the sweeper re-checks each one under its own row lock.
	ListExpiredSubmitted(ctx context.Context, cutoff int64, limit int) ([]uuid.UUID, error)
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*db_models.Order, error) {
	var order db_models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*db_models.Order, error) {
	var order db_models.Order
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListExpiredSubmitted(ctx context.Context, cutoff int64, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&db_models.Order{}).
		Where("status = ? AND created_at <= ?", db_models.OrderStatusSubmitted, cutoff).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// LockOrderTx fetches the order row FOR UPDATE. This lock is the only
// serializer for concurrent webhook deliveries and sweeper cancellation
// on the same order; no in-process locking is used.
func LockOrderTx(tx *gorm.DB, orderID uuid.UUID) (*db_models.Order, error) {
	var order db_models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func ListPaymentsTx(tx *gorm.DB, orderID uuid.UUID) ([]db_models.Payment, error) {
	var payments []db_models.Payment
	err := tx.Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
