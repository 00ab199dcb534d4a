package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tripgo/internal/models/db_models"
	"tripgo/internal/repositories"
)

type SweeperConfig struct {
	Interval       time.Duration // how often a sweep runs
	ReservationTTL time.Duration // unpaid submitted orders older than this are cancelled
	OrderBatch     int
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:       5 * time.Minute,
		ReservationTTL: 120 * time.Minute,
		OrderBatch:     100,
	}
}

type SweepStats struct {
	SessionsExpired int64
	OrdersCancelled int
	BalancesSynced  int
}

type SweeperService struct {
	db          *gorm.DB
	orderRepo   repositories.OrderRepository
	tripRepo    repositories.TripRepository
	loyaltyRepo repositories.LoyaltyRepository
	loyalty     LoyaltyServiceInterface
	cfg         SweeperConfig
	logger      *zap.Logger
}

func NewSweeperService(db *gorm.DB, orderRepo repositories.OrderRepository, tripRepo repositories.TripRepository, loyaltyRepo repositories.LoyaltyRepository, loyalty LoyaltyServiceInterface, cfg SweeperConfig, logger *zap.Logger) *SweeperService {
	return &SweeperService{
		db:          db,
		orderRepo:   orderRepo,
		tripRepo:    tripRepo,
		loyaltyRepo: loyaltyRepo,
		loyalty:     loyalty,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run loops until the context is cancelled. One sweep failure is logged
// and the ticker keeps going.
func (s *SweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("reservation_ttl", s.cfg.ReservationTTL))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			stats, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if stats.SessionsExpired > 0 || stats.OrdersCancelled > 0 || stats.BalancesSynced > 0 {
				s.logger.Info("sweep done",
					zap.Int64("sessions_expired", stats.SessionsExpired),
					zap.Int("orders_cancelled", stats.OrdersCancelled),
					zap.Int("balances_synced", stats.BalancesSynced))
			}
		}
	}
}

func (s *SweeperService) SweepOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	now := time.Now()

	// Expired sessions: the point reservation was display-only, so the
	// status flip alone releases it.
	res := s.db.WithContext(ctx).Model(&db_models.CheckoutSession{}).
		Where("status = ? AND expires_at <= ?", db_models.SessionStatusPending, now.Unix()).
		Update("status", db_models.SessionStatusExpired)
	if res.Error != nil {
		return stats, res.Error
	}
	stats.SessionsExpired = res.RowsAffected

	cutoff := now.Add(-s.cfg.ReservationTTL).Unix()
	candidates, err := s.orderRepo.ListExpiredSubmitted(ctx, cutoff, s.cfg.OrderBatch)
	if err != nil {
		return stats, err
	}
	for _, id := range candidates {
		cancelled, err := s.cancelOrder(ctx, id, now)
		if err != nil {
			s.logger.Error("sweeper cancel failed",
				zap.String("order_id", id.String()), zap.Error(err))
			continue
		}
		if cancelled {
			stats.OrdersCancelled++
		}
	}

	// Cache-vs-derived consistency pass for accounts with recent ledger
	// activity.
	since := now.Add(-2 * s.cfg.Interval).Unix()
	active, err := s.loyaltyRepo.ListRecentlyActive(ctx, since)
	if err != nil {
		return stats, err
	}
	for _, id := range active {
		if _, err := s.loyalty.ResyncBalance(ctx, id); err != nil {
			s.logger.Error("balance resync failed",
				zap.String("loyalty_account_id", id.String()), zap.Error(err))
			continue
		}
		stats.BalancesSynced++
	}

	return stats, nil
}

// cancelOrder re-checks under the order row lock before cancelling: a
// paid payment that appeared since the candidate scan means the webhook
// won the race and the order must be left alone.
func (s *SweeperService) cancelOrder(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	cancelled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := repositories.LockOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return nil
		}

		payments, err := repositories.ListPaymentsTx(tx, order.ID)
		if err != nil {
			return err
		}
		if !shouldCancelOrder(order, payments, int64(s.cfg.ReservationTTL.Seconds()), now.Unix()) {
			return nil
		}

		if err := tx.Model(&db_models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":       db_models.OrderStatusCancelled,
				"cancelled_at": now.Unix(),
			}).Error; err != nil {
			return err
		}

		// Open attempts are dead once the order is cancelled.
		if err := tx.Model(&db_models.Payment{}).
			Where("order_id = ? AND status = ?", order.ID, db_models.PaymentStatusPending).
			Update("status", db_models.PaymentStatusCancelled).Error; err != nil {
			return err
		}

		var items []db_models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}
		for _, it := range items {
			if err := s.tripRepo.ReleaseSeats(tx, it.TripID, it.Seats); err != nil {
				return err
			}
		}

		if order.CheckoutSessionID != nil {
			if err := tx.Model(&db_models.CheckoutSession{}).
				Where("id = ? AND status = ?", *order.CheckoutSessionID, db_models.SessionStatusPending).
				Update("status", db_models.SessionStatusExpired).Error; err != nil {
				return err
			}
		}

		cancelled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		s.logger.Info("unpaid order cancelled, seats released",
			zap.String("order_id", orderID.String()))
	}
	return cancelled, nil
}
