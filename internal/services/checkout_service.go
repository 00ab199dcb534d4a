package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripgo/internal/models/db_models"
	"tripgo/internal/models/request_models"
	"tripgo/internal/repositories"
	"tripgo/pkg/utils"
)

type CheckoutConfig struct {
	SessionTTL time.Duration
}

func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{SessionTTL: 30 * time.Minute}
}

// cartItem is the persisted shape of one snapshot line.
type cartItem struct {
	TripID        uuid.UUID `json:"trip_id"`
	PassengerName string    `json:"passenger_name"`
	Seats         int       `json:"seats"`
}

type CheckoutServiceInterface interface {
	StartCheckout(ctx context.Context, accountID uuid.UUID, req request_models.StartCheckoutRequest) (*db_models.CheckoutSession, error)
	SubmitOrder(ctx context.Context, accountID uuid.UUID, sessionID uuid.UUID) (*db_models.Order, error)
	CancelSession(ctx context.Context, accountID uuid.UUID, sessionID uuid.UUID) error
	GetOrder(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID) (*db_models.Order, error)
	DisplayAvailablePoints(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type checkoutService struct {
	db          *gorm.DB
	tripRepo    repositories.TripRepository
	orderRepo   repositories.OrderRepository
	loyaltyRepo repositories.LoyaltyRepository
	cfg         CheckoutConfig
	logger      *zap.Logger
}

func NewCheckoutService(db *gorm.DB, tripRepo repositories.TripRepository, orderRepo repositories.OrderRepository, loyaltyRepo repositories.LoyaltyRepository, cfg CheckoutConfig, logger *zap.Logger) CheckoutServiceInterface {
	return &checkoutService{
		db:          db,
		tripRepo:    tripRepo,
		orderRepo:   orderRepo,
		loyaltyRepo: loyaltyRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *checkoutService) StartCheckout(ctx context.Context, accountID uuid.UUID, req request_models.StartCheckoutRequest) (*db_models.CheckoutSession, error) {
	items := make([]cartItem, 0, len(req.Items))
	for _, it := range req.Items {
		trip, err := s.tripRepo.GetByID(ctx, it.TripID)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if trip == nil || !trip.IsActive {
			return nil, utils.ErrTripNotFound
		}
		// Soft availability check; the hard guarded decrement happens at
		// submit time inside the order transaction.
		if trip.SeatsLeft < it.Seats {
			return nil, utils.ErrNotEnoughSeats
		}
		items = append(items, cartItem{TripID: it.TripID, PassengerName: it.PassengerName, Seats: it.Seats})
	}

	if req.ReservePoints > 0 {
		display, err := s.DisplayAvailablePoints(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if req.ReservePoints > display {
			return nil, utils.ErrInsufficientPoints
		}
	}

	snapshot, err := json.Marshal(map[string]interface{}{"items": items})
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	session := &db_models.CheckoutSession{
		AccountID:      accountID,
		Status:         db_models.SessionStatusPending,
		CartSnapshot:   datatypes.JSON(snapshot),
		ReservedPoints: req.ReservePoints,
		ExpiresAt:      time.Now().Add(s.cfg.SessionTTL).Unix(),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, utils.ErrDatabaseError
	}
	return session, nil
}

// SubmitOrder turns a pending session's snapshot into a submitted order
// with a fixed total, reserving seats under the same transaction.
func (s *checkoutService) SubmitOrder(ctx context.Context, accountID uuid.UUID, sessionID uuid.UUID) (*db_models.Order, error) {
	var order *db_models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session db_models.CheckoutSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND account_id = ?", sessionID, accountID).
			First(&session).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return utils.ErrSessionNotFound
			}
			return err
		}
		if session.Status != db_models.SessionStatusPending {
			return utils.ErrSessionNotPending
		}
		if session.ExpiresAt <= time.Now().Unix() {
			return utils.ErrSessionExpired
		}

		var snapshot struct {
			Items []cartItem `json:"items"`
		}
		if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil || len(snapshot.Items) == 0 {
			return utils.ErrSessionNotPending
		}

		var total int64
		currency := ""
		orderItems := make([]db_models.OrderItem, 0, len(snapshot.Items))
		for _, it := range snapshot.Items {
			var trip db_models.Trip
			if err := tx.Where("id = ?", it.TripID).First(&trip).Error; err != nil {
				return utils.ErrTripNotFound
			}
			if err := s.tripRepo.ReserveSeats(tx, trip.ID, it.Seats); err != nil {
				return err
			}
			total += trip.PriceMinor * int64(it.Seats)
			currency = trip.Currency
			orderItems = append(orderItems, db_models.OrderItem{
				TripID:        trip.ID,
				PassengerName: it.PassengerName,
				Seats:         it.Seats,
				PriceMinor:    trip.PriceMinor,
			})
		}

		sid := session.ID
		order = &db_models.Order{
			AccountID:         accountID,
			Number:            generateOrderNumber(),
			Status:            db_models.OrderStatusSubmitted,
			TotalMinor:        total,
			Currency:          currency,
			CheckoutSessionID: &sid,
			Items:             orderItems,
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order submitted",
		zap.String("order_number", order.Number),
		zap.Int64("total_minor", order.TotalMinor))
	return order, nil
}

func (s *checkoutService) CancelSession(ctx context.Context, accountID uuid.UUID, sessionID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&db_models.CheckoutSession{}).
		Where("id = ? AND account_id = ? AND status = ?",
			sessionID, accountID, db_models.SessionStatusPending).
		Update("status", db_models.SessionStatusCancelled)
	if res.Error != nil {
		return utils.ErrDatabaseError
	}
	if res.RowsAffected == 0 {
		return utils.ErrSessionNotFound
	}
	return nil
}

func (s *checkoutService) GetOrder(ctx context.Context, accountID uuid.UUID, orderID uuid.UUID) (*db_models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if order == nil || order.AccountID != accountID {
		return nil, utils.ErrOrderNotFound
	}
	return order, nil
}

// DisplayAvailablePoints is the storefront figure: ledger-derived
// available balance minus points tentatively held by pending checkout
// sessions. Those holds are display-only; nothing is debited from the
// ledger until payment confirmation posts the spend.
func (s *checkoutService) DisplayAvailablePoints(ctx context.Context, accountID uuid.UUID) (int64, error) {
	acct, err := s.loyaltyRepo.GetOrCreateByAccount(ctx, accountID)
	if err != nil {
		return 0, utils.ErrDatabaseError
	}
	entries, err := repositories.LoadLedgerTx(s.db.WithContext(ctx), acct.ID)
	if err != nil {
		return 0, utils.ErrDatabaseError
	}
	available := availablePoints(entries, time.Now())

	var reserved int64
	err = s.db.WithContext(ctx).Model(&db_models.CheckoutSession{}).
		Where("account_id = ? AND status = ? AND expires_at > ?",
			accountID, db_models.SessionStatusPending, time.Now().Unix()).
		Select("COALESCE(SUM(reserved_points), 0)").
		Scan(&reserved).Error
	if err != nil {
		return 0, utils.ErrDatabaseError
	}

	display := available - reserved
	if display < 0 {
		display = 0
	}
	return display, nil
}

// Order numbers stay dash-free so gateway session ids parse back
// unambiguously. Unix seconds plus a short random suffix, same scheme
// the provider-facing order codes use.
func generateOrderNumber() string {
	return fmt.Sprintf("TG%d%04d", time.Now().Unix()%1_000_000_000, rand.Intn(10000))
}
