package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripgo/internal/models/db_models"
	"tripgo/internal/repositories"
	"tripgo/pkg/utils"
)

type LoyaltyConfig struct {
	// EarnPercent of the order total is granted as points, with one point
	// per major currency unit: points = totalMinor * EarnPercent / 10000.
	EarnPercent int
	// Validity window stamped on earn entries at creation.
	Validity time.Duration
}

func DefaultLoyaltyConfig() LoyaltyConfig {
	return LoyaltyConfig{
		EarnPercent: 10,
		Validity:    365 * 24 * time.Hour,
	}
}

type LoyaltyServiceInterface interface {
	GetAvailablePoints(ctx context.Context, accountID uuid.UUID) (int64, error)
	GetHistory(ctx context.Context, accountID uuid.UUID, page int, pageSize int) ([]db_models.LoyaltyTransaction, error)
	RecordEarn(ctx context.Context, accountID uuid.UUID, points int64, orderID uuid.UUID, note string) error
	RecordSpend(ctx context.Context, accountID uuid.UUID, points int64, orderID uuid.UUID, note string) error
	RecordAdjust(ctx context.Context, accountID uuid.UUID, delta int64, note string) error
	ResyncBalance(ctx context.Context, loyaltyAccountID uuid.UUID) (int64, error)
}

type loyaltyService struct {
	db          *gorm.DB
	loyaltyRepo repositories.LoyaltyRepository
	cfg         LoyaltyConfig
	logger      *zap.Logger
}

func NewLoyaltyService(db *gorm.DB, loyaltyRepo repositories.LoyaltyRepository, cfg LoyaltyConfig, logger *zap.Logger) LoyaltyServiceInterface {
	return &loyaltyService{db: db, loyaltyRepo: loyaltyRepo, cfg: cfg, logger: logger}
}

// availablePoints derives the spendable balance from the ledger: earns
// that have not expired, minus spends, plus adjustments, floored at 0.
// This is the authoritative computation; LoyaltyAccount.PointsBalance is
// only a read cache.
func availablePoints(entries []db_models.LoyaltyTransaction, now time.Time) int64 {
	var total int64
	nowUnix := now.Unix()
	for _, e := range entries {
		if e.Type == db_models.LoyaltyEarn && e.ExpiresAt != nil && *e.ExpiresAt <= nowUnix {
			continue
		}
		total += e.Points
	}
	if total < 0 {
		return 0
	}
	return total
}

// derivedBalance is the raw sum of all deltas, expiry ignored. It is
// what the cached PointsBalance mirrors, since a write-through cache
// cannot track the passage of time.
func derivedBalance(entries []db_models.LoyaltyTransaction) int64 {
	var total int64
	for _, e := range entries {
		total += e.Points
	}
	return total
}

func pointsEarnedFor(totalMinor int64, earnPercent int) int64 {
	if totalMinor <= 0 || earnPercent <= 0 {
		return 0
	}
	return totalMinor * int64(earnPercent) / 10000
}

func (s *loyaltyService) GetAvailablePoints(ctx context.Context, accountID uuid.UUID) (int64, error) {
	acct, err := s.loyaltyRepo.GetOrCreateByAccount(ctx, accountID)
	if err != nil {
		return 0, utils.ErrDatabaseError
	}
	entries, err := repositories.LoadLedgerTx(s.db.WithContext(ctx), acct.ID)
	if err != nil {
		return 0, utils.ErrDatabaseError
	}
	return availablePoints(entries, time.Now()), nil
}

func (s *loyaltyService) GetHistory(ctx context.Context, accountID uuid.UUID, page int, pageSize int) ([]db_models.LoyaltyTransaction, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, utils.ErrInvalidPageSize
	}
	acct, err := s.loyaltyRepo.GetOrCreateByAccount(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return s.loyaltyRepo.ListEntries(ctx, acct.ID, page, pageSize)
}

func (s *loyaltyService) RecordEarn(ctx context.Context, accountID uuid.UUID, points int64, orderID uuid.UUID, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockLoyaltyAccountTx(tx, accountID)
		if err != nil {
			return err
		}
		_, err = postEarnTx(tx, acct, points, orderID, note, s.cfg.Validity, time.Now())
		return err
	})
}

func (s *loyaltyService) RecordSpend(ctx context.Context, accountID uuid.UUID, points int64, orderID uuid.UUID, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockLoyaltyAccountTx(tx, accountID)
		if err != nil {
			return err
		}
		_, err = postSpendTx(tx, acct, points, orderID, note, time.Now())
		return err
	})
}

func (s *loyaltyService) RecordAdjust(ctx context.Context, accountID uuid.UUID, delta int64, note string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockLoyaltyAccountTx(tx, accountID)
		if err != nil {
			return err
		}
		entry := &db_models.LoyaltyTransaction{
			LoyaltyAccountID: acct.ID,
			Type:             db_models.LoyaltyAdjust,
			Points:           delta,
			Note:             note,
		}
		return repositories.InsertEntryTx(tx, entry)
	})
}

// ResyncBalance recomputes the cached balance from the ledger and fixes
// the cache when they disagree. Drift is always resolved toward the
// log, never the reverse.
func (s *loyaltyService) ResyncBalance(ctx context.Context, loyaltyAccountID uuid.UUID) (int64, error) {
	var balance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acct db_models.LoyaltyAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", loyaltyAccountID).
			First(&acct).Error; err != nil {
			return err
		}

		entries, err := repositories.LoadLedgerTx(tx, acct.ID)
		if err != nil {
			return err
		}

		balance = derivedBalance(entries)
		if balance == acct.PointsBalance {
			return nil
		}

		s.logger.Warn("loyalty balance cache drift, resyncing from ledger",
			zap.String("loyalty_account_id", acct.ID.String()),
			zap.Int64("cached", acct.PointsBalance),
			zap.Int64("derived", balance))

		return tx.Model(&db_models.LoyaltyAccount{}).
			Where("id = ?", acct.ID).
			UpdateColumn("points_balance", balance).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func lockLoyaltyAccountTx(tx *gorm.DB, accountID uuid.UUID) (*db_models.LoyaltyAccount, error) {
	acct, err := repositories.GetOrCreateLoyaltyAccountTx(tx, accountID)
	if err != nil {
		return nil, err
	}
	var locked db_models.LoyaltyAccount
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", acct.ID).
		First(&locked).Error; err != nil {
		return nil, err
	}
	return &locked, nil
}

// postEarnTx appends an earn entry with a computed expiration. Fails
// with ErrEarnAlreadyRecorded when the order already earned.
func postEarnTx(tx *gorm.DB, acct *db_models.LoyaltyAccount, points int64, orderID uuid.UUID, note string, validity time.Duration, now time.Time) (*db_models.LoyaltyTransaction, error) {
	existing, err := repositories.FindOrderEntryTx(tx, acct.ID, orderID, db_models.LoyaltyEarn)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrEarnAlreadyRecorded
	}

	expires := now.Add(validity).Unix()
	oid := orderID
	entry := &db_models.LoyaltyTransaction{
		LoyaltyAccountID: acct.ID,
		OrderID:          &oid,
		Type:             db_models.LoyaltyEarn,
		Points:           points,
		ExpiresAt:        &expires,
		Note:             note,
	}
	if err := repositories.InsertEntryTx(tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// postSpendTx appends a spend entry after recomputing the available
// balance from the log; the cached balance is never consulted for the
// sufficiency check.
func postSpendTx(tx *gorm.DB, acct *db_models.LoyaltyAccount, points int64, orderID uuid.UUID, note string, now time.Time) (*db_models.LoyaltyTransaction, error) {
	existing, err := repositories.FindOrderEntryTx(tx, acct.ID, orderID, db_models.LoyaltySpend)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrSpendAlreadyRecorded
	}

	entries, err := repositories.LoadLedgerTx(tx, acct.ID)
	if err != nil {
		return nil, err
	}
	if points > availablePoints(entries, now) {
		return nil, utils.ErrInsufficientPoints
	}

	oid := orderID
	entry := &db_models.LoyaltyTransaction{
		LoyaltyAccountID: acct.ID,
		OrderID:          &oid,
		Type:             db_models.LoyaltySpend,
		Points:           -points,
		Note:             note,
	}
	if err := repositories.InsertEntryTx(tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
