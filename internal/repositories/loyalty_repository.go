package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tripgo/internal/models/db_models"
	"tripgo/pkg/utils"
)

type LoyaltyRepository interface {
	// GetOrCreateByAccount returns the customer's loyalty account,
	// creating an empty one on first touch.
	GetOrCreateByAccount(ctx context.Context, accountID uuid.UUID) (*db_models.LoyaltyAccount, error)
	ListEntries(ctx context.Context, loyaltyAccountID uuid.UUID, page int, pageSize int) ([]db_models.LoyaltyTransaction, error)
	ListRecentlyActive(ctx context.Context, since int64) ([]uuid.UUID, error)
}

func NewLoyaltyRepository(db *gorm.DB) LoyaltyRepository {
	return &loyaltyRepository{db: db}
}

type loyaltyRepository struct {
	db *gorm.DB
}

func (r *loyaltyRepository) GetOrCreateByAccount(ctx context.Context, accountID uuid.UUID) (*db_models.LoyaltyAccount, error) {
	return GetOrCreateLoyaltyAccountTx(r.db.WithContext(ctx), accountID)
}

func (r *loyaltyRepository) ListEntries(ctx context.Context, loyaltyAccountID uuid.UUID, page int, pageSize int) ([]db_models.LoyaltyTransaction, error) {
	var entries []db_models.LoyaltyTransaction
	err := r.db.WithContext(ctx).
		Where("loyalty_account_id = ?", loyaltyAccountID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRecentlyActive returns loyalty accounts with ledger writes since
// the given unix time, for the periodic cache-vs-derived resync.
func (r *loyaltyRepository) ListRecentlyActive(ctx context.Context, since int64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&db_models.LoyaltyTransaction{}).
		Distinct("loyalty_account_id").
		Where("created_at >= ?", since).
		Pluck("loyalty_account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// The helpers below take an open transaction handle so ledger writes can
// join the order-row-locked reconciliation transaction.

func GetOrCreateLoyaltyAccountTx(tx *gorm.DB, accountID uuid.UUID) (*db_models.LoyaltyAccount, error) {
	var acct db_models.LoyaltyAccount
	err := tx.Where("account_id = ?", accountID).First(&acct).Error
	if err == nil {
		return &acct, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	acct = db_models.LoyaltyAccount{AccountID: accountID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoNothing: true,
	}).Create(&acct).Error; err != nil {
		return nil, err
	}
	// Re-read in case a concurrent insert won the conflict.
	if err := tx.Where("account_id = ?", accountID).First(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

func LoadLedgerTx(tx *gorm.DB, loyaltyAccountID uuid.UUID) ([]db_models.LoyaltyTransaction, error) {
	var entries []db_models.LoyaltyTransaction
	err := tx.Where("loyalty_account_id = ?", loyaltyAccountID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func FindOrderEntryTx(tx *gorm.DB, loyaltyAccountID uuid.UUID, orderID uuid.UUID, entryType db_models.LoyaltyTransactionType) (*db_models.LoyaltyTransaction, error) {
	var entry db_models.LoyaltyTransaction
	err := tx.Where("loyalty_account_id = ? AND order_id = ? AND type = ?",
		loyaltyAccountID, orderID, entryType).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// InsertEntryTx appends a ledger row and bumps the cached balance by the
// entry's delta in the same transaction. The composite unique index on
// (loyalty_account_id, order_id, type) backs up the caller's
// check-then-act; a violation is translated to the matching conflict
// sentinel.
func InsertEntryTx(tx *gorm.DB, entry *db_models.LoyaltyTransaction) error {
	if err := tx.Create(entry).Error; err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if entry.Type == db_models.LoyaltySpend {
				return utils.ErrSpendAlreadyRecorded
			}
			return utils.ErrEarnAlreadyRecorded
		}
		return err
	}

	return tx.Model(&db_models.LoyaltyAccount{}).
		Where("id = ?", entry.LoyaltyAccountID).
		UpdateColumn("points_balance", gorm.Expr("points_balance + ?", entry.Points)).Error
}
