package db_models

import (
	"github.com/google/uuid"
)

// LoyaltyAccount holds a denormalized PointsBalance. The balance is a
// write-through cache of the transaction log and is never trusted by
// business checks; see LoyaltyService for the derived computation.
type LoyaltyAccount struct {
	BaseModel
	AccountID     uuid.UUID `gorm:"uniqueIndex"`
	PointsBalance int64

	Transactions []LoyaltyTransaction `gorm:"foreignKey:LoyaltyAccountID"`
}

type LoyaltyTransactionType string

const (
	LoyaltyEarn   LoyaltyTransactionType = "earn"
	LoyaltySpend  LoyaltyTransactionType = "spend"
	LoyaltyAdjust LoyaltyTransactionType = "adjust"
)

// LoyaltyTransaction is an immutable ledger entry. The composite unique
// index backs up the in-transaction check that an order gets at most one
// earn and one spend; OrderID is null for manual adjustments, which
// postgres keeps out of the uniqueness scope.
type LoyaltyTransaction struct {
	BaseModel
	LoyaltyAccountID uuid.UUID              `gorm:"index;uniqueIndex:idx_ledger_order_type,priority:1"`
	OrderID          *uuid.UUID             `gorm:"uniqueIndex:idx_ledger_order_type,priority:2"`
	Type             LoyaltyTransactionType `gorm:"uniqueIndex:idx_ledger_order_type,priority:3"`

	// Signed delta: positive for earn, negative for spend.
	Points int64

	// Earn entries expire; spend and adjust entries never do.
	ExpiresAt *int64

	Note string
}
