package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CheckoutSessionStatus string

const (
	SessionStatusPending   CheckoutSessionStatus = "pending"
	SessionStatusPaid      CheckoutSessionStatus = "paid"
	SessionStatusCancelled CheckoutSessionStatus = "cancelled"
	SessionStatusExpired   CheckoutSessionStatus = "expired"
)

// CheckoutSession is the ephemeral pre-order cart. ReservedPoints are
// only subtracted from the displayed available balance; the ledger spend
// is posted when the linked order's payment is confirmed. Expiring a
// session therefore releases the reservation with no ledger write.
type CheckoutSession struct {
	BaseModel
	AccountID uuid.UUID             `gorm:"index"`
	Status    CheckoutSessionStatus `gorm:"index"`

	CartSnapshot   datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	ReservedPoints int64

	ExpiresAt int64 `gorm:"index"`
}
