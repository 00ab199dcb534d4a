package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentProvider string

const (
	ProviderGateway  PaymentProvider = "gateway"  // external gateway, confirmed via webhook
	ProviderTransfer PaymentProvider = "transfer" // manual bank transfer
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is one attempt to settle an order. Several pending/failed
// attempts may pile up per order; at most one is ever paid per
// (order, provider) pair.
type Payment struct {
	BaseModel
	OrderID  uuid.UUID       `gorm:"index"`
	Provider PaymentProvider `gorm:"index"`
	Status   PaymentStatus   `gorm:"index"`

	AmountMinor int64
	Currency    string `gorm:"size:3"`

	// Gateway correlation
	SessionID       string `gorm:"index"` // per-attempt session id sent to the provider
	ProviderOrderID string `gorm:"index"` // provider-side transaction id

	PaidAt   *int64
	FailedAt *int64

	// Append-only audit trail of provider payloads and verify responses.
	// Entries are merged in, never overwritten.
	ProviderPayload datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Order Order `gorm:"foreignKey:OrderID"`
}
