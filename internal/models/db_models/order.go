package db_models

import (
	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	BaseModel
	AccountID uuid.UUID `gorm:"index"`
	// Number is dash-free on purpose: gateway session ids are built as
	// "<number>-<attempt>" and resolved back by cutting at the first dash.
	Number     string      `gorm:"uniqueIndex"`
	Status     OrderStatus `gorm:"index"`
	TotalMinor int64       // fixed once submitted
	Currency   string      `gorm:"size:3"`

	CheckoutSessionID *uuid.UUID `gorm:"index"`

	ConfirmedAt *int64
	CancelledAt *int64

	Account         Account          `gorm:"foreignKey:AccountID"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments        []Payment        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CheckoutSession *CheckoutSession `gorm:"foreignKey:CheckoutSessionID"`
}

type OrderItem struct {
	BaseModel
	OrderID       uuid.UUID `gorm:"index"`
	TripID        uuid.UUID `gorm:"index"`
	PassengerName string
	Seats         int
	PriceMinor    int64 // per seat at submit time

	Trip Trip `gorm:"foreignKey:TripID"`
}
