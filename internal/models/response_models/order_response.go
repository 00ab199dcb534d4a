package response_models

import "github.com/google/uuid"

type OrderResponse struct {
	ID         uuid.UUID           `json:"id"`
	Number     string              `json:"number"`
	Status     string              `json:"status"`
	TotalMinor int64               `json:"total_minor"`
	Currency   string              `json:"currency"`
	Items      []OrderItemResponse `json:"items,omitempty"`
	Payments   []PaymentSummary    `json:"payments,omitempty"`
}

type OrderItemResponse struct {
	TripID        uuid.UUID `json:"trip_id"`
	PassengerName string    `json:"passenger_name"`
	Seats         int       `json:"seats"`
	PriceMinor    int64     `json:"price_minor"`
}

type PaymentSummary struct {
	ID          uuid.UUID `json:"id"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
}
