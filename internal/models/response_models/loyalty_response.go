package response_models

import "github.com/google/uuid"

type LoyaltyBalanceResponse struct {
	AvailablePoints int64 `json:"available_points"`
	DisplayedPoints int64 `json:"displayed_points"` // available minus pending checkout reservations
}

type LoyaltyEntryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Points    int64      `json:"points"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	ExpiresAt *int64     `json:"expires_at,omitempty"`
	Note      string     `json:"note,omitempty"`
	CreatedAt int64      `json:"created_at"`
}
