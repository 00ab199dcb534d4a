package response_models

import "github.com/google/uuid"

type TripResponse struct {
	ID          uuid.UUID `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartsAt   int64     `json:"departs_at"`
	PriceMinor  int64     `json:"price_minor"`
	Currency    string    `json:"currency"`
	SeatsLeft   int       `json:"seats_left"`
}
