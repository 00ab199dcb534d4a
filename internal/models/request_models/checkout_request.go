package request_models

import "github.com/google/uuid"

type CheckoutItemRequest struct {
	TripID        uuid.UUID `json:"trip_id" binding:"required"`
	PassengerName string    `json:"passenger_name" binding:"required"`
	Seats         int       `json:"seats" binding:"required,min=1"`
}

type StartCheckoutRequest struct {
	Items         []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
	ReservePoints int64                 `json:"reserve_points" binding:"min=0"`
}
