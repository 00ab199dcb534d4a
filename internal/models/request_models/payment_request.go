package request_models

import "github.com/google/uuid"

type InitiatePaymentRequest struct {
	OrderID  uuid.UUID `json:"order_id" binding:"required"`
	Provider string    `json:"provider" binding:"required,oneof=gateway transfer"`
	ForceNew bool      `json:"force_new"`
}
