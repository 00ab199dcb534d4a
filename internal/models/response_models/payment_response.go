package response_models

import "github.com/google/uuid"

type InitiatePaymentResponse struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	Status           string    `json:"status"`
	RedirectURL      string    `json:"redirect_url,omitempty"`
	InstructionsSent bool      `json:"instructions_sent,omitempty"`
}
