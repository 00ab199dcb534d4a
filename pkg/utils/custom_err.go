package utils

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrTripNotFound    = errors.New("trip not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidPage     = errors.New("invalid page parameter")
	ErrInvalidPageSize = errors.New("invalid page size parameter")

	ErrOrderNotPayable      = errors.New("order is not in a payable state")
	ErrSessionNotPending    = errors.New("checkout session is not pending")
	ErrSessionExpired       = errors.New("checkout session has expired")
	ErrNotEnoughSeats       = errors.New("not enough seats left on trip")
	ErrInsufficientPoints   = errors.New("insufficient loyalty points")
	ErrEarnAlreadyRecorded  = errors.New("earn already recorded for order")
	ErrSpendAlreadyRecorded = errors.New("spend already recorded for order")

	ErrDatabaseError      = errors.New("database error")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
