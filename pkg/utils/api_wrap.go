package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func traceID(c *gin.Context) string {
	if v, ok := c.Get("trace_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Status:  "success",
		Code:    http.StatusOK,
		Message: message,
		TraceID: traceID(c),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: traceID(c),
	})
}

// HandleServiceError maps service sentinel errors onto HTTP status codes.
// Anything unrecognized is treated as an internal fault.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrTripNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrPaymentNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidPage),
		errors.Is(err, ErrInvalidPageSize),
		errors.Is(err, ErrInvalidCredentials):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailAlreadyExists),
		errors.Is(err, ErrOrderNotPayable),
		errors.Is(err, ErrSessionNotPending),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrNotEnoughSeats),
		errors.Is(err, ErrInsufficientPoints),
		errors.Is(err, ErrEarnAlreadyRecorded),
		errors.Is(err, ErrSpendAlreadyRecorded):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrGatewayUnavailable):
		RespondError(c, http.StatusBadGateway, "payment gateway unavailable")
	default:
		log.Printf("Unknown error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
