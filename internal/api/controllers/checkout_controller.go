package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripgo/internal/models/db_models"
	"tripgo/internal/models/request_models"
	"tripgo/internal/models/response_models"
	"tripgo/internal/services"
	"tripgo/pkg/utils"
)

type CheckoutController struct {
	checkoutService services.CheckoutServiceInterface
}

func NewCheckoutController(checkoutService services.CheckoutServiceInterface) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

func (ch *CheckoutController) StartCheckout(c *gin.Context) {
	var request request_models.StartCheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	session, err := ch.checkoutService.StartCheckout(c.Request.Context(), accountID, request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{
		"session_id":      session.ID,
		"expires_at":      session.ExpiresAt,
		"reserved_points": session.ReservedPoints,
	}, "Checkout started")
}

func (ch *CheckoutController) SubmitOrder(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid session id")
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	order, err := ch.checkoutService.SubmitOrder(c.Request.Context(), accountID, sessionID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, toOrderResponse(order), "Order submitted")
}

func (ch *CheckoutController) CancelSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid session id")
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	if err := ch.checkoutService.CancelSession(c.Request.Context(), accountID, sessionID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Checkout cancelled")
}

func (ch *CheckoutController) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid order id")
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	order, err := ch.checkoutService.GetOrder(c.Request.Context(), accountID, orderID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, toOrderResponse(order), "")
}

func toOrderResponse(order *db_models.Order) response_models.OrderResponse {
	out := response_models.OrderResponse{
		ID:         order.ID,
		Number:     order.Number,
		Status:     string(order.Status),
		TotalMinor: order.TotalMinor,
		Currency:   order.Currency,
	}
	for _, it := range order.Items {
		out.Items = append(out.Items, response_models.OrderItemResponse{
			TripID:        it.TripID,
			PassengerName: it.PassengerName,
			Seats:         it.Seats,
			PriceMinor:    it.PriceMinor,
		})
	}
	for _, p := range order.Payments {
		out.Payments = append(out.Payments, response_models.PaymentSummary{
			ID:          p.ID,
			Provider:    string(p.Provider),
			Status:      string(p.Status),
			AmountMinor: p.AmountMinor,
			Currency:    p.Currency,
		})
	}
	return out
}
