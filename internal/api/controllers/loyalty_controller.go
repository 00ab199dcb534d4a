package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tripgo/internal/models/response_models"
	"tripgo/internal/services"
	"tripgo/pkg/utils"
)

type LoyaltyController struct {
	loyaltyService  services.LoyaltyServiceInterface
	checkoutService services.CheckoutServiceInterface
}

func NewLoyaltyController(loyaltyService services.LoyaltyServiceInterface, checkoutService services.CheckoutServiceInterface) *LoyaltyController {
	return &LoyaltyController{
		loyaltyService:  loyaltyService,
		checkoutService: checkoutService,
	}
}

func (l *LoyaltyController) GetBalance(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	available, err := l.loyaltyService.GetAvailablePoints(c.Request.Context(), accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	displayed, err := l.checkoutService.DisplayAvailablePoints(c.Request.Context(), accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.LoyaltyBalanceResponse{
		AvailablePoints: available,
		DisplayedPoints: displayed,
	}, "")
}

func (l *LoyaltyController) GetHistory(c *gin.Context) {
	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	entries, err := l.loyaltyService.GetHistory(c.Request.Context(), accountID, page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	out := make([]response_models.LoyaltyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, response_models.LoyaltyEntryResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Points:    e.Points,
			OrderID:   e.OrderID,
			ExpiresAt: e.ExpiresAt,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		})
	}
	utils.RespondSuccess(c, out, "")
}
