package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tripgo/internal/models/db_models"
	"tripgo/internal/models/response_models"
	"tripgo/internal/services"
	"tripgo/pkg/utils"
)

type TripController struct {
	tripService services.TripServiceInterface
}

func NewTripController(tripService services.TripServiceInterface) *TripController {
	return &TripController{tripService: tripService}
}

func (t *TripController) ListTrips(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	trips, err := t.tripService.ListTrips(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	out := make([]response_models.TripResponse, 0, len(trips))
	for _, trip := range trips {
		out = append(out, toTripResponse(trip))
	}
	utils.RespondSuccess(c, out, "")
}

func (t *TripController) GetTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid trip id")
		return
	}

	trip, err := t.tripService.GetTrip(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, toTripResponse(*trip), "")
}

func toTripResponse(trip db_models.Trip) response_models.TripResponse {
	return response_models.TripResponse{
		ID:          trip.ID,
		Origin:      trip.Origin,
		Destination: trip.Destination,
		DepartsAt:   trip.DepartsAt,
		PriceMinor:  trip.PriceMinor,
		Currency:    trip.Currency,
		SeatsLeft:   trip.SeatsLeft,
	}
}
