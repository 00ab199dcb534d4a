package trip_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"tripgo/internal/api/controllers"
	"tripgo/internal/repositories"
	"tripgo/internal/services"
)

var Module = fx.Provide(
	provideTripRepository,
	provideTripService,
	provideTripController,
)

func provideTripRepository(db *gorm.DB) repositories.TripRepository {
	return repositories.NewTripRepository(db)
}

func provideTripService(tripRepo repositories.TripRepository) services.TripServiceInterface {
	return services.NewTripService(tripRepo)
}

func provideTripController(tripService services.TripServiceInterface) *controllers.TripController {
	return controllers.NewTripController(tripService)
}
