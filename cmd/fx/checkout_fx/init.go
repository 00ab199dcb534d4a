package checkout_fx

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tripgo/internal/api/controllers"
	"tripgo/internal/repositories"
	"tripgo/internal/services"
)

var Module = fx.Provide(
	provideOrderRepository,
	provideCheckoutService,
	provideCheckoutController,
)

func provideOrderRepository(db *gorm.DB) repositories.OrderRepository {
	return repositories.NewOrderRepository(db)
}

func provideCheckoutService(db *gorm.DB, tripRepo repositories.TripRepository, orderRepo repositories.OrderRepository, loyaltyRepo repositories.LoyaltyRepository, logger *zap.Logger) services.CheckoutServiceInterface {
	cfg := services.DefaultCheckoutConfig()
	if v, err := strconv.Atoi(os.Getenv("CHECKOUT_SESSION_TTL_MINUTES")); err == nil && v > 0 {
		cfg.SessionTTL = time.Duration(v) * time.Minute
	}
	return services.NewCheckoutService(db, tripRepo, orderRepo, loyaltyRepo, cfg, logger)
}

func provideCheckoutController(checkoutService services.CheckoutServiceInterface) *controllers.CheckoutController {
	return controllers.NewCheckoutController(checkoutService)
}
