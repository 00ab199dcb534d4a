package loyalty_fx

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
	provideLoyaltyConfig,
	provideLoyaltyRepository,
	provideLoyaltyService,
	provideLoyaltyController,
)

func provideLoyaltyConfig() services.LoyaltyConfig {
	cfg := services.DefaultLoyaltyConfig()
	if v, err := strconv.Atoi(os.Getenv("LOYALTY_EARN_PERCENT")); err == nil && v > 0 {
		cfg.EarnPercent = v
	}
	if v, err := strconv.Atoi(os.Getenv("LOYALTY_VALIDITY_DAYS")); err == nil && v > 0 {
		cfg.Validity = time.Duration(v) * 24 * time.Hour
	}
	return cfg
}

func provideLoyaltyRepository(db *gorm.DB) repositories.LoyaltyRepository {
	return repositories.NewLoyaltyRepository(db)
}

func provideLoyaltyService(db *gorm.DB, loyaltyRepo repositories.LoyaltyRepository, cfg services.LoyaltyConfig, logger *zap.Logger) services.LoyaltyServiceInterface {
	return services.NewLoyaltyService(db, loyaltyRepo, cfg, logger)
}

func provideLoyaltyController(loyaltyService services.LoyaltyServiceInterface, checkoutService services.CheckoutServiceInterface) *controllers.LoyaltyController {
	return controllers.NewLoyaltyController(loyaltyService, checkoutService)
}
