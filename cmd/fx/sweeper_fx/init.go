package sweeper_fx

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tripgo/internal/repositories"
	"tripgo/internal/services"
)

var Module = fx.Options(
	fx.Provide(provideSweeperService),
	fx.Invoke(registerSweeper),
)

func provideSweeperService(db *gorm.DB, orderRepo repositories.OrderRepository, tripRepo repositories.TripRepository, loyaltyRepo repositories.LoyaltyRepository, loyalty services.LoyaltyServiceInterface, logger *zap.Logger) *services.SweeperService {
	cfg := services.DefaultSweeperConfig()
	if v, err := strconv.Atoi(os.Getenv("SWEEPER_INTERVAL_MINUTES")); err == nil && v > 0 {
		cfg.Interval = time.Duration(v) * time.Minute
	}
	if v, err := strconv.Atoi(os.Getenv("RESERVATION_TTL_MINUTES")); err == nil && v > 0 {
		cfg.ReservationTTL = time.Duration(v) * time.Minute
	}
	return services.NewSweeperService(db, orderRepo, tripRepo, loyaltyRepo, loyalty, cfg, logger)
}

func registerSweeper(lc fx.Lifecycle, sweeper *services.SweeperService) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go sweeper.Run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}
