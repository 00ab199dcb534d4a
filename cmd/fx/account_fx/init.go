package account_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"tripgo/internal/api/controllers"
	"tripgo/internal/repositories"
	"tripgo/internal/services"
)

var Module = fx.Provide(
	provideAccountRepository,
	provideAccountService,
	provideAccountController,
)

func provideAccountRepository(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideAccountService(accountRepo repositories.AccountRepository, loyaltyRepo repositories.LoyaltyRepository) services.AccountServiceInterface {
	return services.NewAccountService(accountRepo, loyaltyRepo)
}

func provideAccountController(accountService services.AccountServiceInterface) *controllers.AccountController {
	return controllers.NewAccountController(accountService)
}
