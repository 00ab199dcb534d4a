package payment_fx

import (
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tripgo/internal/api/controllers"
	"tripgo/internal/gateway"
	"tripgo/internal/repositories"
	"tripgo/internal/services"
)

var Module = fx.Provide(
	provideGatewayClient,
	providePaymentService,
	providePaymentController,
)

func provideGatewayClient(logger *zap.Logger) gateway.Client {
	cfg := gateway.Config{
		MerchantID: os.Getenv("GATEWAY_MERCHANT_ID"),
		PosID:      os.Getenv("GATEWAY_POS_ID"),
		CRCKey:     os.Getenv("GATEWAY_CRC_KEY"),
		APIKey:     os.Getenv("GATEWAY_API_KEY"),
		BaseURL:    os.Getenv("GATEWAY_BASE_URL"),
		ReturnURL:  os.Getenv("GATEWAY_RETURN_URL"),
		Timeout:    10 * time.Second,
	}
	return gateway.NewClient(cfg, logger)
}

func providePaymentService(db *gorm.DB, gw gateway.Client, orderRepo repositories.OrderRepository, mail services.IMailService, loyaltyCfg services.LoyaltyConfig, logger *zap.Logger) services.PaymentServiceInterface {
	cfg := services.PaymentConfig{
		BankDetails: os.Getenv("BANK_TRANSFER_DETAILS"),
		Loyalty:     loyaltyCfg,
	}
	return services.NewPaymentService(db, gw, orderRepo, mail, cfg, logger)
}

func providePaymentController(paymentService services.PaymentServiceInterface) *controllers.PaymentController {
	return controllers.NewPaymentController(paymentService)
}
