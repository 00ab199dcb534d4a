package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"tripgo/cmd/fx/account_fx"
	"tripgo/cmd/fx/checkout_fx"
	"tripgo/cmd/fx/db_fx"
	"tripgo/cmd/fx/logger_fx"
	"tripgo/cmd/fx/loyalty_fx"
	"tripgo/cmd/fx/mail_fx"
	"tripgo/cmd/fx/payment_fx"
	"tripgo/cmd/fx/sweeper_fx"
	"tripgo/cmd/fx/trip_fx"
	"tripgo/internal/api/controllers"
	"tripgo/internal/infra"
	"tripgo/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading config from environment")
	}

	app := fx.New(
		logger_fx.Module,
		db_fx.Module,
		mail_fx.Module,
		account_fx.Module,
		trip_fx.Module,
		loyalty_fx.Module,
		checkout_fx.Module,
		payment_fx.Module,
		sweeper_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(infra.AutoMigrate),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				log.Printf("Starting HTTP server at :%s", port)
				if err := engine.Run(":" + port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	accountController *controllers.AccountController,
	tripController *controllers.TripController,
	checkoutController *controllers.CheckoutController,
	loyaltyController *controllers.LoyaltyController,
	paymentController *controllers.PaymentController) *gin.Engine {

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.MetricsMiddleware())

	RegisterRoutes(r, accountController, tripController, checkoutController, loyaltyController, paymentController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	tripController *controllers.TripController,
	checkoutController *controllers.CheckoutController,
	loyaltyController *controllers.LoyaltyController,
	paymentController *controllers.PaymentController) {

	r.GET("/metrics", middleware.MetricsHandler())

	accountGroup := r.Group("/accounts")
	accountGroup.POST("/signup", accountController.SignUp)
	accountGroup.POST("/login", accountController.Login)

	tripGroup := r.Group("/trips")
	tripGroup.GET("", tripController.ListTrips)
	tripGroup.GET("/:id", tripController.GetTrip)

	checkoutGroup := r.Group("/checkout", middleware.JWTAuthMiddleware())
	checkoutGroup.POST("/start", checkoutController.StartCheckout)
	checkoutGroup.POST("/:id/submit", checkoutController.SubmitOrder)
	checkoutGroup.POST("/:id/cancel", checkoutController.CancelSession)

	orderGroup := r.Group("/orders", middleware.JWTAuthMiddleware())
	orderGroup.GET("/:id", checkoutController.GetOrder)

	loyaltyGroup := r.Group("/loyalty", middleware.JWTAuthMiddleware())
	loyaltyGroup.GET("/balance", loyaltyController.GetBalance)
	loyaltyGroup.GET("/history", loyaltyController.GetHistory)

	paymentGroup := r.Group("/payments")
	paymentGroup.POST("/initiate", middleware.JWTAuthMiddleware(), paymentController.InitiatePayment)
	paymentGroup.POST("/webhook", paymentController.HandleWebhook)
}
