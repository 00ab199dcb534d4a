package infra

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tripgo/internal/models/db_models"
)

func InitPostgresql() *gorm.DB {
	dsn := os.Getenv("POSTGRES_URL")

	connectionPool, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		log.Fatal("Error connecting to database")
	}

	return connectionPool
}

// AutoMigrate is a dev convenience behind AUTO_MIGRATE=true; schema
// management in deployed environments happens outside this process.
func AutoMigrate(db *gorm.DB) error {
	if os.Getenv("AUTO_MIGRATE") != "true" {
		return nil
	}
	return db.AutoMigrate(
		&db_models.Account{},
		&db_models.Trip{},
		&db_models.CheckoutSession{},
		&db_models.Order{},
		&db_models.OrderItem{},
		&db_models.Payment{},
		&db_models.LoyaltyAccount{},
		&db_models.LoyaltyTransaction{},
	)
}

func ClosePostgresql(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database instance: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}
}
