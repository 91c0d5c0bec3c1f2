package database

import (
	"fmt"
	"log"

	"marketplace/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// CollaboratorModels are owned by other marketplace modules; the affiliate
// engine migrates them only so it can run standalone.
func CollaboratorModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.PlatformSettings{},
	}
}

// AffiliateModels are owned by the affiliate engine
func AffiliateModels() []interface{} {
	return []interface{}{
		&models.ReferralCode{},
		&models.ReferralClick{},
		&models.OrderAttribution{},
		&models.Commission{},
		&models.Withdrawal{},
		&models.PaymentMethod{},
		&models.PaymentMethodOtp{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	return Migrate(DB)
}

// Migrate runs automatic migrations against db
func Migrate(db *gorm.DB) error {
	for _, model := range CollaboratorModels() {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Affiliate tables carry the ledger; a failure here is fatal
	for _, model := range AffiliateModels() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
