package main

import (
	"context"
	"log"
	"os"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	settings := repository.NewSettingsRepository(db, cfg.Affiliate.DefaultMinimumWithdrawal)
	if err := settings.EnsureDefaults(context.Background()); err != nil {
		log.Fatalf("Failed to initialise platform settings: %v", err)
	}

	// Read migration file
	path := "migrations/001_affiliate_core.sql"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	// Execute migration
	log.Printf("Applying migration: %s", path)
	if err := db.Exec(string(sqlBytes)).Error; err != nil {
		log.Fatalf("Failed to apply migration: %v", err)
	}

	log.Println("Migration applied successfully")
}
