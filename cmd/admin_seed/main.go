package main

import (
	"fmt"
	"log"
	"os"

	"smartcoffee/internal/config"
	"smartcoffee/internal/repositories"
	"smartcoffee/internal/services/auth"
	"smartcoffee/internal/utils"
)

// admin_seed prepares a fresh install: it migrates and seeds the database
// and prints the admin secrets to paste into the environment.
func main() {
	config.LoadEnv()

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal("ADMIN_PASSWORD must be set in environment")
	}

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := repositories.Open(databaseURL, repositories.DefaultDBConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get SQL DB instance: %v", err)
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close database connection: %v", err)
			}
		}()

		if err := repositories.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		if err := repositories.Seed(db); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	} else {
		log.Println("ℹ️ DATABASE_URL not set, skipping database seed")
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)

	if os.Getenv("JWT_SECRET") == "" {
		secret, err := utils.GenerateSecret(32)
		if err != nil {
			log.Fatal("Failed to generate JWT secret:", err)
		}
		fmt.Printf("JWT_SECRET=%s\n", secret)
	}

	log.Println("✅ Admin setup complete")
}
