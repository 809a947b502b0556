package main

import (
	"log"
	"os"

	"tugende-backend/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migration runner for deployments that apply schema changes
// before rolling the server (the server also migrates on boot).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	if os.Getenv("SEED") == "true" {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("User seeding failed: %v", err)
		}
		if err := database.SeedBusTrips(db); err != nil {
			log.Fatalf("Bus trip seeding failed: %v", err)
		}
		log.Println("Seed data applied")
	}
}
