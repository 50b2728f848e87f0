package main

import (
	"log"

	"mahoot/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migration runner for deploy pipelines.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	log.Println("✅ Migrations completed")
}
