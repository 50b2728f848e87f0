// Package testutil provides the shared Postgres test database setup.
package testutil

import (
	"fmt"
	"os"
	"testing"

	"mahoot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB connects to the test database, migrates the schema, and
// wipes all rows. Tests are skipped when the database is unavailable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	host := getEnv("TEST_DB_HOST", "localhost")
	port := getEnv("TEST_DB_PORT", "5432")
	user := getEnv("TEST_DB_USER", "postgres")
	password := os.Getenv("TEST_DB_PASSWORD")
	name := getEnv("TEST_DB_NAME", "mahoot_test")

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, name)
	if password != "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, name)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("Skipping test - PostgreSQL test database not available: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	// Clean slate per test
	db.Exec("DELETE FROM post_views")
	db.Exec("DELETE FROM daily_stats")
	db.Exec("DELETE FROM posts")
	db.Exec("DELETE FROM followees")
	db.Exec("DELETE FROM user_preferences")

	return db
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
