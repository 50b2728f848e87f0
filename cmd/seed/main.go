package main

import (
	"fmt"
	"log"
	"time"

	"mahoot/internal/catalog"
	"mahoot/internal/database"
	"mahoot/internal/followees"
	"mahoot/internal/preferences"

	"github.com/joho/godotenv"
)

// Seeds a demo viewer with a handful of followees and a synthetic post
// backlog, so the feed endpoints can be exercised without waiting for
// Jetstream traffic.
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

	db := database.DB
	prefsService := preferences.NewService(db)
	followeeService := followees.NewService(db, prefsService, nil)
	catalogService := catalog.NewService(db)

	viewer := "did:plc:dev-viewer"
	if _, err := prefsService.GetOrCreate(viewer); err != nil {
		log.Fatal("Failed to create viewer preferences:", err)
	}
	log.Printf("✅ Created viewer %s", viewer)

	authors := []struct {
		did   string
		posts int
		quota *int
	}{
		{"did:plc:seed-prolific", 40, nil},
		{"did:plc:seed-regular", 12, nil},
		{"did:plc:seed-quiet", 3, nil},
		{"did:plc:seed-amped", 20, intPtr(15)},
		{"did:plc:seed-muted", 10, intPtr(0)},
	}

	now := time.Now().UTC()
	for _, author := range authors {
		if _, err := followeeService.AddOrUpdate(viewer, author.did, author.quota, ""); err != nil {
			log.Fatalf("Failed to add followee %s: %v", author.did, err)
		}

		for i := 0; i < author.posts; i++ {
			uri := fmt.Sprintf("at://%s/app.bsky.feed.post/seed%04d", author.did, i)
			postedAt := now.Add(-time.Duration(i) * time.Hour)
			if err := catalogService.OnPostCreated(uri, fmt.Sprintf("bafyseed%04d", i), author.did, postedAt, postedAt); err != nil {
				log.Fatalf("Failed to seed post %s: %v", uri, err)
			}
		}

		log.Printf("✅ Seeded followee %s with %d posts", author.did, author.posts)
	}

	log.Println("✅ Seed completed")
}

func intPtr(n int) *int {
	return &n
}
