// Command main runs the database seeder for Gatherly.
package main

import (
	"flag"
	"log"

	"gatherly/internal/config"
	"gatherly/internal/database"
	"gatherly/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numEvents := flag.Int("events", 15, "Number of event series to create")
	perEvent := flag.Int("occurrences", 4, "Occurrences per event series")
	randSeed := flag.Int64("seed", 0, "Faker seed (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d events, clean=%v\n", *numUsers, *numEvents, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *randSeed)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(seed.Options{
		NumUsers:            *numUsers,
		NumEvents:           *numEvents,
		OccurrencesPerEvent: *perEvent,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Mint a token for a seeded user with: go run ./cmd/devtoken -subject <auth_subject>")
}
