// Command seed populates the database with demo data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"purpaws/internal/config"
	"purpaws/internal/database"
	"purpaws/internal/seed"
	"purpaws/internal/storage"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create (the first two are staff)")
	numReports := flag.Int("reports", 60, "Number of pet reports to create")
	numListings := flag.Int("listings", 12, "Number of adoption listings to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Println("PurPaws database seeder")
	log.Printf("Target: %d users, %d reports, %d listings, clean=%v\n", *numUsers, *numReports, *numListings, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	summary, err := seed.Seed(ctx, db, blobs, seed.Options{
		NumUsers:    *numUsers,
		NumReports:  *numReports,
		NumListings: *numListings,
		ShouldClean: *shouldClean,
		WaitingDays: cfg.AdoptionWaitingDays,
		RandSeed:    *randSeed,
		Now:         time.Now().UTC(),
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d users (%d admins), %d reports, %d listings", summary.Users, summary.Admins, summary.Reports, summary.Listings)
	log.Printf("All seeded users share the password: %s", seed.DemoPassword)
}
