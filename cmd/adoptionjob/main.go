// Command adoptionjob runs one pass of the adoption job and prints its summary as JSON.
// Schedule it with cron when the API server's built-in scheduler is disabled.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"purpaws/internal/bootstrap"
	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/featureflags"
	"purpaws/internal/notifications"
	"purpaws/internal/repository"
	"purpaws/internal/service"
	"purpaws/internal/storage"
)

func usage() {
	fmt.Println("Usage: go run ./cmd/adoptionjob <run|scan|auto-list>")
	fmt.Println("  run        use the mode selected by FEATURE_FLAGS")
	fmt.Println("  scan       notify admins of eligible found reports")
	fmt.Println("  auto-list  convert eligible found reports into listings")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	repos := repository.New(db)
	var notifier *notifications.Notifier
	if rdb != nil {
		notifier = notifications.NewNotifier(rdb)
	}
	adoption := service.NewAdoptionService(repos, blobs, cfg, service.SystemClock)
	job := service.NewAdoptionJob(repos, adoption,
		service.NewNotificationService(repos, notifier),
		featureflags.NewManager(cfg.FeatureFlags),
		service.SystemClock)

	var mode service.JobMode
	switch os.Args[1] {
	case "run":
		mode = job.Mode()
	case "scan":
		mode = service.JobModeScan
	case "auto-list":
		mode = service.JobModeAutoList
	default:
		usage()
	}

	summary, err := job.RunMode(ctx, mode)
	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	}
	switch {
	case errors.Is(err, cache.ErrLockHeld):
		log.Println("adoption job already running elsewhere; nothing to do")
	case err != nil:
		log.Fatalf("Adoption job failed: %v", err)
	}
}
