// Command admin manages root and staff accounts from the shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"purpaws/internal/bootstrap"
	"purpaws/internal/config"
	"purpaws/internal/database"
	"purpaws/internal/policy"
	"purpaws/internal/repository"
	"purpaws/internal/service"
	"purpaws/internal/storage"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin create-superuser -username <name> -email <email> [-password <pw>] [-reset]")
	fmt.Println("  go run ./cmd/admin promote <user_id>")
	fmt.Println("  go run ./cmd/admin list-admins")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch os.Args[1] {
	case "create-superuser":
		fs := flag.NewFlagSet("create-superuser", flag.ExitOnError)
		username := fs.String("username", "", "username of the root account")
		email := fs.String("email", "", "email of the root account")
		password := fs.String("password", os.Getenv("PURPAWS_ROOT_PASSWORD"), "password (defaults to $PURPAWS_ROOT_PASSWORD)")
		reset := fs.Bool("reset", false, "replace email and password when the account exists")
		_ = fs.Parse(os.Args[2:])

		user, created, err := bootstrap.EnsureSuperuser(ctx, db, bootstrap.SuperuserInput{
			Username: *username,
			Email:    *email,
			Password: *password,
		}, *reset)
		if err != nil {
			log.Fatalf("Failed to create superuser: %v", err)
		}
		if created {
			fmt.Printf("Created superuser %s (ID: %d)\n", user.Username, user.ID)
		} else {
			fmt.Printf("Granted superuser to existing account %s (ID: %d)\n", user.Username, user.ID)
		}

	case "promote":
		if len(os.Args) < 3 {
			usage()
		}
		id, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("Invalid user ID %q", os.Args[2])
		}
		blobs, err := storage.New(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize blob storage: %v", err)
		}
		repos := repository.New(db)
		adoption := service.NewAdoptionService(repos, blobs, cfg, service.SystemClock)
		admin := service.NewAdminService(repos, blobs, adoption, cfg)

		// The shell operator acts with root capability; the admin cap still applies.
		operator := policy.Actor{Capability: policy.CapabilitySuperuser}
		res, err := admin.Promote(ctx, operator, uint(id))
		if err != nil {
			log.Fatalf("Failed to promote user: %v", err)
		}
		if res.AlreadyElevated {
			fmt.Printf("%s is already an admin\n", res.User.Username)
			return
		}
		fmt.Printf("%s has been promoted to admin\n", res.User.Username)

	case "list-admins":
		admins, err := repository.New(db).Users.ListElevated(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch admins: %v", err)
		}
		if len(admins) == 0 {
			fmt.Println("No admins found")
			return
		}
		fmt.Printf("%-6s %-20s %-30s %s\n", "ID", "USERNAME", "EMAIL", "ROLE")
		for _, a := range admins {
			role := "staff"
			if a.IsSuperuser {
				role = "superuser"
			}
			fmt.Printf("%-6d %-20s %-30s %s\n", a.ID, a.Username, a.Email, role)
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
}
