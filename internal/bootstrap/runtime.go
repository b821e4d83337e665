// Package bootstrap wires the process-wide runtime: database, Redis and the development
// root account.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/database"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureDevRoot creates the DEV_ROOT_* superuser in development.
	EnsureDevRoot bool
}

// InitRuntime connects to the database (and replica when configured) and Redis.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if _, err := database.ConnectRead(cfg); err != nil {
		// The primary serves reads when the replica is down.
		middleware.Logger.Warn("read replica unavailable", slog.String("error", err.Error()))
	}

	// Init Redis (may result in nil client if unreachable)
	r := cache.InitRedis(cfg.RedisURL)

	if opts.EnsureDevRoot {
		if err := ensureDevRootAdmin(ctx, cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
		}
	}
	return db, r, nil
}

// SuperuserInput are the credentials of a root account.
type SuperuserInput struct {
	Username string
	Email    string
	Password string
}

// EnsureSuperuser creates the account or, when it exists, grants it superuser capability.
// Existing credentials are replaced only when resetCredentials is set. It reports whether
// a new account was created.
func EnsureSuperuser(ctx context.Context, db *gorm.DB, in SuperuserInput, resetCredentials bool) (*models.User, bool, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := validation.First(
		validation.ValidateUsername(in.Username),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
	); err != nil {
		return nil, false, err
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash root password: %w", err)
	}

	var root models.User
	created := false
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("username = ?", in.Username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username:    in.Username,
				Email:       in.Email,
				Password:    string(hashedPassword),
				IsStaff:     true,
				IsSuperuser: true,
			}
			if err := tx.Omit("Profile").Create(&root).Error; err != nil {
				return err
			}
			created = true
			return tx.Create(&models.Profile{UserID: root.ID, Role: models.ProfileRoleAdmin}).Error
		case findErr != nil:
			return findErr
		}

		updates := map[string]any{"is_staff": true, "is_superuser": true}
		if resetCredentials {
			updates["email"] = in.Email
			updates["password"] = string(hashedPassword)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(updates).Error; err != nil {
			return err
		}
		root.IsStaff, root.IsSuperuser = true, true
		return tx.Model(&models.Profile{}).Where("user_id = ?", root.ID).Update("role", models.ProfileRoleAdmin).Error
	})
	if err != nil {
		return nil, false, err
	}
	cache.InvalidateUser(ctx, root.ID)
	return &root, created, nil
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "purpaws_root"
	}
	email := strings.TrimSpace(cfg.DevRootEmail)
	if email == "" {
		email = "root@purpaws.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	root, _, err := EnsureSuperuser(ctx, db, SuperuserInput{
		Username: username,
		Email:    email,
		Password: cfg.DevRootPassword,
	}, false)
	if err != nil {
		return err
	}
	middleware.Logger.Info("development root admin bootstrap ensured",
		slog.Uint64("user_id", uint64(root.ID)),
		slog.String("username", root.Username),
	)
	return nil
}
