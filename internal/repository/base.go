// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"purpaws/internal/database"
	"purpaws/internal/models"

	"gorm.io/gorm"
)

// Repositories bundles the per-model repositories over one database handle. Inside
// Transaction every repository is bound to the same transaction.
type Repositories struct {
	db   *gorm.DB
	inTx bool

	Users         UserRepository
	Reports       PetReportRepository
	Listings      AdoptionRepository
	Notifications NotificationRepository
}

// New returns repositories over the primary database.
func New(db *gorm.DB) *Repositories {
	return bind(db, false)
}

func bind(db *gorm.DB, inTx bool) *Repositories {
	return &Repositories{
		db:            db,
		inTx:          inTx,
		Users:         &userRepository{db: db, inTx: inTx},
		Reports:       &petReportRepository{db: db, inTx: inTx},
		Listings:      &adoptionRepository{db: db, inTx: inTx},
		Notifications: &notificationRepository{db: db, inTx: inTx},
	}
}

// Transaction runs fn with repositories bound to a single transaction. A returned error
// rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx, true))
	})
}

// DB exposes the underlying handle for health checks.
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// reader picks the replica for reads outside transactions.
func reader(primary *gorm.DB, inTx bool) *gorm.DB {
	if inTx {
		return primary
	}
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}

func notFound(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; sqlite reports "UNIQUE constraint failed".
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
