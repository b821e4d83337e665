package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/storage"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumReports  int
	NumListings int
	ShouldClean bool
	SkipBcrypt  bool
	// WaitingDays is the adoption waiting period, used to age some Found reports past it.
	WaitingDays int
	RandSeed    int64
	Now         time.Time
}

// Summary counts what a run created.
type Summary struct {
	Users    int `json:"users"`
	Admins   int `json:"admins"`
	Reports  int `json:"reports"`
	Listings int `json:"listings"`
}

// Seed populates the database with demo users, reports in every moderation and eligibility
// state, and adoption listings. The first two users are staff.
func Seed(ctx context.Context, db *gorm.DB, blobs storage.Store, opts Options) (*Summary, error) {
	middleware.Logger.Info("starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("reports", opts.NumReports),
		slog.Int("listings", opts.NumListings),
	)
	if opts.NumUsers < 1 {
		return nil, fmt.Errorf("at least one user is required")
	}
	if opts.WaitingDays <= 0 {
		opts.WaitingDays = 15
	}

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			middleware.Logger.Warn("could not clear existing data, continuing", slog.String("error", err.Error()))
		}
	}

	f, err := NewFactory(db, blobs, opts)
	if err != nil {
		return nil, err
	}
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	var admins []*models.User
	for i := 0; i < opts.NumUsers; i++ {
		staff := i < 2
		u, err := f.CreateUser(func(u *models.User) { u.IsStaff = staff })
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, u)
		if staff {
			admins = append(admins, u)
		}
	}
	summary.Users = len(users)
	summary.Admins = len(admins)

	for i := 0; i < opts.NumReports; i++ {
		reporter := users[i%len(users)]
		daysAgo, override := reportShape(i, opts.WaitingDays)
		if _, err := f.CreateReport(ctx, reporter, daysAgo, override); err != nil {
			return nil, fmt.Errorf("failed to create reports: %w", err)
		}
		summary.Reports++
	}

	if len(admins) > 0 {
		for i := 0; i < opts.NumListings; i++ {
			if _, err := f.CreateListing(ctx, admins[i%len(admins)], i); err != nil {
				return nil, fmt.Errorf("failed to create listings: %w", err)
			}
			summary.Listings++
		}
	}

	middleware.Logger.Info("database seeding completed",
		slog.Int("users", summary.Users),
		slog.Int("reports", summary.Reports),
		slog.Int("listings", summary.Listings),
	)
	return summary, nil
}

// reportShape cycles reports through the states the UI needs to show: awaiting moderation,
// recently approved, eligible for adoption, and closed.
func reportShape(i, waitingDays int) (int, func(*models.PetReport)) {
	switch i % 4 {
	case 0:
		return 1, func(r *models.PetReport) { r.IsApproved = false }
	case 1:
		return 3, func(r *models.PetReport) { r.IsApproved = true }
	case 2:
		return waitingDays + 2, func(r *models.PetReport) {
			r.IsApproved = true
			r.ReportType = models.ReportTypeFound
		}
	default:
		return waitingDays + 10, func(r *models.PetReport) {
			r.IsApproved = true
			r.Status = models.ReportStatusClosed
		}
	}
}

func clearData(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	sql := `TRUNCATE TABLE notifications, pets_for_adoption, pet_reports, profiles, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}
