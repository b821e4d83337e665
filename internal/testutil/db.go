// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"testing"
	"time"

	"purpaws/internal/database"
	"purpaws/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plaintext every fixture user is created with.
const Password = "Sup3r-secret!"

var passwordHash []byte

func init() {
	var err error
	passwordHash, err = bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
}

// OpenDB returns a migrated in-memory sqlite database on a single connection, so
// transactions serialize the way row locks would on postgres.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// UserOpt customizes CreateUser.
type UserOpt func(*models.User)

// Staff marks the fixture as a non-super admin.
func Staff(u *models.User) { u.IsStaff = true }

// Superuser marks the fixture as root.
func Superuser(u *models.User) { u.IsStaff, u.IsSuperuser = true, true }

// CreateUser inserts a user and profile with the fixture password.
func CreateUser(t testing.TB, db *gorm.DB, username string, opts ...UserOpt) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(passwordHash),
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, db.Omit("Profile").Create(u).Error)

	role := models.ProfileRoleUser
	if u.IsElevated() {
		role = models.ProfileRoleAdmin
	}
	p := &models.Profile{UserID: u.ID, Role: role}
	require.NoError(t, db.Create(p).Error)
	u.Profile = p
	return u
}

// ReportOpt customizes CreateReport.
type ReportOpt func(*models.PetReport)

// Approved marks the report as moderated.
func Approved(r *models.PetReport) { r.IsApproved = true }

// Lost switches the report type.
func Lost(r *models.PetReport) { r.ReportType = models.ReportTypeLost }

// ReportedAt sets date_reported.
func ReportedAt(at time.Time) ReportOpt {
	return func(r *models.PetReport) { r.DateReported = at.UTC() }
}

// WithStatus sets the stored status.
func WithStatus(s models.ReportStatus) ReportOpt {
	return func(r *models.PetReport) { r.Status = s }
}

// CreateReport inserts an Open, unapproved Found dog report by reporter.
func CreateReport(t testing.TB, db *gorm.DB, reporter *models.User, opts ...ReportOpt) *models.PetReport {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	r := &models.PetReport{
		ReportType:   models.ReportTypeFound,
		Status:       models.ReportStatusOpen,
		ReporterID:   reporter.ID,
		Gender:       models.GenderUnknown,
		PetType:      "Dog",
		Color:        "Brown",
		Location:     "Riverside Park",
		ContactInfo:  "555-0100",
		PetImage:     "pet_images/fixture.png",
		DateReported: now,
		EventDate:    now.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(r)
	}
	require.NoError(t, db.Omit("Reporter").Create(r).Error)
	return r
}

// CreateListing inserts an Available listing by lister.
func CreateListing(t testing.TB, db *gorm.DB, lister *models.User, name string, listedAt time.Time) *models.PetForAdoption {
	t.Helper()
	l := &models.PetForAdoption{
		Name:        name,
		Age:         2,
		Gender:      models.GenderFemale,
		PetType:     "Cat",
		Color:       "Black",
		Image:       "adoption_images/fixture.png",
		Description: "Calm and friendly.",
		ListerID:    lister.ID,
		Status:      models.AdoptionStatusAvailable,
		DateListed:  listedAt.UTC(),
	}
	require.NoError(t, db.Omit("Lister").Create(l).Error)
	return l
}
