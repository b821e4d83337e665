// Package seed provides helpers to create demo data for the application database.
// These helpers are intended for development and testing only.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"purpaws/internal/models"
	"purpaws/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Purpaws-demo1!"

var petTypes = []string{"Dog", "Cat", "Rabbit", "Bird", "Guinea Pig"}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	blobs storage.Store
	fake  *gofakeit.Faker
	now   time.Time
	hash  string
}

// NewFactory creates a Factory bound to db and blobs. A zero seed picks a random one.
func NewFactory(db *gorm.DB, blobs storage.Store, opts Options) (*Factory, error) {
	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC().Truncate(time.Microsecond)
	}
	return &Factory{
		db:    db,
		blobs: blobs,
		fake:  gofakeit.New(opts.RandSeed),
		now:   now,
		hash:  string(hash),
	}, nil
}

// CreateUser persists a user with a profile. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", f.fake.Username(), f.fake.Number(100, 999)),
		Email:    f.fake.Email(),
		Password: f.hash,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Omit("Profile").Create(user).Error; err != nil {
		return nil, err
	}

	age := f.fake.Number(18, 80)
	profile := &models.Profile{
		UserID: user.ID,
		Role:   models.ProfileRoleUser,
		Age:    &age,
		City:   f.fake.City(),
		Phone:  f.fake.Numerify("555-###-####"),
	}
	if user.IsElevated() {
		profile.Role = models.ProfileRoleAdmin
	}
	if err := f.db.Create(profile).Error; err != nil {
		return nil, err
	}
	user.Profile = profile
	return user, nil
}

// CreateReport persists a report by reporter, reported daysAgo days before the factory clock.
func (f *Factory) CreateReport(ctx context.Context, reporter *models.User, daysAgo int, overrides ...func(*models.PetReport)) (*models.PetReport, error) {
	petType := f.fake.RandomString(petTypes)
	reportType := models.ReportTypeFound
	if f.fake.Bool() {
		reportType = models.ReportTypeLost
	}
	reported := f.now.Add(-time.Duration(daysAgo) * 24 * time.Hour).Add(-time.Duration(f.fake.Number(0, 600)) * time.Minute)

	report := &models.PetReport{
		ReportType:   reportType,
		Status:       models.ReportStatusOpen,
		ReporterID:   reporter.ID,
		Gender:       models.PetGender(f.fake.RandomString([]string{"Male", "Female", "Unknown"})),
		PetType:      petType,
		Breed:        f.breed(petType),
		Color:        f.fake.SafeColor(),
		Location:     fmt.Sprintf("%s, %s", f.fake.Street(), f.fake.City()),
		ContactInfo:  reporter.Email,
		DateReported: reported,
		EventDate:    reported.Add(-time.Duration(f.fake.Number(0, 72)) * time.Hour),
	}
	if reportType == models.ReportTypeLost {
		report.Name = f.fake.PetName()
		age := f.fake.Number(0, 15)
		report.Age = &age
		if f.fake.Number(1, 4) == 1 {
			report.HealthInformation = "Needs daily medication."
		}
	} else if f.fake.Number(1, 4) == 1 {
		report.Injury = "Slight limp on the front left leg."
	}
	for _, override := range overrides {
		override(report)
	}

	key, err := f.petImage(ctx, storage.PrefixPetImages)
	if err != nil {
		return nil, err
	}
	report.PetImage = key
	if err := f.db.Omit("Reporter").Create(report).Error; err != nil {
		_ = f.blobs.Delete(ctx, key)
		return nil, err
	}
	return report, nil
}

// CreateListing persists an Available listing by lister, listed daysAgo days back.
func (f *Factory) CreateListing(ctx context.Context, lister *models.User, daysAgo int, overrides ...func(*models.PetForAdoption)) (*models.PetForAdoption, error) {
	petType := f.fake.RandomString(petTypes)
	listing := &models.PetForAdoption{
		Name:        f.fake.PetName(),
		Age:         f.fake.Number(0, 12),
		Gender:      models.PetGender(f.fake.RandomString([]string{"Male", "Female"})),
		PetType:     petType,
		Breed:       f.breed(petType),
		Color:       f.fake.SafeColor(),
		Description: f.fake.Sentence(14),
		ListerID:    lister.ID,
		Status:      models.AdoptionStatusAvailable,
		DateListed:  f.now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
	}
	for _, override := range overrides {
		override(listing)
	}

	key, err := f.petImage(ctx, storage.PrefixAdoptionImages)
	if err != nil {
		return nil, err
	}
	listing.Image = key
	if err := f.db.Omit("Lister").Create(listing).Error; err != nil {
		_ = f.blobs.Delete(ctx, key)
		return nil, err
	}
	return listing, nil
}

func (f *Factory) breed(petType string) string {
	switch petType {
	case "Dog":
		return f.fake.Dog()
	case "Cat":
		return f.fake.Cat()
	default:
		return ""
	}
}

// petImage stores a small solid-colour PNG so seeded records have a real blob to serve.
func (f *Factory) petImage(ctx context.Context, prefix string) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := color.RGBA{
		R: uint8(f.fake.Number(0, 255)),
		G: uint8(f.fake.Number(0, 255)),
		B: uint8(f.fake.Number(0, 255)),
		A: 255,
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return f.blobs.Put(ctx, prefix, &buf, int64(buf.Len()), "image/png")
}
