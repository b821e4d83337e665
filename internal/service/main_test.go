package service

import (
	"testing"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/featureflags"
	"purpaws/internal/notifications"
	"purpaws/internal/repository"
	"purpaws/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	db    *gorm.DB
	repos *repository.Repositories
	blobs *testutil.MemoryStore
	clock *testClock
	cfg   *config.Config
	rdb   *redis.Client
	mr    *miniredis.Miniredis

	accounts      *AccountService
	reports       *ReportService
	adoption      *AdoptionService
	catalog       *CatalogService
	notifications *NotificationService
	admin         *AdminService
	job           *AdoptionJob
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "test-secret-that-is-long-enough-1234",
		JWTTTLHours:               168,
		AdminRegistrationPasscode: "open-sesame",
		AdoptionWaitingDays:       15,
		MaxStaffAdmins:            3,
		ImageMaxUploadSizeMB:      1,
	}
}

func newFixture(t *testing.T, flags ...string) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db := testutil.OpenDB(t)
	f := &fixture{
		db:    db,
		repos: repository.New(db),
		blobs: testutil.NewMemoryStore(),
		clock: &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		cfg:   testConfig(),
		rdb:   rdb,
		mr:    mr,
	}
	f.blobs.Seed("pet_images/fixture.png", testutil.PNG())

	var flagManager *featureflags.Manager
	if len(flags) > 0 {
		flagManager = featureflags.NewManager(flags[0])
	}
	now := f.clock.Now
	f.accounts = NewAccountService(f.repos, f.blobs, f.cfg, now)
	f.accounts.bcryptCost = bcrypt.MinCost
	f.reports = NewReportService(f.repos, f.blobs, f.cfg, now)
	f.adoption = NewAdoptionService(f.repos, f.blobs, f.cfg, now)
	f.catalog = NewCatalogService(f.repos, f.blobs, f.cfg, now)
	f.notifications = NewNotificationService(f.repos, notifications.NewNotifier(rdb))
	f.admin = NewAdminService(f.repos, f.blobs, f.adoption, f.cfg)
	f.job = NewAdoptionJob(f.repos, f.adoption, f.notifications, flagManager, now)
	return f
}

// waitingPeriod is the configured eligibility window.
func (f *fixture) waitingPeriod() time.Duration {
	return f.cfg.AdoptionWaitingPeriod()
}

func intPtr(v int) *int { return &v }
