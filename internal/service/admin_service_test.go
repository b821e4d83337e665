package service

import (
	"context"
	"testing"
	"time"

	"purpaws/internal/models"
	"purpaws/internal/policy"
	"purpaws/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := policy.ActorFor(testutil.CreateUser(t, f.db, "root", testutil.Superuser))
	bob := testutil.CreateUser(t, f.db, "bob", testutil.Staff)
	carol := testutil.CreateUser(t, f.db, "carol")

	t.Run("staff cannot promote", func(t *testing.T) {
		_, err := f.admin.Promote(ctx, policy.ActorFor(bob), carol.ID)
		assert.True(t, models.HasCode(err, models.CodePermissionDenied))
	})

	t.Run("already elevated is a no-op", func(t *testing.T) {
		res, err := f.admin.Promote(ctx, root, bob.ID)
		require.NoError(t, err)
		assert.True(t, res.AlreadyElevated)
	})

	t.Run("promotes a regular user", func(t *testing.T) {
		res, err := f.admin.Promote(ctx, root, carol.ID)
		require.NoError(t, err)
		assert.False(t, res.AlreadyElevated)
		assert.True(t, res.User.IsStaff)

		got, err := f.repos.Users.GetWithProfile(ctx, carol.ID)
		require.NoError(t, err)
		assert.True(t, got.IsStaff)
		require.NotNil(t, got.Profile)
		assert.Equal(t, models.ProfileRoleAdmin, got.Profile.Role)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.admin.Promote(ctx, root, 9999)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestPromote_RespectsAdminCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := policy.ActorFor(testutil.CreateUser(t, f.db, "root", testutil.Superuser))
	testutil.CreateUser(t, f.db, "staff1", testutil.Staff)
	testutil.CreateUser(t, f.db, "staff2", testutil.Staff)
	testutil.CreateUser(t, f.db, "staff3", testutil.Staff)
	dave := testutil.CreateUser(t, f.db, "dave")

	_, err := f.admin.Promote(ctx, root, dave.ID)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeCapacityExceeded))

	count, err := f.repos.Users.CountStaffAdmins(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	got, err := f.repos.Users.GetWithProfile(ctx, dave.ID)
	require.NoError(t, err)
	assert.False(t, got.IsStaff)
}

func TestRemove_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.CreateUser(t, f.db, "root", testutil.Superuser)
	bob := testutil.CreateUser(t, f.db, "bob", testutil.Staff)
	eve := testutil.CreateUser(t, f.db, "eve", testutil.Staff)
	carol := testutil.CreateUser(t, f.db, "carol")

	tests := []struct {
		name   string
		actor  *models.User
		target uint
		code   string
	}{
		{"staff cannot remove superuser", bob, root.ID, models.CodePermissionDenied},
		{"staff cannot remove staff", bob, eve.ID, models.CodePermissionDenied},
		{"no self removal", bob, bob.ID, models.CodePermissionDenied},
		{"regular user cannot remove", carol, bob.ID, models.CodePermissionDenied},
		{"superuser cannot remove itself", root, root.ID, models.CodePermissionDenied},
		{"unknown user", root, 9999, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.admin.Remove(ctx, policy.ActorFor(tt.actor), tt.target)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, tt.code), err)
		})
	}

	count, err := f.repos.Users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	require.NoError(t, f.admin.Remove(ctx, policy.ActorFor(bob), carol.ID))
	_, err = f.repos.Users.GetWithProfile(ctx, carol.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestRemove_DeletesOwnedData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rootUser := testutil.CreateUser(t, f.db, "root", testutil.Superuser)
	bob := testutil.CreateUser(t, f.db, "bob", testutil.Staff)
	carol := testutil.CreateUser(t, f.db, "carol")

	report := testutil.CreateReport(t, f.db, bob, testutil.Approved)
	require.NoError(t, f.db.Model(report).Update("pet_image", "pet_images/bob.png").Error)
	f.blobs.Seed("pet_images/bob.png", testutil.PNG())

	listing := testutil.CreateListing(t, f.db, bob, "Mittens", f.clock.Now())
	f.blobs.Seed(listing.Image, testutil.PNG())

	_, err := f.notifications.Notify(ctx, rootUser.ID, &report.ID, "about bob's report")
	require.NoError(t, err)
	_, err = f.notifications.Notify(ctx, bob.ID, nil, "for bob")
	require.NoError(t, err)
	carolReport := testutil.CreateReport(t, f.db, carol)
	_, err = f.notifications.Notify(ctx, rootUser.ID, &carolReport.ID, "about carol's report")
	require.NoError(t, err)

	require.NoError(t, f.admin.Remove(ctx, policy.ActorFor(rootUser), bob.ID))

	_, err = f.repos.Users.GetWithProfile(ctx, bob.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	_, err = f.repos.Reports.GetByID(ctx, report.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	_, err = f.repos.Listings.GetByID(ctx, listing.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	var profiles int64
	require.NoError(t, f.db.Model(&models.Profile{}).Where("user_id = ?", bob.ID).Count(&profiles).Error)
	assert.Zero(t, profiles)

	rootNotes, err := f.notifications.List(ctx, rootUser.ID, false)
	require.NoError(t, err)
	require.Len(t, rootNotes, 1)
	assert.Equal(t, "about carol's report", rootNotes[0].Message)

	assert.False(t, f.blobs.Has("pet_images/bob.png"))
	assert.False(t, f.blobs.Has(listing.Image))
	assert.True(t, f.blobs.Has("pet_images/fixture.png"))

	_, err = f.repos.Reports.GetByID(ctx, carolReport.ID)
	assert.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminUser := testutil.CreateUser(t, f.db, "admin", testutil.Staff)
	alice := testutil.CreateUser(t, f.db, "alice")
	old := f.clock.Now().Add(-f.waitingPeriod() - time.Hour)

	testutil.CreateReport(t, f.db, alice, testutil.Approved, testutil.ReportedAt(old))
	testutil.CreateReport(t, f.db, alice, testutil.Approved, testutil.ReportedAt(f.clock.Now()))
	testutil.CreateReport(t, f.db, alice)
	testutil.CreateReport(t, f.db, alice, testutil.Lost, testutil.Approved)
	testutil.CreateReport(t, f.db, alice, testutil.WithStatus(models.ReportStatusClosed), testutil.Approved)
	testutil.CreateListing(t, f.db, adminUser, "Mittens", f.clock.Now())

	_, err := f.admin.Dashboard(ctx, policy.ActorFor(alice))
	assert.True(t, models.HasCode(err, models.CodePermissionDenied))

	stats, err := f.admin.Dashboard(ctx, policy.ActorFor(adminUser))
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.AvailableListings)
	assert.EqualValues(t, 1, stats.OpenLostReports)
	assert.EqualValues(t, 3, stats.OpenFoundReports)
	assert.EqualValues(t, 1, stats.PendingModeration)
	assert.EqualValues(t, 1, stats.EligibleForListing)
}

func TestListUsersAndAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.CreateUser(t, f.db, "root", testutil.Superuser)
	testutil.CreateUser(t, f.db, "bob", testutil.Staff)
	alice := testutil.CreateUser(t, f.db, "alice")

	users, err := f.admin.ListUsers(ctx, policy.ActorFor(root))
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	_, err = f.admin.ListUsers(ctx, policy.ActorFor(alice))
	assert.True(t, models.HasCode(err, models.CodePermissionDenied))

	admins, err := f.admin.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "root", admins[0].Username)
}
