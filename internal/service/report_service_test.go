package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"purpaws/internal/models"
	"purpaws/internal/policy"
	"purpaws/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foundDogInput(eventDate time.Time) SubmitReportInput {
	return SubmitReportInput{
		ReportType:        models.ReportTypeFound,
		PetType:           "Dog",
		Color:             "Brown",
		Location:          "Riverside Park",
		ContactInfo:       "alice@example.com",
		HealthInformation: "needs insulin",
		Injury:            "limping",
		EventDate:         eventDate,
		Image:             bytes.NewReader(testutil.PNG()),
	}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	yesterday := f.clock.Now().Add(-24 * time.Hour)

	tests := []struct {
		name  string
		edit  func(*SubmitReportInput)
		field string
	}{
		{"bad type", func(in *SubmitReportInput) { in.ReportType = "Stolen" }, "report_type"},
		{"missing pet type", func(in *SubmitReportInput) { in.PetType = " " }, "pet_type"},
		{"missing color", func(in *SubmitReportInput) { in.Color = "" }, "color"},
		{"missing location", func(in *SubmitReportInput) { in.Location = "" }, "location"},
		{"missing contact", func(in *SubmitReportInput) { in.ContactInfo = "" }, "contact_info"},
		{"missing event date", func(in *SubmitReportInput) { in.EventDate = time.Time{} }, "event_date"},
		{"future event date", func(in *SubmitReportInput) { in.EventDate = f.clock.Now().Add(48 * time.Hour) }, "event_date"},
		{"missing image", func(in *SubmitReportInput) { in.Image = nil }, "pet_image"},
		{"not an image", func(in *SubmitReportInput) { in.Image = bytes.NewReader([]byte("hello")) }, "pet_image"},
		{"bad gender", func(in *SubmitReportInput) { in.Gender = "Other" }, "gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := foundDogInput(yesterday)
			tt.edit(&in)
			_, err := f.reports.Submit(ctx, alice.ID, in)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
	assert.Zero(t, countRows(t, f, &models.PetReport{}))
}

func TestSubmit_CreatesUnapprovedOpenReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")

	report, err := f.reports.Submit(ctx, alice.ID, foundDogInput(f.clock.Now().Add(-time.Hour)))
	require.NoError(t, err)
	assert.False(t, report.IsApproved)
	assert.Equal(t, models.ReportStatusOpen, report.Status)
	assert.Equal(t, models.GenderUnknown, report.Gender)
	assert.Equal(t, f.clock.Now(), report.DateReported)
	assert.Empty(t, report.HealthInformation)
	assert.Equal(t, "limping", report.Injury)
	assert.True(t, f.blobs.Has(report.PetImage))

	public, err := f.reports.ListPublic(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, public)

	mine, err := f.reports.ListMine(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestSubmit_BlobFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	alice := testutil.CreateUser(t, f.db, "alice")
	f.blobs.FailPut = true

	_, err := f.reports.Submit(context.Background(), alice.ID, foundDogInput(f.clock.Now()))
	assert.True(t, models.HasCode(err, models.CodeInternal))
	assert.Zero(t, countRows(t, f, &models.PetReport{}))
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	admin := policy.ActorFor(testutil.CreateUser(t, f.db, "admin", testutil.Staff))
	report := testutil.CreateReport(t, f.db, alice)

	_, err := f.reports.Approve(ctx, policy.ActorFor(alice), report.ID)
	assert.True(t, models.HasCode(err, models.CodePermissionDenied))

	res, err := f.reports.Approve(ctx, admin, report.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyApproved)
	assert.True(t, res.Report.IsApproved)

	res, err = f.reports.Approve(ctx, admin, report.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyApproved)

	_, err = f.reports.Approve(ctx, admin, 999)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	public, err := f.reports.ListPublic(ctx, "Found")
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, report.ID, public[0].ID)

	_, err = f.reports.ListPublic(ctx, "Stolen")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestReject_DeletesReportAndReleasesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	adminUser := testutil.CreateUser(t, f.db, "admin", testutil.Staff)
	report := testutil.CreateReport(t, f.db, alice)
	_, err := f.notifications.Notify(ctx, adminUser.ID, &report.ID, "look at this")
	require.NoError(t, err)

	require.NoError(t, f.reports.Reject(ctx, policy.ActorFor(adminUser), report.ID))
	assert.Zero(t, countRows(t, f, &models.PetReport{}))
	assert.Zero(t, countRows(t, f, &models.Notification{}))
	assert.False(t, f.blobs.Has(report.PetImage))

	err = f.reports.Reject(ctx, policy.ActorFor(adminUser), report.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestGet_HidesUnapprovedReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.db, "alice")
	bob := testutil.CreateUser(t, f.db, "bob")
	admin := testutil.CreateUser(t, f.db, "admin", testutil.Staff)
	report := testutil.CreateReport(t, f.db, alice)

	_, err := f.reports.Get(ctx, policy.ActorFor(bob), report.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = f.reports.Get(ctx, policy.ActorFor(alice), report.ID)
	assert.NoError(t, err)
	_, err = f.reports.Get(ctx, policy.ActorFor(admin), report.ID)
	assert.NoError(t, err)

	pending, err := f.reports.ListPending(ctx, policy.ActorFor(admin))
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
