package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"purpaws/internal/models"
	"purpaws/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foundDogForm(t *testing.T, ts *testServer) *multipartBody {
	return form(t, map[string]string{
		"report_type":  "Found",
		"pet_type":     "Dog",
		"color":        "Brown",
		"gender":       "Male",
		"location":     "Riverside Park",
		"contact_info": "555-0100",
		"injury":       "Scraped paw",
		"event_date":   ts.now.Add(-24 * time.Hour).Format("2006-01-02"),
	}, "pet_image", testutil.PNG())
}

func TestSubmitReport(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")

	resp := ts.do(http.MethodPost, "/api/petreports", ts.token(alice), foundDogForm(t, ts))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	report := decode[models.PetReport](t, resp)
	assert.Equal(t, models.ReportStatusOpen, report.Status)
	assert.False(t, report.IsApproved)
	assert.Equal(t, alice.ID, report.ReporterID)
	assert.Equal(t, "Scraped paw", report.Injury)
	assert.True(t, ts.blobs.Has(report.PetImage))

	resp = ts.do(http.MethodPost, "/api/petreports", "", foundDogForm(t, ts))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitReport_Validation(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	tomorrow := ts.now.Add(48 * time.Hour).Format("2006-01-02")

	base := func() map[string]string {
		return map[string]string{
			"report_type":  "Lost",
			"pet_type":     "Cat",
			"color":        "Black",
			"location":     "Elm Street",
			"contact_info": "555-0199",
			"event_date":   ts.now.Add(-time.Hour).Format(time.RFC3339),
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		noImage bool
		field   string
	}{
		{"bad type", func(f map[string]string) { f["report_type"] = "Stolen" }, false, "report_type"},
		{"non numeric age", func(f map[string]string) { f["age"] = "two" }, false, "age"},
		{"negative age", func(f map[string]string) { f["age"] = "-1" }, false, "age"},
		{"future event", func(f map[string]string) { f["event_date"] = tomorrow }, false, "event_date"},
		{"unparseable event", func(f map[string]string) { f["event_date"] = "last tuesday" }, false, "event_date"},
		{"missing color", func(f map[string]string) { delete(f, "color") }, false, "color"},
		{"missing image", func(map[string]string) {}, true, "pet_image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := base()
			tt.mutate(fields)
			body := form(t, fields, "pet_image", testutil.PNG())
			if tt.noImage {
				body = form(t, fields, "", nil)
			}
			resp := ts.do(http.MethodPost, "/api/petreports", ts.token(alice), body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.field, decode[models.ErrorResponse](t, resp).Details)
		})
	}

	var count int64
	require.NoError(t, ts.db.Model(&models.PetReport{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestModerationFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	bob := testutil.CreateUser(t, ts.db, "bob")
	staff := testutil.CreateUser(t, ts.db, "staff", testutil.Staff)

	resp := ts.do(http.MethodPost, "/api/petreports", ts.token(alice), foundDogForm(t, ts))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	report := decode[models.PetReport](t, resp)
	detail := fmt.Sprintf("/api/petreports/%d", report.ID)
	approve := fmt.Sprintf("/api/admin/petreports/%d/approve", report.ID)

	// Unapproved: hidden from the dashboard and from other users.
	resp = ts.do(http.MethodGet, "/api/petreports", "", nil)
	assert.Empty(t, decode[[]models.PetReport](t, resp))
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, detail, ts.token(alice), nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, detail, ts.token(bob), nil).StatusCode)
	assert.Len(t, decode[[]models.PetReport](t, ts.do(http.MethodGet, "/api/petreports/mine", ts.token(alice), nil)), 1)

	resp = ts.do(http.MethodGet, "/api/admin/petreports/pending", ts.token(staff), nil)
	assert.Len(t, decode[[]models.PetReport](t, resp), 1)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, approve, ts.token(bob), nil).StatusCode)

	resp = ts.do(http.MethodPost, approve, ts.token(staff), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[map[string]any](t, resp)
	assert.Equal(t, "Report approved", first["message"])
	assert.NotContains(t, first, "warning")

	resp = ts.do(http.MethodPost, approve, ts.token(staff), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "This report has already been approved", decode[map[string]any](t, resp)["warning"])

	resp = ts.do(http.MethodGet, "/api/petreports?type=Found", "", nil)
	assert.Len(t, decode[[]models.PetReport](t, resp), 1)
	resp = ts.do(http.MethodGet, "/api/petreports?type=Lost", "", nil)
	assert.Empty(t, decode[[]models.PetReport](t, resp))
	resp = ts.do(http.MethodGet, "/api/petreports?type=Stray", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, detail, ts.token(bob), nil).StatusCode)
}

func TestRejectReport(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	staff := testutil.CreateUser(t, ts.db, "staff", testutil.Staff)

	resp := ts.do(http.MethodPost, "/api/petreports", ts.token(alice), foundDogForm(t, ts))
	report := decode[models.PetReport](t, resp)
	reject := fmt.Sprintf("/api/admin/petreports/%d/reject", report.ID)

	resp = ts.do(http.MethodPost, reject, ts.token(staff), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, ts.blobs.Has(report.PetImage))

	resp = ts.do(http.MethodPost, reject, ts.token(staff), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/admin/petreports/abc/reject", ts.token(staff), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, resp).Error)
}
