package server

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/models"
	"purpaws/internal/service"
	"purpaws/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoundDogBecomesAdoptable(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	staff := testutil.CreateUser(t, ts.db, "staff", testutil.Staff)
	adminTok := ts.token(staff)

	resp := ts.do(http.MethodPost, "/api/petreports", ts.token(alice), foundDogForm(t, ts))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	report := decode[models.PetReport](t, resp)

	ts.advance(24 * time.Hour)
	resp = ts.do(http.MethodPost, fmt.Sprintf("/api/admin/petreports/%d/approve", report.ID), adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	draftPath := fmt.Sprintf("/api/admin/adoptions/eligible/%d/draft", report.ID)
	convertPath := fmt.Sprintf("/api/admin/adoptions/eligible/%d/convert", report.ID)
	conversion := map[string]any{
		"name":        "Buddy",
		"age":         3,
		"gender":      "Male",
		"description": "Loves long walks.",
	}

	// One second short of the waiting period: nothing to convert yet.
	ts.advance(14*24*time.Hour - time.Second)
	resp = ts.do(http.MethodGet, "/api/admin/adoptions/eligible", adminTok, nil)
	assert.Empty(t, decode[[]models.PetReport](t, resp))
	resp = ts.do(http.MethodPost, convertPath, adminTok, conversion)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ts.advance(time.Second)
	resp = ts.do(http.MethodGet, "/api/admin/adoptions/eligible", adminTok, nil)
	eligible := decode[[]models.PetReport](t, resp)
	require.Len(t, eligible, 1)
	assert.Equal(t, report.ID, eligible[0].ID)

	resp = ts.do(http.MethodGet, draftPath, adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft := decode[service.ConversionInput](t, resp)
	assert.Equal(t, "Friendly Dog", draft.Name)
	assert.Equal(t, models.GenderMale, draft.Gender)

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, convertPath, ts.token(alice), conversion).StatusCode)

	resp = ts.do(http.MethodPost, convertPath, adminTok, conversion)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	listing := decode[models.PetForAdoption](t, resp)
	assert.Equal(t, "Buddy", listing.Name)
	assert.Equal(t, 3, listing.Age)
	assert.Equal(t, models.AdoptionStatusAvailable, listing.Status)
	assert.Equal(t, staff.ID, listing.ListerID)
	assert.NotEqual(t, report.PetImage, listing.Image)

	var stored models.PetReport
	require.NoError(t, ts.db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusClosed, stored.Status)

	// A second conversion finds nothing eligible.
	resp = ts.do(http.MethodPost, convertPath, adminTok, conversion)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/petsforadoption", "", nil)
	catalog := decode[[]models.PetForAdoption](t, resp)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Buddy", catalog[0].Name)

	// Both images are served independently.
	for _, key := range []string{report.PetImage, listing.Image} {
		resp = ts.do(http.MethodGet, "/media/"+key, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, key)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, testutil.PNG(), data)
	}
}

func TestConvertReport_Validation(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	staff := testutil.CreateUser(t, ts.db, "staff", testutil.Staff)
	report := testutil.CreateReport(t, ts.db, alice, testutil.Approved,
		testutil.ReportedAt(ts.now.Add(-16*24*time.Hour)))
	path := fmt.Sprintf("/api/admin/adoptions/eligible/%d/convert", report.ID)

	resp := ts.do(http.MethodPost, path, ts.token(staff), map[string]any{
		"name": "Buddy", "age": -1, "description": "Sweet.",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "age", decode[models.ErrorResponse](t, resp).Details)

	var stored models.PetReport
	require.NoError(t, ts.db.First(&stored, report.ID).Error)
	assert.Equal(t, models.ReportStatusOpen, stored.Status)
}

func TestListingMaintenance(t *testing.T) {
	ts := newTestServer(t)
	staff := testutil.CreateUser(t, ts.db, "staff", testutil.Staff)
	alice := testutil.CreateUser(t, ts.db, "alice")
	tok := ts.token(staff)

	body := form(t, map[string]string{
		"name":        "Mittens",
		"age":         "2",
		"gender":      "Female",
		"pet_type":    "Cat",
		"color":       "Grey",
		"description": "Independent but affectionate.",
	}, "image", testutil.PNG())
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodPost, "/api/admin/petsforadoption", ts.token(alice), body).StatusCode)

	body = form(t, map[string]string{
		"name":        "Mittens",
		"age":         "2",
		"gender":      "Female",
		"pet_type":    "Cat",
		"color":       "Grey",
		"description": "Independent but affectionate.",
	}, "image", testutil.PNG())
	resp := ts.do(http.MethodPost, "/api/admin/petsforadoption", tok, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	listing := decode[models.PetForAdoption](t, resp)

	resp = ts.do(http.MethodGet, "/api/petsforadoption", "", nil)
	assert.Len(t, decode[[]models.PetForAdoption](t, resp), 1)
	assert.True(t, ts.mr.Exists(cache.CatalogKey))

	statusPath := fmt.Sprintf("/api/admin/petsforadoption/%d/status", listing.ID)
	resp = ts.do(http.MethodPatch, statusPath, tok, map[string]string{"status": "Sold"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPatch, statusPath, tok, map[string]string{"status": "Adopted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.AdoptionStatusAdopted, decode[models.PetForAdoption](t, resp).Status)

	resp = ts.do(http.MethodGet, "/api/petsforadoption", "", nil)
	assert.Empty(t, decode[[]models.PetForAdoption](t, resp))
	resp = ts.do(http.MethodGet, fmt.Sprintf("/api/petsforadoption/%d", listing.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	deletePath := fmt.Sprintf("/api/admin/petsforadoption/%d", listing.ID)
	require.Equal(t, http.StatusOK, ts.do(http.MethodDelete, deletePath, tok, nil).StatusCode)
	assert.False(t, ts.blobs.Has(listing.Image))
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, deletePath, tok, nil).StatusCode)
}

func TestGetMedia(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/media/pet_images/fixture.png", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "immutable")

	for _, path := range []string{
		"/media/pet_images/missing.png",
		"/media/secrets/fixture.png",
		"/media/pet_images/..%2f..%2fetc%2fpasswd",
	} {
		resp = ts.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
