package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-that-is-long-enough"

type testServer struct {
	*Server
	t     *testing.T
	app   *fiber.App
	db    *gorm.DB
	blobs *testutil.MemoryStore
	rdb   *redis.Client
	mr    *miniredis.Miniredis
	now   time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db := testutil.OpenDB(t)
	blobs := testutil.NewMemoryStore()
	blobs.Seed("pet_images/fixture.png", testutil.PNG())

	cfg := &config.Config{
		JWTSecret:                 testSecret,
		JWTTTLHours:               168,
		Port:                      "0",
		Env:                       "test",
		AllowedOrigins:            "http://localhost:5173",
		AdminRegistrationPasscode: "open-sesame",
		AdoptionWaitingDays:       15,
		MaxStaffAdmins:            3,
		ImageMaxUploadSizeMB:      1,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, blobs)
	require.NoError(t, err)

	ts := &testServer{
		Server: srv,
		t:      t,
		db:     db,
		blobs:  blobs,
		rdb:    rdb,
		mr:     mr,
		now:    time.Now().UTC().Truncate(time.Microsecond),
	}
	srv.now = func() time.Time { return ts.now }
	srv.wireServices()
	ts.app = srv.App()
	return ts
}

// advance moves the service clock; tokens are still signed against wall time.
func (ts *testServer) advance(d time.Duration) {
	ts.now = ts.now.Add(d)
}

func (ts *testServer) token(u *models.User) string {
	ts.t.Helper()
	tok, _, err := middleware.IssueToken(testSecret, u.ID, u.Username, time.Hour, time.Now())
	require.NoError(ts.t, err)
	return tok
}

// do sends a request; body may be nil, an io.Reader, or any JSON-encodable value.
func (ts *testServer) do(method, path, token string, body any) *http.Response {
	ts.t.Helper()
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case *multipartBody:
		reader = bytes.NewReader(b.buf.Bytes())
		contentType = b.contentType
	case io.Reader:
		reader = b
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
		contentType = fiber.MIMEApplicationJSON
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(ts.t, err)
	ts.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type multipartBody struct {
	buf         bytes.Buffer
	contentType string
}

// form builds a multipart body from fields plus an optional file part.
func form(t *testing.T, fields map[string]string, fileField string, file []byte) *multipartBody {
	t.Helper()
	mb := &multipartBody{}
	w := multipart.NewWriter(&mb.buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "photo.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	mb.contentType = w.FormDataContentType()
	return mb
}
