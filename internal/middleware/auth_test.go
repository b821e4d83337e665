package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func signClaims(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	token, issued, err := IssueToken(testSecret, 42, "rex", time.Hour, now)
	require.NoError(t, err)
	require.NotEmpty(t, issued.JTI)

	got, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), got.UserID)
	assert.Equal(t, "rex", got.Username)
	assert.Equal(t, issued.JTI, got.JTI)
	assert.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, time.Second)
}

func TestParseToken_Rejects(t *testing.T) {
	now := time.Now()
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "7",
			"iss": TokenIssuer,
			"aud": TokenAudience,
			"exp": now.Add(time.Hour).Unix(),
			"iat": now.Unix(),
		}
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{"empty", func() string { return "" }},
		{"garbage", func() string { return "not-a-jwt" }},
		{"wrong secret", func() string { return signClaims(t, "other-secret", base()) }},
		{"expired", func() string {
			c := base()
			c["exp"] = now.Add(-time.Minute).Unix()
			return signClaims(t, testSecret, c)
		}},
		{"wrong issuer", func() string {
			c := base()
			c["iss"] = "someone-else"
			return signClaims(t, testSecret, c)
		}},
		{"wrong audience", func() string {
			c := base()
			c["aud"] = "other-client"
			return signClaims(t, testSecret, c)
		}},
		{"missing subject", func() string {
			c := base()
			delete(c, "sub")
			return signClaims(t, testSecret, c)
		}},
		{"non numeric subject", func() string {
			c := base()
			c["sub"] = "abc"
			return signClaims(t, testSecret, c)
		}},
		{"missing exp", func() string {
			c := base()
			delete(c, "exp")
			return signClaims(t, testSecret, c)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testSecret, tt.token())
			assert.Error(t, err)
		})
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, tt.want, string(buf[:n]), tt.header)
	}
}
