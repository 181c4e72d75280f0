package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func whoAmIApp(s *Sessions) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", s.Authenticate(), func(c *fiber.Ctx) error {
		uid, ok := c.Locals("userID").(uint)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(strconv.FormatUint(uint64(uid), 10))
	})
	return app
}

func whoAmI(t *testing.T, app *fiber.App, token string) (string, *http.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n]), resp
}

func TestSessions_IssueAndParse(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, nil, false)

	token, expires, err := s.Issue(42, "fp")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := s.Parse(context.Background(), token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
	assert.Equal(t, "fp", claims.Fingerprint)
	assert.NotEmpty(t, claims.ID)
}

func TestSessions_RejectsForeignTokens(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, nil, false)

	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "1",
			"iss": sessionIssuer,
			"aud": sessionAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	wrongSecret := sign("another-secret-another-secret-1234", jwt.SigningMethodHS256, base())
	expired := base()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	wrongIssuer := base()
	wrongIssuer["iss"] = "someone-else"
	wrongAlg := sign(testSecret, jwt.SigningMethodHS512, base())

	for name, tok := range map[string]string{
		"wrong secret":    wrongSecret,
		"expired":         sign(testSecret, jwt.SigningMethodHS256, expired),
		"wrong issuer":    sign(testSecret, jwt.SigningMethodHS256, wrongIssuer),
		"wrong algorithm": wrongAlg,
		"garbage":         "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Parse(context.Background(), tok)
			assert.Error(t, err)
		})
	}
}

func TestSessions_Authenticate(t *testing.T) {
	s := NewSessions(testSecret, time.Hour, nil, false)
	app := whoAmIApp(s)

	body, _ := whoAmI(t, app, "")
	assert.Equal(t, "anonymous", body)

	token, _, err := s.Issue(7, "fp")
	require.NoError(t, err)
	body, _ = whoAmI(t, app, token)
	assert.Equal(t, "7", body)

	body, resp := whoAmI(t, app, "broken")
	assert.Equal(t, "anonymous", body)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), SessionCookie+"=;")
}

func TestSessions_RevokeBlacklistsUntilExpiry(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	s := NewSessions(testSecret, time.Hour, rdb, false)
	app := whoAmIApp(s)

	token, _, err := s.Issue(9, "fp")
	require.NoError(t, err)
	claims, err := s.Parse(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(context.Background(), claims))
	assert.True(t, mr.Exists("blacklist:"+claims.ID))
	ttl := mr.TTL("blacklist:" + claims.ID)
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour)

	_, err = s.Parse(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	body, _ := whoAmI(t, app, token)
	assert.Equal(t, "anonymous", body)
}
