package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

var loginQuota = Quota{Name: "login", Max: 3, Window: time.Minute}

func TestConsume_Bypass(t *testing.T) {
	for _, env := range []string{"", "test", "development"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("APP_ENV", env)
			allowed, _, err := Consume(context.Background(), nil, loginQuota, "ip:1")
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestConsume_NilRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	allowed, _, err := Consume(context.Background(), nil, loginQuota, "ip:1")
	assert.ErrorIs(t, err, ErrNoLimiterStore)
	assert.False(t, allowed)
}

func TestConsume_CountsWithinWindow(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	rdb, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := Consume(ctx, rdb, loginQuota, "ip:1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, retry, err := Consume(ctx, rdb, loginQuota, "ip:1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.True(t, retry > 0 && retry <= time.Minute, "retry %s", retry)

	ttl := mr.TTL("rl:login:ip:1")
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	allowed, _, err = Consume(ctx, rdb, loginQuota, "ip:2")
	require.NoError(t, err)
	assert.True(t, allowed, "ids are counted separately")

	mr.FastForward(time.Minute + time.Second)
	allowed, _, err = Consume(ctx, rdb, loginQuota, "ip:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimit_Middleware(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	rdb, _ := setupTestRedis(t)

	app := fiber.New()
	app.All("/login", RateLimit(rdb, Quota{Name: "login", Max: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// GET is never counted.
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	app := fiber.New()
	app.Post("/y", RateLimit(nil, Quota{Name: "y", Max: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/y", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
