package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger("production", &buf)
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func TestNewLogger_AddsContextValues(t *testing.T) {
	buf := captureLogger(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "rid-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(5))
	Logger.InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "rid-1", entry["request_id"])
	assert.Equal(t, float64(5), entry["user_id"])
}

func TestStructuredLogger(t *testing.T) {
	buf := captureLogger(t)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger("/static/"))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(*fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/static/app.css", func(c *fiber.Ctx) error { return c.SendString("body{}") })

	for _, path := range []string{"/ok", "/missing", "/static/app.css"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var ok, missing map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &ok))
	require.NoError(t, json.Unmarshal(lines[1], &missing))

	assert.Equal(t, "request processed", ok["msg"])
	assert.Equal(t, float64(200), ok["status"])
	assert.NotEmpty(t, ok["request_id"])

	assert.Equal(t, "request rejected", missing["msg"])
	assert.Equal(t, float64(404), missing["status"])
}
