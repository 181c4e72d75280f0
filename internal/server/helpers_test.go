package server

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestLoginURL(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/create/", "/auth/login/?next=/create/"},
		{"/posts/7/edit/", "/auth/login/?next=/posts/7/edit/"},
		{"/follow/?page=2", "/auth/login/?next=/follow/%3Fpage%3D2"},
		{"/a b/", "/auth/login/?next=/a%20b/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, loginURL(tt.next), tt.next)
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		ok   bool
	}{
		{"/follow/", true},
		{"/posts/1/?page=2", true},
		{"", false},
		{"follow/", false},
		{"//evil.example/", false},
		{"/\\evil.example/", false},
		{"https://evil.example/", false},
		{"javascript:alert(1)", false},
	}
	for _, tt := range tests {
		_, ok := safeNext(tt.next)
		assert.Equal(t, tt.ok, ok, tt.next)
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}
		return c.SendString(strconv.FormatUint(uint64(id), 10))
	})

	tests := []struct {
		target string
		status int
	}{
		{"/posts/12", fiber.StatusOK},
		{"/posts/abc", fiber.StatusNotFound},
		{"/posts/0", fiber.StatusNotFound},
		{"/posts/-3", fiber.StatusNotFound},
		{"/posts/99999999999", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
		assert.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, tt.target)
	}
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, "max-age=5", maxAge(5*time.Second))
}
