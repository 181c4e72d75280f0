package server

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

const viewerLocal = "viewer"

// viewer returns the signed-in user of the request, or nil.
func viewer(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(viewerLocal).(*models.User)
	return u
}

// viewerScope partitions cached pages between anonymous and signed-in viewers.
// Signed-in pages embed the CSRF token of the browser that rendered them, so
// their scope also carries a digest of that token.
func viewerScope(c *fiber.Ctx) string {
	u := viewer(c)
	if u == nil {
		return "anon"
	}
	scope := "u" + strconv.FormatUint(uint64(u.ID), 10)
	if token, _ := c.Locals(csrfContextKey).(string); token != "" {
		sum := sha1.Sum([]byte(token))
		scope += "-" + hex.EncodeToString(sum[:6])
	}
	return scope
}

// loadViewer resolves the session user. A session issued for an older
// password or for a deleted account is dropped and the request continues
// anonymously.
func (s *Server) loadViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return c.Next()
		}

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil && !models.IsNotFound(err) {
			return err
		}
		claims, _ := c.Locals("session").(*middleware.SessionClaims)
		if user == nil || claims == nil || claims.Fingerprint != s.authService.Fingerprint(user) {
			s.sessions.ClearCookie(c)
			c.Locals("userID", nil)
			c.Locals("session", nil)
			c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, nil))
			return c.Next()
		}

		c.Locals(viewerLocal, user)
		return c.Next()
	}
}

// LoginRequired sends anonymous visitors to the login page, remembering
// where they were headed.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if viewer(c) != nil {
			return c.Next()
		}
		return c.Redirect(loginURL(c.OriginalURL()), fiber.StatusFound)
	}
}

// loginURL is /auth/login/?next=<next> with every character but the path
// separator percent-encoded.
func loginURL(next string) string {
	escaped := url.QueryEscape(next)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return "/auth/login/?next=" + escaped
}

// safeNext accepts only local absolute paths as a post-login target.
func safeNext(next string) (string, bool) {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return next, true
}

// parseID extracts a route parameter by name as a positive uint. Anything
// else cannot name an object and is a 404.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map) error {
	return s.renderStatus(c, fiber.StatusOK, name, data)
}

// renderStatus executes a page template with the values every page needs.
func (s *Server) renderStatus(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["viewer"] = viewer(c)
	data["csrf_token"], _ = c.Locals(csrfContextKey).(string)
	data["path"] = c.Path()
	data["year"] = time.Now().Year()

	var buf bytes.Buffer
	if err := s.pages.RenderTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// formValues reads the named fields of a submitted form.
func formValues(c *fiber.Ctx, names ...string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = c.FormValue(name)
	}
	return values
}

// uploadedImage returns the file sent in field, or nil when the input was
// left empty.
func uploadedImage(c *fiber.Ctx, field string) (*service.UploadImageInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not a multipart body, so no file either.
		return nil, nil
	}
	files := form.File[field]
	if len(files) == 0 || (files[0].Filename == "" && files[0].Size == 0) {
		return nil, nil
	}

	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.UploadImageInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// bodyLimit leaves room for the largest image plus the other form fields.
func bodyLimit(cfg *config.Config) int {
	limit := cfg.MaxUploadBytes()
	if limit <= 0 {
		limit = service.DefaultImageMaxUploadSizeMB * 1024 * 1024
	}
	return int(limit) + 1024*1024
}
