package server

import (
	"strconv"
	"time"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const cacheHeader = "X-Cache"

// cachePage serves a stored copy of the page when one exists and stores
// successful renders otherwise. Entries expire after the cache TTL and are
// never invalidated by writes.
func (s *Server) cachePage(prefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.pageCache.Enabled() || (c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead) {
			observability.PageCacheRequests.WithLabelValues(prefix, "bypass").Inc()
			return c.Next()
		}

		ctx := c.UserContext()
		key := cache.PageKey(prefix, viewerScope(c), c.OriginalURL())

		page, ok, err := s.pageCache.Get(ctx, key)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "page cache read failed", "key", key, "error", err)
			observability.PageCacheRequests.WithLabelValues(prefix, "error").Inc()
			return c.Next()
		}
		if ok {
			observability.PageCacheRequests.WithLabelValues(prefix, "hit").Inc()
			c.Set(cacheHeader, "HIT")
			c.Set(fiber.HeaderCacheControl, maxAge(s.pageCache.TTL()))
			c.Set(fiber.HeaderContentType, page.ContentType)
			return c.Status(page.Status).Send(page.Body)
		}

		observability.PageCacheRequests.WithLabelValues(prefix, "miss").Inc()
		if err := c.Next(); err != nil {
			return err
		}

		c.Set(cacheHeader, "MISS")
		c.Set(fiber.HeaderCacheControl, maxAge(s.pageCache.TTL()))
		resp := c.Response()
		if resp.StatusCode() != fiber.StatusOK {
			return nil
		}

		stored := &cache.CachedPage{
			Status:      fiber.StatusOK,
			ContentType: string(resp.Header.ContentType()),
			Body:        append([]byte(nil), resp.Body()...),
			StoredAt:    time.Now(),
		}
		if err := s.pageCache.Set(ctx, key, stored); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache write failed", "key", key, "error", err)
		}
		return nil
	}
}

func maxAge(ttl time.Duration) string {
	return "max-age=" + strconv.Itoa(int(ttl.Seconds()))
}
