package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Quota allows Max counted requests per Window for one named action.
type Quota struct {
	Name   string
	Max    int
	Window time.Duration
}

// ErrNoLimiterStore is returned when the quota store is not configured.
var ErrNoLimiterStore = errors.New("rate limit store unavailable")

// incrWindow bumps the counter and starts its window on the first hit.
// It returns the new count and the milliseconds left in the window.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// rateLimitBypassed reports whether APP_ENV turns quotas off.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// Consume records one request by id against q. It returns whether the
// request fits the quota and, when it does not, how long until it would.
func Consume(ctx context.Context, rdb *redis.Client, q Quota, id string) (bool, time.Duration, error) {
	if rateLimitBypassed() {
		return true, 0, nil
	}
	if rdb == nil {
		return false, 0, ErrNoLimiterStore
	}

	key := fmt.Sprintf("rl:%s:%s", q.Name, id)
	res, err := incrWindow.Run(ctx, rdb, []string{key}, q.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	count, left := res[0], time.Duration(res[1])*time.Millisecond
	if count <= int64(q.Max) {
		return true, 0, nil
	}
	return false, left, nil
}

// RateLimit counts POST requests against q per signed-in user, or per
// remote IP for anonymous visitors. Rendering a form is never counted. When
// the store is unavailable requests pass.
func RateLimit(rdb *redis.Client, q Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		allowed, retry, err := Consume(c.UserContext(), rdb, q, id)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable", "quota", q.Name, "error", err)
			return c.Next()
		}
		if !allowed {
			observability.RateLimited.WithLabelValues(q.Name).Inc()
			if secs := int(retry.Round(time.Second) / time.Second); secs > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			}
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
