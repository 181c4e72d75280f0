package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// SessionCookie is the name of the cookie carrying the signed session token.
	SessionCookie = "sessionid"

	sessionIssuer   = "yatube"
	sessionAudience = "yatube-web"
)

// ErrSessionRevoked is returned for a token that was logged out.
var ErrSessionRevoked = errors.New("session revoked")

// SessionClaims is the decoded content of a session token.
type SessionClaims struct {
	// Fingerprint ties the session to the password hash it was issued for.
	Fingerprint string `json:"pwd"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// Sessions issues and verifies cookie-borne session tokens.
// Logged out tokens are blacklisted in Redis until they expire.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	secure bool
}

// NewSessions creates a session manager. rdb may be nil, in which case logout only clears the cookie.
func NewSessions(secret string, ttl time.Duration, rdb *redis.Client, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, rdb: rdb, secure: secure}
}

// Issue signs a new session token for userID.
func (s *Sessions) Issue(userID uint, fingerprint string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("session secret not configured")
	}

	now := time.Now()
	expires := now.Add(s.ttl)
	claims := SessionClaims{
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    sessionIssuer,
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Parse validates a token and checks it has not been revoked.
func (s *Sessions) Parse(ctx context.Context, token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithAudience(sessionAudience),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid session token")
	}

	if s.rdb != nil && claims.ID != "" {
		n, err := s.rdb.Exists(ctx, blacklistKey(claims.ID)).Result()
		if err != nil {
			// Redis trouble must not log everybody out.
			Logger.WarnContext(ctx, "session blacklist lookup failed", "error", err)
		} else if n > 0 {
			return nil, ErrSessionRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token until its natural expiry.
func (s *Sessions) Revoke(ctx context.Context, claims *SessionClaims) error {
	if s.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, blacklistKey(claims.ID), "1", ttl).Err()
}

// SetCookie writes the session cookie.
func (s *Sessions) SetCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *Sessions) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Authenticate reads the session cookie if present. A valid token stores
// "userID" (uint) and "session" (*SessionClaims) in locals; anything else
// leaves the request anonymous.
func (s *Sessions) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Next()
		}

		claims, err := s.Parse(c.UserContext(), token)
		if err != nil {
			s.ClearCookie(c)
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil {
			s.ClearCookie(c)
			return c.Next()
		}

		c.Locals("userID", userID)
		c.Locals("session", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
		return c.Next()
	}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}
