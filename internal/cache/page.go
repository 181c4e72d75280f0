package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"yatube/internal/observability"

	"github.com/redis/go-redis/v9"
)

// CachedPage is a fully rendered response stored verbatim.
type CachedPage struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"stored_at"`
}

// PageCache stores rendered pages in Redis. Entries only ever leave the
// cache by expiring or through Erase/Clear; writes to posts, comments or
// follows do not touch it.
type PageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPageCache returns a page cache. A nil client or a non-positive ttl
// yields a disabled cache whose Get always misses and Set does nothing.
func NewPageCache(rdb *redis.Client, ttl time.Duration) *PageCache {
	return &PageCache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether pages are actually stored.
func (p *PageCache) Enabled() bool {
	return p != nil && p.rdb != nil && p.ttl > 0
}

// TTL is the lifetime of a stored page.
func (p *PageCache) TTL() time.Duration {
	return p.ttl
}

// PageKey derives the storage key from the view identity, the viewer scope
// ("anon", or "u<id>" plus a CSRF token digest) and the request URI including
// its query string.
func PageKey(prefix, viewer, uri string) string {
	sum := sha1.Sum([]byte(uri))
	return pageKeyPrefix + prefix + ":" + viewer + ":" + hex.EncodeToString(sum[:])
}

// Get returns the stored page for key, if any.
func (p *PageCache) Get(ctx context.Context, key string) (*CachedPage, bool, error) {
	if !p.Enabled() {
		return nil, false, nil
	}
	ctx, span := observability.StartCacheSpan(ctx, "page.get")
	var page CachedPage
	found, err := GetJSON(ctx, p.rdb, key, &page)
	observability.EndSpan(span, err)
	if err != nil || !found {
		return nil, false, err
	}
	return &page, true, nil
}

// Set stores page under key for the cache TTL. Concurrent writers for the
// same key simply overwrite each other.
func (p *PageCache) Set(ctx context.Context, key string, page *CachedPage) error {
	if !p.Enabled() {
		return nil
	}
	if page.StoredAt.IsZero() {
		page.StoredAt = time.Now().UTC()
	}
	ctx, span := observability.StartCacheSpan(ctx, "page.set")
	err := SetJSON(ctx, p.rdb, key, page, p.ttl)
	observability.EndSpan(span, err)
	return err
}

// Erase removes a single page.
func (p *PageCache) Erase(ctx context.Context, key string) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Del(ctx, key).Err()
}

// Clear removes every stored page and returns how many were deleted.
func (p *PageCache) Clear(ctx context.Context) (int, error) {
	if p == nil || p.rdb == nil {
		return 0, nil
	}

	deleted := 0
	iter := p.rdb.Scan(ctx, 0, pageKeyPattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := p.rdb.Del(ctx, batch...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if len(batch) > 0 {
		n, err := p.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return deleted, err
		}
		deleted += int(n)
	}
	return deleted, nil
}

// ErrCacheDisabled is returned by callers that require a working cache.
var ErrCacheDisabled = errors.New("page cache disabled")
