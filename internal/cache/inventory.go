package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// View identities used as page cache key prefixes.
const (
	IndexPagePrefix = "index_page"
	PostPagePrefix  = "post_page"
)

const (
	// GroupsKey holds the group choices offered by the post form.
	GroupsKey = "groups:all"
	GroupsTTL = time.Minute

	pageKeyPrefix  = "page:"
	pageKeyPattern = "page:*"
)

// Invalidate deletes key; a nil client is a no-op.
func Invalidate(ctx context.Context, rdb *redis.Client, key string) {
	if rdb != nil {
		rdb.Del(ctx, key)
	}
}

// InvalidateGroups drops the cached group choices after an admin change.
func InvalidateGroups(ctx context.Context, rdb *redis.Client) {
	Invalidate(ctx, rdb, GroupsKey)
}
