// Package cache implements the named shared caches node outputs can be
// synced into and dataset nodes can read back, backed by Redis lists.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// defaultRetention bounds each cache list.
const defaultRetention = 100

// Client reads and writes tenant-scoped shared caches.
type Client struct {
	redis     redis.UniversalClient
	retention int
}

func NewClient(client redis.UniversalClient) *Client {
	return &Client{redis: client, retention: defaultRetention}
}

func key(tenantID, cache string) string {
	return fmt.Sprintf("cascade:cache:%s:%s", tenantID, cache)
}

// Append pushes an entry to the front of a named cache and trims it to the
// retention bound.
func (c *Client) Append(ctx context.Context, tenantID, cache, entry string) error {
	k := key(tenantID, cache)

	pipe := c.redis.TxPipeline()
	pipe.LPush(ctx, k, entry)
	pipe.LTrim(ctx, k, 0, int64(c.retention-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to cache %s: %w", cache, err)
	}

	return nil
}

// RecentEntries returns up to limit entries, newest first.
func (c *Client) RecentEntries(ctx context.Context, tenantID, cache string, limit int) ([]string, error) {
	if limit <= 0 || limit > c.retention {
		limit = c.retention
	}

	entries, err := c.redis.LRange(ctx, key(tenantID, cache), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache %s: %w", cache, err)
	}

	return entries, nil
}
