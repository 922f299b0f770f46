package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client connects to the Redis instance backing the profile cache. The cache
// is best-effort: timeouts are kept tight so a slow Redis degrades reads to
// the database instead of stalling resolution.
type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,

			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,

			// resolution traffic is bursty at sign-in peaks; keep a few
			// connections warm
			PoolSize:     10,
			MinIdleConns: 2,
		}),
	}
}

// Ping verifies connectivity during bootstrap. A failure here disables the
// cache for the process lifetime rather than failing startup.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
