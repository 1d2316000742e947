// Package redis wraps go-redis for the preference store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aelexs/fuzzyclock/internal/domain"
)

// Cmdable is a type alias for redis.Cmdable. Stores accept this interface
// instead of importing go-redis directly.
type Cmdable = redis.Cmdable

// Config holds the parameters needed to connect to a Redis instance.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client wraps a go-redis client. RDB is the Cmdable handed to stores.
type Client struct {
	RDB *redis.Client
}

// NewClient creates a new Redis client configured from cfg. Zero timeouts
// default to domain.RedisTimeout.
func NewClient(cfg Config) *Client {
	orDefault := func(d time.Duration) time.Duration {
		if d <= 0 {
			return domain.RedisTimeout
		}
		return d
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  orDefault(cfg.DialTimeout),
		ReadTimeout:  orDefault(cfg.ReadTimeout),
		WriteTimeout: orDefault(cfg.WriteTimeout),
	})

	return &Client{RDB: rdb}
}

// Ping checks connectivity. A failure wraps domain.ErrUnavailable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", domain.ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	return c.RDB.Close()
}
