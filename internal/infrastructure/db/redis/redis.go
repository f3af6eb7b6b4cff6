package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// Config holds the Redis connection settings for the throttle store.
type Config struct {
	Addr string
	DB   int
	// PingTimeout bounds the startup connectivity check. Zero means the
	// package default.
	PingTimeout time.Duration
}

// Connect builds a Redis client and proves connectivity with a ping before
// handing it out. The throttle degrades gracefully at request time, so a
// broken Redis should be caught here at startup instead.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
