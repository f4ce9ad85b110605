package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// defaultClientName tags magpie connections in CLIENT LIST.
const defaultClientName = "magpie"

// NewRedisClient parses redisURL, pings the server and returns the client.
// The URL's client_name parameter wins over the default.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = defaultClientName
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
