package redis

import (
	"context"
	"fmt"
	"time"

	"novelchat/config"

	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client for the session store and checks that the
// server answers. A chat client holds few concurrent sessions, so the pool
// stays small.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,

		// Connection pool configuration
		PoolSize:     4,
		MinIdleConns: 1,
		MaxIdleConns: 2,
		PoolTimeout:  2 * time.Second,

		// Timeouts
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,

		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return client, nil
}
