// Package cache connects to the Redis instance that backs the read caches
// (per-day hour counts and fare settings). Nothing authoritative lives there.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urbannassau/rides/config"
)

const (
	clientName     = "urbannassau-rides"
	connectTimeout = 3 * time.Second
	opTimeout      = 300 * time.Millisecond
)

// NewRedisClient dials Redis and verifies it answers.
//
// Operation timeouts are short: a slow cache is treated as a miss by the
// callers, and the request falls through to PostgreSQL.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:                  cfg.Addr(),
		ClientName:            clientName,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		PoolSize:              cfg.PoolSize,
		PoolTimeout:           opTimeout,
		DialTimeout:           connectTimeout,
		ReadTimeout:           opTimeout,
		WriteTimeout:          opTimeout,
		ContextTimeoutEnabled: true,
		MaxRetries:            1,
	}
	client := redis.NewClient(opts)

	if err := HealthCheck(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// HealthCheck pings client within a bounded time.
func HealthCheck(ctx context.Context, client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
