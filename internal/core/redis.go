// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/vidshelf/internal/config"
)

// ErrRedisDisabled is returned by a nil *Redis.
var ErrRedisDisabled = errors.New("redis not configured")

const redisClientName = "vidshelf"

// Redis holds the shared counters behind request and upload rate limits.
// A nil *Redis is usable: every method degrades to a no-op or reports
// ErrRedisDisabled, and limiters fall back to per-instance buckets.
type Redis struct {
	Client *redis.Client
	addr   string
}

// NewRedis returns nil without error when no URL is configured. A
// configured but unreachable server is retried briefly before giving up.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.ClientName = redisClientName
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second

	ping := func() error {
		return client.Ping(ctx).Err()
	}
	notify := func(err error, next time.Duration) {
		slog.Debug("redis not reachable, retrying",
			"addr", opts.Addr,
			"error", err,
			"retry_in", next.String(),
		)
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		_ = client.Close() //nolint:errcheck // connection never became usable
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return &Redis{Client: client, addr: opts.Addr}, nil
}

// Limiter returns the client for redis_rate, or nil when disabled.
func (r *Redis) Limiter() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

func (r *Redis) Addr() string {
	if r == nil {
		return ""
	}
	return r.addr
}

func (r *Redis) Ping(ctx context.Context) error {
	if r == nil {
		return ErrRedisDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", r.addr, err)
	}
	return nil
}

func (r *Redis) PoolStats() *redis.PoolStats {
	if r == nil {
		return nil
	}
	return r.Client.PoolStats()
}

func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.Client.Close()
}
