package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Options tunes Connect. Zero values pick the defaults.
type Options struct {
	MaxRetries int
	Backoff    time.Duration
}

// Connect opens a redis client for addr and pings it until it answers or the
// retries run out. An empty addr returns a nil client and no error.
func Connect(ctx context.Context, addr string, opts Options, log *zap.Logger) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = rdb.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			log.Info("connected to redis", zap.String("addr", addr))
			return rdb, nil
		}

		log.Warn("redis ping failed",
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", opts.MaxRetries),
			zap.Error(lastErr),
		)
		if attempt == opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(opts.Backoff):
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("redis connection failed after %d retries: %w", opts.MaxRetries, lastErr)
}
