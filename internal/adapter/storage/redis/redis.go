package redis

import (
	"context"
	"fmt"

	"donation-gateway/config"
	"donation-gateway/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates the Redis client shared by the chain cache, rate
// limiter and broadcaster, and fails fast if the server is unreachable.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		// Request contexts bound every command, including the subscribe handshake.
		ContextTimeoutEnabled: true,
	})

	if err := NewHealthCheck(client).Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr(), err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}

// NewHealthCheck pings Redis, which backs live push delivery.
func NewHealthCheck(client *goredis.Client) ports.DependencyCheck {
	return ports.DependencyCheck{
		Dependency: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
