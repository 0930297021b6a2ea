package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"donation-gateway/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// ChainCache implements ports.ChainCache using Redis. Only confirmed
// transactions are stored, so entries never need invalidation.
type ChainCache struct {
	client *goredis.Client
	prefix string
}

// NewChainCache creates a new Redis-backed chain transaction cache.
func NewChainCache(client *goredis.Client) *ChainCache {
	return &ChainCache{
		client: client,
		prefix: "chaincache:",
	}
}

// Get returns the cached transaction for signature.
// Returns nil, nil if the key does not exist.
func (c *ChainCache) Get(ctx context.Context, signature string) (*domain.ChainTransaction, error) {
	val, err := c.client.Get(ctx, c.prefix+signature).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis chain cache get: %w", err)
	}

	var tx domain.ChainTransaction
	if err := json.Unmarshal(val, &tx); err != nil {
		return nil, fmt.Errorf("decode cached transaction: %w", err)
	}
	return &tx, nil
}

// Set stores tx keyed by its signature.
func (c *ChainCache) Set(ctx context.Context, tx *domain.ChainTransaction, ttl time.Duration) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+tx.Signature, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis chain cache set: %w", err)
	}
	return nil
}
