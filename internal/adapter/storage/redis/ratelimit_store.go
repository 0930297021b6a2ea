package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore counts requests per key in fixed windows. Each window has
// its own key, so a counter never has to be reset.
type RateLimitStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewRateLimitStore creates a Redis-backed fixed-window counter.
func NewRateLimitStore(client *goredis.Client) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Quota is the state of one key's current window after a hit.
type Quota struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RetryAfter is the whole seconds until the window resets, at least 1.
func (q *Quota) RetryAfter(now time.Time) int64 {
	secs := int64(q.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// Hit records one request against key and reports whether it fits in limit.
// INCR and EXPIRE run in one MULTI so a counter is never left without a TTL.
func (s *RateLimitStore) Hit(ctx context.Context, key string, limit int64, window time.Duration) (*Quota, error) {
	if window < time.Second {
		window = time.Second
	}
	start := s.now().Truncate(window)
	redisKey := fmt.Sprintf("%s%s:%d", s.prefix, key, start.Unix())

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit hit %s: %w", key, err)
	}

	count := incr.Val()
	return &Quota{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   start.Add(window),
	}, nil
}
