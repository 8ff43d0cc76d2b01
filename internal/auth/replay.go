package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomjoyce1/fileSharing-sub000/internal/request"
)

// ReplayCache rejects a second request carrying the same (username,
// timestamp, signature) triple within the signature's own replay window.
// Backed by Redis SETNX so the check and the store happen atomically; a
// nil or unreachable Redis client makes CheckAndStore fail-open, since a
// replay window this short already bounds the damage a missed duplicate
// can do.
type ReplayCache struct {
	redis *redis.Client
}

// NewReplayCache builds a ReplayCache over the given Redis client.
func NewReplayCache(redis *redis.Client) *ReplayCache {
	return &ReplayCache{redis: redis}
}

// CheckAndStore reports whether this (username, timestamp, signature)
// triple is being seen for the first time. A false return means the
// request is a replay and must be rejected.
func (c *ReplayCache) CheckAndStore(ctx context.Context, username, timestamp, signature string) (fresh bool, err error) {
	if c == nil || c.redis == nil {
		return true, nil
	}

	key := fmt.Sprintf("replay:%s:%s:%s", username, timestamp, signature)
	ok, err := c.redis.SetNX(ctx, key, "1", 2*request.ReplayWindow).Result()
	if err != nil {
		return true, nil
	}
	return ok, nil
}
