package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned when a rate limit is exceeded.
	ErrRateLimited = errors.New("auth: rate limit exceeded")

	// ErrTargetedAttack is returned when one user's bundle is being fetched
	// far more often than normal, suggesting prekey-bundle draining.
	ErrTargetedAttack = errors.New("auth: targeted attack detected")
)

// Limiter rate-limits GET_BUNDLE lookups using Redis INCR counters. A nil
// Redis client makes every check fail-open, matching db.DB's own
// fail-open posture on a broken Redis connection.
type Limiter struct {
	redis *redis.Client
}

// NewLimiter builds a Limiter over the given Redis client.
func NewLimiter(redis *redis.Client) *Limiter {
	return &Limiter{redis: redis}
}

// BundleFetchLimits bounds how often a username may call GET_BUNDLE, how
// often any single user's bundle may be looked up, and a per-IP fallback.
type BundleFetchLimits struct {
	CallerLimit  int
	CallerWindow time.Duration

	TargetLimit  int
	TargetWindow time.Duration

	IPLimit  int
	IPWindow time.Duration
}

// DefaultBundleFetchLimits returns the limits enforced on GET_BUNDLE.
func DefaultBundleFetchLimits() BundleFetchLimits {
	return BundleFetchLimits{
		CallerLimit:  10,
		CallerWindow: time.Minute,
		TargetLimit:  50,
		TargetWindow: time.Minute,
		IPLimit:      100,
		IPWindow:     time.Minute,
	}
}

// CheckBundleFetch enforces all three GET_BUNDLE limits: caller, target,
// and IP. callerUsername is the authenticated requester, targetUsername is
// the username whose bundle is being looked up.
func (l *Limiter) CheckBundleFetch(ctx context.Context, callerUsername, targetUsername, ip string) error {
	if l == nil || l.redis == nil {
		return nil
	}

	limits := DefaultBundleFetchLimits()

	callerKey := fmt.Sprintf("ratelimit:bundle:caller:%s", callerUsername)
	if err := l.checkLimit(ctx, callerKey, limits.CallerLimit, limits.CallerWindow); err != nil {
		log.Printf("[auth] caller %s exceeded bundle fetch limit", callerUsername)
		return ErrRateLimited
	}

	targetKey := fmt.Sprintf("ratelimit:bundle:target:%s", targetUsername)
	if err := l.checkLimit(ctx, targetKey, limits.TargetLimit, limits.TargetWindow); err != nil {
		log.Printf("[auth] target %s bundle fetched far above normal rate", targetUsername)
		return ErrTargetedAttack
	}

	if ip != "" {
		ipKey := fmt.Sprintf("ratelimit:bundle:ip:%s", ip)
		if err := l.checkLimit(ctx, ipKey, limits.IPLimit, limits.IPWindow); err != nil {
			return ErrRateLimited
		}
	}

	return nil
}

func (l *Limiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return nil
	}

	if count == 1 {
		l.redis.Expire(ctx, key, window)
	}

	if int(count) > limit {
		return ErrRateLimited
	}

	return nil
}

// GetRemainingRequests reports how many requests remain under a limit for
// the given key before the rate limit triggers.
func (l *Limiter) GetRemainingRequests(ctx context.Context, keyPrefix, identifier string, limit int) (int, error) {
	if l.redis == nil {
		return limit, nil
	}

	key := fmt.Sprintf("%s:%s", keyPrefix, identifier)
	count, err := l.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return limit, nil
	}
	if err != nil {
		return limit, err
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
