package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "mamiland:code-attempts:"

// AttemptGuard counts failed access-code redemptions per client in Redis and
// blocks a client once it reaches Limit failures inside Window. A guard
// without a Redis client allows everything.
type AttemptGuard struct {
	Redis  *redis.Client
	Limit  int
	Window time.Duration
}

func (g AttemptGuard) enabled() bool {
	return g.Redis != nil && g.Limit > 0
}

func attemptKey(client string) string {
	return attemptKeyPrefix + client
}

// Blocked reports whether client has used up its failed attempts.
func (g AttemptGuard) Blocked(ctx context.Context, client string) (bool, error) {
	if !g.enabled() {
		return false, nil
	}
	value, err := g.Redis.Get(ctx, attemptKey(client)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return false, nil
	}
	return count >= g.Limit, nil
}

// Fail records one failed attempt. The window starts at the first failure.
func (g AttemptGuard) Fail(ctx context.Context, client string) error {
	if !g.enabled() {
		return nil
	}
	key := attemptKey(client)
	count, err := g.Redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return g.Redis.Expire(ctx, key, g.Window).Err()
	}
	return nil
}

// Reset clears the counter after a successful redemption.
func (g AttemptGuard) Reset(ctx context.Context, client string) error {
	if !g.enabled() {
		return nil
	}
	return g.Redis.Del(ctx, attemptKey(client)).Err()
}
