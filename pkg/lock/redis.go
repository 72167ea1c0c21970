// Package lock serializes work on one gateway transaction across service instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another worker holds the lock
var ErrLocked = errors.New("transaction is locked by another worker")

// Release frees a held lock
type Release func(ctx context.Context) error

// Locker acquires exclusive, expiring locks keyed by transaction id
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// releaseScript deletes the key only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, prefix: "payreto:lock:"}
}

// Key returns the Redis key guarding a transaction id
func (l *RedisLocker) Key(key string) string {
	return l.prefix + key
}

// Acquire takes the lock or returns ErrLocked
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := l.Key(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", redisKey, err)
		}
		return nil
	}, nil
}

// NoopLocker grants every lock; used when Redis is not configured
type NoopLocker struct{}

// Acquire always succeeds
func (NoopLocker) Acquire(ctx context.Context, key string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
