package locks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another import already holds the lock
var ErrLockHeld = errors.New("an import is already running for this store")

const keyPrefix = "catalog_import:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseFunc releases a held lock
type ReleaseFunc func(ctx context.Context) error

// RedisLocker serializes imports per destination store
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Key builds the lock key for a store URL
func Key(storeURL string) string {
	store := strings.TrimRight(strings.ToLower(strings.TrimSpace(storeURL)), "/")
	store = strings.TrimPrefix(strings.TrimPrefix(store, "https://"), "http://")
	return keyPrefix + store
}

// Acquire takes the lock for the store, failing with ErrLockHeld if taken
func (l *RedisLocker) Acquire(ctx context.Context, storeURL string, ttl time.Duration) (ReleaseFunc, error) {
	key := Key(storeURL)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to release import lock: %w", err)
		}
		return nil
	}, nil
}
