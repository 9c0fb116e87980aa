package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockHeld is returned by Locker.Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("poll lock held by another instance")

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker guards a poll window across processes.
type Locker interface {
	Acquire(ctx context.Context) (Lock, error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a single-key lock: SET key token NX PX ttl. The ttl must
// exceed the poll window so the lock outlives the work it guards.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (Lock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &redisLock{client: l.client, key: l.key, token: token}, nil
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

// Release is a no-op when the lock expired and was taken by someone else.
func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
