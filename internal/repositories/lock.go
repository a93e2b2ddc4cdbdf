package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
)

// releaseScript deletes the lock only if it is still owned by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker provides per-transaction locks shared by every engine instance.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration // lock lease, bounds how long a crashed holder blocks others
	wait   time.Duration // how long Lock keeps retrying before giving up
	retry  time.Duration // pause between attempts
}

// NewRedisLocker creates a new RedisLocker.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

// Lock acquires the lock for key, returning a function that releases it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:tx:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctxErr)
			}
			logger.Log.Errorw("failed to acquire lock", "key", redisKey, "error", err)
			return nil, err
		}
		if ok {
			return func() {
				// Release must not be cut short by a cancelled request context.
				err := releaseScript.Run(context.Background(), l.client, []string{redisKey}, token).Err()
				if err != nil {
					logger.Log.Errorw("failed to release lock", "key", redisKey, "error", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			logger.Log.Warnw("lock wait timeout", "key", redisKey, "wait", l.wait)
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

// LocalLocker provides per-key locks within a single process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
	wait  time.Duration
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates a new LocalLocker.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		locks: make(map[string]*localLock),
		wait:  wait,
	}
}

// Lock acquires the lock for key, returning a function that releases it. Giving up because
// of the wait limit or ctx both yield ErrLockTimeout.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case lk.ch <- struct{}{}:
		return func() {
			<-lk.ch
			l.forget(key, lk)
		}, nil
	case <-timer.C:
		l.forget(key, lk)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.forget(key, lk)
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}
}

func (l *LocalLocker) forget(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
