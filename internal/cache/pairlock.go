package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatherly/internal/middleware"
	"gatherly/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another writer holds the lock past the wait budget.
var ErrLockBusy = errors.New("lock is held by another writer")

const lockRetryInterval = 25 * time.Millisecond

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// PairLock serializes writers for one connection pair across instances.
// The store's unique index remains the authority; the lock only narrows the race.
type PairLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPairLock returns a lock helper. A nil client yields a no-op lock.
func NewPairLock(rdb *redis.Client, ttl time.Duration) *PairLock {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &PairLock{rdb: rdb, ttl: ttl}
}

// LockKey returns the Redis key guarding a pair.
func LockKey(pairKey string) string {
	return "lock:connection:" + pairKey
}

// Acquire takes the lock for pairKey, waiting up to the lock TTL or the
// context deadline. Redis failures other than contention fail open.
func (l *PairLock) Acquire(ctx context.Context, pairKey string) (func(), error) {
	noop := func() {}
	if l == nil || l.rdb == nil {
		return noop, nil
	}

	ctx, span := observability.StartRedisSpan(ctx, "lock.acquire")
	defer span.End()

	key := LockKey(pairKey)
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			middleware.Logger.WarnContext(ctx, "pair lock unavailable, relying on unique index",
				slog.String("key", key), slog.String("error", err.Error()))
			return noop, nil
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					middleware.Logger.Warn("pair lock release failed", slog.String("key", key), slog.String("error", err.Error()))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return noop, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return noop, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
