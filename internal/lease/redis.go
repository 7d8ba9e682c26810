package lease

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure RedisLease implements model.Lease.
var _ model.Lease = (*RedisLease)(nil)

// DefaultKey is the Redis key guarding the dispatch tick.
const DefaultKey = "applynow:dispatch:lease"

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's TTL only if this holder still owns it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLease is a cross-process lease backed by SET NX PX. While held it is
// renewed every third of its TTL, so the TTL only bounds how long a crashed
// holder can block other dispatchers, not how long a tick may run.
type RedisLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisLease returns a lease on key that expires ttl after its last renewal.
func NewRedisLease(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *RedisLease {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLease{client: client, key: key, ttl: ttl, logger: logger}
}

// Acquire tries to take the lease once. ok is false when another holder owns
// it. held is cancelled with cause ErrLost when a renewal fails or finds the
// key owned by someone else.
func (l *RedisLease) Acquire(ctx context.Context) (context.Context, func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, nil, false, fmt.Errorf("acquiring lease %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil, false, nil
	}

	held, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(held, token, stop, cancel)
	}()

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			cancel(context.Canceled)

			// The caller's ctx may already be cancelled at shutdown.
			ctx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelRelease()
			if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
				l.logger.Warn("releasing lease failed", "key", l.key, "error", err)
			}
		})
	}
	return held, release, true, nil
}

func (l *RedisLease) keepAlive(held context.Context, token string, stop <-chan struct{}, cancel context.CancelCauseFunc) {
	every := max(l.ttl/3, time.Millisecond)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-held.Done():
			return
		case <-ticker.C:
		}

		ctx, cancelRenew := context.WithTimeout(context.WithoutCancel(held), every)
		n, err := renewScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int64()
		cancelRenew()
		switch {
		case err != nil:
			l.logger.Error("renewing lease failed", "key", l.key, "error", err)
			cancel(fmt.Errorf("%w: renewing %s: %v", ErrLost, l.key, err))
			return
		case n == 0:
			l.logger.Error("lease taken over", "key", l.key)
			cancel(fmt.Errorf("%w: %s owned by another holder", ErrLost, l.key))
			return
		}
	}
}
