package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/retry"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockBusy = errors.New("lock busy")

// Locker is a distributed streak.Locker built on SET NX PX. The TTL bounds
// how long a crashed holder can block a user.
type Locker struct {
	client  redis.UniversalClient
	ttl     time.Duration
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewLocker creates a Locker. ttl defaults to 10s.
func NewLocker(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{
		client:  client,
		ttl:     ttl,
		retrier: retry.LockRetrier(),
		log:     log.With(logger.Component("redis_lock")),
	}
}

// Lock blocks until the user's lock is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, userID string) (func(), error) {
	key := LockKey("profile:" + userID)
	token := uuid.NewString()

	err := l.retrier.Do(ctx, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return retry.Permanent(err)
		}
		if !ok {
			return retry.Retryable(errLockBusy)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errLockBusy) {
			return nil, fmt.Errorf("%w: %s", shared.ErrLockNotAcquired, userID)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even when the caller's ctx is already canceled.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn("failed to release lock", logger.UserID(userID), logger.Err(err))
			}
		})
	}, nil
}
