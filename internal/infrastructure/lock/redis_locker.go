package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"trustscore/internal/errs"
	"trustscore/internal/ports"
)

const (
	defaultRedisLockTTL  = 30 * time.Second
	defaultRedisLockWait = 10 * time.Second
	redisRetryInterval   = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker holds a key with SET NX PX. The TTL bounds how long a crashed
// holder can block others; Wait bounds how long Lock polls.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

var _ ports.KeyLocker = (*RedisLocker)(nil)

func NewRedisLocker(rdb goredis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisLockTTL
	}
	if wait <= 0 {
		wait = defaultRedisLockWait
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return nil, err
	}
	redisKey := l.prefix + trimmedKey
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(redisRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, errs.Wrapf(err, "redis lock %s", trimmedKey)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, errs.Wrapf(ports.ErrLockNotAcquired, "redis lock %s: %v", trimmedKey, waitCtx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err()
		})
	}, nil
}
