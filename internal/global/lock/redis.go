package lock

import (
	"context"
	"log/slog"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "yqpoint:lock:"

// RedisLocker 多实例部署时使用的分布式锁
type RedisLocker struct {
	rs   *redsync.Redsync
	opts Options
	log  *slog.Logger
}

func NewRedisLocker(client *redis.Client, opts Options, log *slog.Logger) *RedisLocker {
	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
		log:  log,
	}
}

func (l *RedisLocker) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	held := make([]*redsync.Mutex, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
				l.log.Error("failed to release lock", "lock_key", held[i].Name(), "unlock_ok", ok, "error", err)
			}
		}
	}()

	for _, key := range normalize(keys) {
		mutex := l.rs.NewMutex(keyPrefix+key,
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
		)
		if err := mutex.LockContext(ctx); err != nil {
			l.log.Warn("failed to acquire lock", "lock_key", key, "error", err)
			return timeout(err)
		}
		held = append(held, mutex)
	}
	return fn(ctx)
}
