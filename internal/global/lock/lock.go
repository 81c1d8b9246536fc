// Package lock 按业务键加互斥锁。多个键排序后依次获取，避免交叉加锁导致死锁
package lock

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"yqpoint-system/config"
	"yqpoint-system/internal/global/response"

	"github.com/redis/go-redis/v9"
)

// Locker 在持有 keys 对应的全部锁期间执行 fn，fn 返回后（事务已提交）释放
type Locker interface {
	WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

type Options struct {
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

func DefaultOptions() Options {
	cfg := config.Get().Lock
	opts := Options{
		Expiry:     time.Duration(cfg.ExpiryMs) * time.Millisecond,
		Tries:      cfg.Tries,
		RetryDelay: time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	}
	if opts.Expiry <= 0 {
		opts.Expiry = 8 * time.Second
	}
	if opts.Tries < 1 {
		opts.Tries = 32
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	return opts
}

// Wait 最长等待时间
func (o Options) Wait() time.Duration {
	return time.Duration(o.Tries) * o.RetryDelay
}

func normalize(keys []string) []string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

func timeout(err error) error {
	return response.ErrLockTimeout.WithOrigin(err)
}

// Default 服务启动时由 Init 选定
var Default Locker

// Init 有 Redis 时使用分布式锁，否则退化为进程内锁
func Init(client *redis.Client, log *slog.Logger) {
	opts := DefaultOptions()
	if client != nil {
		Default = NewRedisLocker(client, opts, log)
		return
	}
	Default = NewLocalLocker(opts.Wait())
}
