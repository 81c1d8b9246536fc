package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"yqpoint-system/internal/global/logger"
	"yqpoint-system/internal/global/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, opts Options) *RedisLocker {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, opts, logger.Discard())
}

func patient() Options {
	return Options{Expiry: 5 * time.Second, Tries: 100, RetryDelay: 10 * time.Millisecond}
}

func lockers(t *testing.T) map[string]Locker {
	return map[string]Locker{
		"redis": newRedisLocker(t, patient()),
		"local": NewLocalLocker(5 * time.Second),
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, normalize([]string{"c", "a", "b", "a"}))
}

func TestWithLock_PropagatesError(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			err := l.WithLock(context.Background(), []string{"k"}, func(context.Context) error {
				return response.ErrNotFound
			})
			assert.ErrorIs(t, err, response.ErrNotFound)
		})
	}
}

func TestWithLock_MutualExclusion(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			const workers = 10
			var current, peak, total int32
			var wg sync.WaitGroup
			wg.Add(workers)
			for i := 0; i < workers; i++ {
				// 键顺序不同也不能死锁
				keys := []string{"account:person:1", "account:org:2"}
				if i%2 == 1 {
					keys = []string{"account:org:2", "account:person:1"}
				}
				go func() {
					defer wg.Done()
					err := l.WithLock(context.Background(), keys, func(context.Context) error {
						n := atomic.AddInt32(&current, 1)
						for {
							p := atomic.LoadInt32(&peak)
							if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
								break
							}
						}
						atomic.AddInt32(&total, 1)
						time.Sleep(5 * time.Millisecond)
						atomic.AddInt32(&current, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(workers), total)
			assert.Equal(t, int32(1), peak)
		})
	}
}

func TestWithLock_DifferentKeysDoNotBlock(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			inner := make(chan error, 1)
			err := l.WithLock(context.Background(), []string{"position:1:1"}, func(ctx context.Context) error {
				inner <- l.WithLock(ctx, []string{"position:1:2"}, func(context.Context) error { return nil })
				return nil
			})
			require.NoError(t, err)
			assert.NoError(t, <-inner)
		})
	}
}

func TestWithLock_Timeout(t *testing.T) {
	short := map[string]Locker{
		"redis": newRedisLocker(t, Options{Expiry: 5 * time.Second, Tries: 2, RetryDelay: 10 * time.Millisecond}),
		"local": NewLocalLocker(30 * time.Millisecond),
	}
	for name, l := range short {
		t.Run(name, func(t *testing.T) {
			held := make(chan struct{})
			done := make(chan struct{})
			go func() {
				_ = l.WithLock(context.Background(), []string{"busy"}, func(context.Context) error {
					close(held)
					<-done
					return nil
				})
			}()
			<-held
			err := l.WithLock(context.Background(), []string{"busy"}, func(context.Context) error { return nil })
			close(done)

			assert.ErrorIs(t, err, response.ErrLockTimeout)
			assert.True(t, response.IsTransient(err))
		})
	}
}

func TestLocalLocker_ReleasesSlots(t *testing.T) {
	l := NewLocalLocker(time.Second)
	require.NoError(t, l.WithLock(context.Background(), []string{"a", "b"}, func(context.Context) error { return nil }))
	assert.Empty(t, l.slots)
}
