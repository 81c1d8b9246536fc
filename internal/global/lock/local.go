package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalLocker 单进程内的键控互斥锁，未配置 Redis 时使用
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot), wait: wait}
}

func (l *LocalLocker) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) release(key string, s *slot, locked bool) {
	if locked {
		<-s.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	type heldSlot struct {
		key string
		s   *slot
	}
	var held []heldSlot
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i].key, held[i].s, true)
		}
	}()

	for _, key := range normalize(keys) {
		s := l.acquire(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, heldSlot{key, s})
		case <-ctx.Done():
			l.release(key, s, false)
			return timeout(ctx.Err())
		case <-timer.C:
			l.release(key, s, false)
			return timeout(fmt.Errorf("lock %s not acquired within %s", key, l.wait))
		}
	}
	return fn(ctx)
}
