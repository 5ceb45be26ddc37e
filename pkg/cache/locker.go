package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when a lock could not be acquired before the
// retry budget or the context ran out.
var ErrLockNotObtained = errors.New("lock not obtained")

// Locker serialises callers on a named key. The returned release func must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LockOptions tunes lock lifetime and contention behaviour.
type LockOptions struct {
	TTL     time.Duration
	Retries int
	Backoff time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 50
	}
	if o.Backoff <= 0 {
		o.Backoff = 100 * time.Millisecond
	}
	return o
}

// RedisLocker acquires distributed locks so that several API replicas share
// one critical section.
type RedisLocker struct {
	client *redislock.Client
	opts   LockOptions
	prefix string
}

// NewRedisLocker builds a locker on top of an existing redis client.
func NewRedisLocker(client *redis.Client, opts LockOptions) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		opts:   opts.withDefaults(),
		prefix: "barangay:lock:",
	}
}

// Acquire blocks with linear backoff until the lock is held.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	strategy := redislock.LimitRetry(redislock.LinearBackoff(l.opts.Backoff), l.opts.Retries)
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.opts.TTL, &redislock.Options{RetryStrategy: strategy})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(ctx)
	}, nil
}

// LocalLocker is an in-process keyed mutex used when redis is disabled.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker returns an empty keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

// Acquire waits for the key to become free or for ctx to end.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrLockNotObtained, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}
