package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisLocker extends the in-process lock across service instances with a Redis lock.
// The Redis lock is refreshed while held so long sessions keep it.
type RedisLocker struct {
	local  *MemoryLocker
	client *redislock.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger
}

// NewRedisLocker creates a locker backed by rdb
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, logger *logrus.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{
		local:  NewMemoryLocker(),
		client: redislock.New(rdb),
		ttl:    ttl,
		prefix: "p6ebs:sync:",
		logger: logger,
	}
}

// TryAcquire takes the local lock and then the Redis lock; either being held yields ErrBusy
func (r *RedisLocker) TryAcquire(ctx context.Context, key string) (ReleaseFunc, error) {
	releaseLocal, err := r.local.TryAcquire(ctx, key)
	if err != nil {
		return nil, err
	}

	l, err := r.client.Obtain(ctx, r.prefix+key, r.ttl, nil)
	if err == redislock.ErrNotObtained {
		releaseLocal()
		return nil, ErrBusy
	} else if err != nil {
		releaseLocal()
		return nil, fmt.Errorf("failed to obtain redis lock for %s: %w", key, err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.refresh(l, key, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.logger.WithField("integration_type", key).WithError(err).Warn("Failed to release redis lock")
			}
			releaseLocal()
		})
	}, nil
}

func (r *RedisLocker) refresh(l *redislock.Lock, key string, stop <-chan struct{}) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl/2)
			err := l.Refresh(ctx, r.ttl, nil)
			cancel()
			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"integration_type": key,
				}).WithError(err).Warn("Failed to refresh redis lock")
			}
		}
	}
}

// Active returns the keys held by this instance
func (r *RedisLocker) Active() []string {
	return r.local.Active()
}
