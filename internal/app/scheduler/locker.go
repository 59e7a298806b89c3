package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charlesng35/lifeadmin/internal/cache"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// Locker guards a sweep against overlapping invocations. TryLock never blocks: ok is false
// when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// MemoryLocker is an in-process Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker constructs a MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

// TryLock marks key as held. ttl is ignored; the lock lives until unlock is called.
func (l *MemoryLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}

const cacheLockPrefix = "sweep-lock:"

// CacheLocker shares locks through a cache store so replicas skip sweeps another
// replica is running. The TTL bounds how long a crashed holder blocks others.
type CacheLocker struct {
	store    cache.Lease
	newToken func() string
	log      *zap.Logger
}

// NewCacheLocker constructs a CacheLocker over store.
func NewCacheLocker(store cache.Lease) (*CacheLocker, error) {
	if store == nil {
		return nil, errors.New("scheduler: cache store is required")
	}
	return &CacheLocker{
		store:    store,
		newToken: uuid.NewString,
		log:      logger.WithModule("scheduler"),
	}, nil
}

// TryLock stores a unique token under key when it is free.
func (l *CacheLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := []byte(l.newToken())
	lockKey := cacheLockPrefix + key

	ok, err := l.store.SetIfAbsent(ctx, lockKey, token, ttl)
	if err != nil || !ok {
		return nil, false, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Released with a fresh context so a cancelled sweep still frees its lock.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := l.store.DeleteIfValue(releaseCtx, lockKey, token); err != nil {
				l.log.Warn("failed to release sweep lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, true, nil
}
