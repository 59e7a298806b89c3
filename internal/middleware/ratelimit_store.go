package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/lifeadmin/internal/cache"
)

const defaultRateWindow = time.Minute

// RateStore counts hits per key inside a fixed window. ttl is the time left before the
// window resets.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

type fixedWindow struct {
	hits  int
	reset time.Time
}

type memoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]fixedWindow
	now       func() time.Time
	nextPrune time.Time
}

// NewMemoryRateStore keeps counters in process memory. Use it when the API runs as a
// single replica.
func NewMemoryRateStore() RateStore {
	return newMemoryRateStore(time.Now)
}

func newMemoryRateStore(now func() time.Time) *memoryRateStore {
	return &memoryRateStore{windows: make(map[string]fixedWindow), now: now}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	window = rateWindow(window)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(now, window)

	w, ok := s.windows[key]
	if !ok || !now.Before(w.reset) {
		w = fixedWindow{reset: now.Add(window)}
	}
	w.hits++
	s.windows[key] = w

	return w.hits, w.reset.Sub(now), nil
}

// prune drops finished windows at most once per window length.
func (s *memoryRateStore) prune(now time.Time, window time.Duration) {
	if now.Before(s.nextPrune) {
		return
	}
	for key, w := range s.windows {
		if !now.Before(w.reset) {
			delete(s.windows, key)
		}
	}
	s.nextPrune = now.Add(window)
}

type cacheRateStore struct {
	store cache.Counter
}

// NewCacheRateStore shares counters across replicas through Redis or the cache_entries
// table. A nil store yields a nil RateStore.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return cacheRateStore{store: store}
}

func (s cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	hits, ttl, err := s.store.IncrementWithTTL(ctx, key, rateWindow(window))
	if err != nil {
		return 0, 0, err
	}
	return int(hits), ttl, nil
}

func rateWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return defaultRateWindow
	}
	return window
}
