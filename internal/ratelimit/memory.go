package ratelimit

import (
	"context"
	"sync"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is a process-local fixed window limiter used when Redis is not configured.
type MemoryLimiter struct {
	store limiter.Store

	mu    sync.Mutex
	rates map[rateKey]*limiter.Limiter
}

type rateKey struct {
	window time.Duration
	max    int
}

// NewMemoryLimiter returns a limiter backed by the in-memory ulule store.
func NewMemoryLimiter(prefix string) *MemoryLimiter {
	return &MemoryLimiter{
		store: memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}),
		rates: make(map[rateKey]*limiter.Limiter),
	}
}

// Allow counts an event for key and reports whether it fits within max per window.
func (m *MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	res, err := m.limiterFor(window, max).Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}

func (m *MemoryLimiter) limiterFor(window time.Duration, max int) *limiter.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rateKey{window: window, max: max}
	if l, ok := m.rates[k]; ok {
		return l
	}
	l := limiter.New(m.store, limiter.Rate{Period: window, Limit: int64(max)})
	m.rates[k] = l
	return l
}
