package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store counts hits per key inside a fixed window.
type Store interface {
	// Hit records one request for key and reports whether it is within limit.
	Hit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter is a fixed-window request limiter. It fails open: a store error
// allows the request and is logged.
type Limiter struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Limiter {
	return &Limiter{store: store, log: log}
}

func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	ok, err := l.store.Hit(ctx, key, limit, window)
	if err != nil {
		l.log.Warn("rate limit store error, allowing request", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps buckets in process memory. Buckets are not shared across
// processes and are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket), now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		s.buckets[key] = &bucket{count: 1, resetAt: now.Add(window)}
		s.sweep(now)
		return true, nil
	}
	if b.count >= limit {
		return false, nil
	}
	b.count++
	return true, nil
}

// sweep drops expired buckets once the map grows, so idle keys do not accumulate.
func (s *MemoryStore) sweep(now time.Time) {
	if len(s.buckets) < 10000 {
		return
	}
	for k, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, k)
		}
	}
}
