package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiterFixedWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore().WithClock(clock.Now), zap.NewNop())
	ctx := context.Background()

	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, l.Allow(ctx, "mfa:user-1", 3, 60*time.Second))
	}
	assert.Equal(t, []bool{true, true, true, false}, got)

	clock.Advance(61 * time.Second)
	assert.True(t, l.Allow(ctx, "mfa:user-1", 3, 60*time.Second), "new window should allow")
	assert.True(t, l.Allow(ctx, "mfa:user-1", 3, 60*time.Second))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(NewMemoryStore(), zap.NewNop())
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a", 1, time.Minute))
	assert.False(t, l.Allow(ctx, "a", 1, time.Minute))
	assert.True(t, l.Allow(ctx, "b", 1, time.Minute))
}

func TestLimiterWindowBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore().WithClock(clock.Now), zap.NewNop())
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "k", 1, time.Minute))
	clock.Advance(time.Minute - time.Nanosecond)
	assert.False(t, l.Allow(ctx, "k", 1, time.Minute))
	clock.Advance(time.Nanosecond)
	assert.True(t, l.Allow(ctx, "k", 1, time.Minute), "window resets exactly at resetAt")
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(failingStore{}, zap.NewNop())
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), "k", 1, time.Minute))
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	l := New(NewMemoryStore(), zap.NewNop())
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, "shared", 10, time.Minute) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}
