package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, clock *manualClock) *Limiter {
	t.Helper()
	limiter := New(Config{RPS: 1, Burst: 3, CleanupInterval: time.Minute, Clock: clock.Now})
	t.Cleanup(limiter.Stop)
	return limiter
}

func TestAllowConsumesBurstThenRefills(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(t, clock)

	for attempt := 0; attempt < 3; attempt++ {
		require.True(t, limiter.Allow("10.0.0.1"), "attempt %d", attempt)
	}
	require.False(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.2"), "keys must not share buckets")

	clock.Advance(time.Second)
	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(t, clock)

	limiter.Allow("idle")
	clock.Advance(30 * time.Second)
	limiter.Allow("active")
	clock.Advance(45 * time.Second)

	limiter.Cleanup()
	require.Equal(t, 1, limiter.Len())

	limiter.Stop()
	limiter.Stop()
}

func TestNewAppliesDefaults(t *testing.T) {
	limiter := New(Config{})
	defer limiter.Stop()
	require.Equal(t, DefaultConfig.Burst, limiter.config.Burst)
	require.Equal(t, DefaultConfig.RPS, limiter.config.RPS)
}
