// Package ratelimit throttles requests per key with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the bucket shape and idle cleanup cadence.
type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	Clock           func() time.Time
}

// DefaultConfig allows one login attempt per second with a burst of ten.
var DefaultConfig = Config{
	RPS:             1,
	Burst:           10,
	CleanupInterval: 10 * time.Minute,
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	config   Config
	clock    func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Limiter and starts its cleanup goroutine. Call Stop on shutdown.
func New(config Config) *Limiter {
	if config.RPS <= 0 {
		config.RPS = DefaultConfig.RPS
	}
	if config.Burst <= 0 {
		config.Burst = DefaultConfig.Burst
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig.CleanupInterval
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	limiter := &Limiter{
		limiters: make(map[string]*entry),
		config:   config,
		clock:    clock,
		stopCh:   make(chan struct{}),
	}
	limiter.wg.Add(1)
	go limiter.cleanupLoop()
	return limiter
}

// Allow reports whether a request for key fits in its bucket and consumes a token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	current, exists := l.limiters[key]
	if !exists {
		current = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
		l.limiters[key] = current
	}
	current.lastUsed = now
	return current.limiter.AllowN(now, 1)
}

// Cleanup drops buckets idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock().Add(-l.config.CleanupInterval)
	for key, current := range l.limiters {
		if current.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop halts the cleanup goroutine and waits for it to exit. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
	l.wg.Wait()
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
