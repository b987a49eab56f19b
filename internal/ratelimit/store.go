// file: internal/ratelimit/store.go
// version: 1.0.0
// guid: 5b1c8e93-7f24-4a6d-90e3-c2d5a8f61b09

package ratelimit

import (
	"sync"
	"time"
)

// CounterStore tracks fixed-window request counters per key. Implementations
// must make IncrementAndGet atomic per key so two concurrent requests cannot
// both be admitted when only one slot remains.
type CounterStore interface {
	// IncrementAndGet bumps the counter for key in its current window and
	// returns the post-increment count plus the time the window resets.
	// A fresh window starts at the first increment after expiry.
	IncrementAndGet(key string, window time.Duration) (count int, reset time.Time, err error)
}

type counter struct {
	count       int
	windowStart time.Time
}

// MemoryCounterStore is the in-process CounterStore. Expired windows are
// lazily overwritten on access and idle keys are evicted on a sweep interval
// so the map does not grow without bound.
type MemoryCounterStore struct {
	mu         sync.Mutex
	counters   map[string]*counter
	now        func() time.Time
	lastSweep  time.Time
	sweepEvery time.Duration
	maxIdle    time.Duration
}

// NewMemoryCounterStore creates an empty in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters:   make(map[string]*counter),
		now:        time.Now,
		sweepEvery: time.Minute,
		maxIdle:    time.Hour,
	}
}

// NewMemoryCounterStoreWithClock creates a store with an injectable clock,
// so tests can advance time deterministically.
func NewMemoryCounterStoreWithClock(now func() time.Time) *MemoryCounterStore {
	s := NewMemoryCounterStore()
	s.now = now
	return s
}

// IncrementAndGet implements CounterStore.
func (s *MemoryCounterStore) IncrementAndGet(key string, window time.Duration) (int, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweepLocked(now)
	}

	c, ok := s.counters[key]
	if !ok || now.Sub(c.windowStart) >= window {
		c = &counter{count: 0, windowStart: now}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.windowStart.Add(window), nil
}

func (s *MemoryCounterStore) sweepLocked(now time.Time) {
	for key, c := range s.counters {
		if now.Sub(c.windowStart) > s.maxIdle {
			delete(s.counters, key)
		}
	}
	s.lastSweep = now
}

// Len reports the number of tracked keys.
func (s *MemoryCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
