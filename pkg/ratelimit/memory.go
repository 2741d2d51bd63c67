package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

type bucket struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps buckets in process memory behind a mutex. It is only a
// valid rate-limit authority when a single process serves all traffic.
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
	sweep     time.Duration
}

type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides time.Now, for tests.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithSweepInterval sets how often expired buckets are dropped.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *MemoryStore) { m.sweep = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		sweep:   defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.now()
	return m
}

// Hit increments key in its current window, opening a new window when the
// previous one has expired.
func (m *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.maybeSweep(now)

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}
	b.count++

	return Hit{Count: b.count, ResetAt: b.resetAt}, nil
}

// Len reports the number of live buckets.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// maybeSweep drops expired buckets so keys from one-off clients do not
// accumulate. Caller holds mu.
func (m *MemoryStore) maybeSweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweep {
		return
	}
	m.lastSweep = now

	for key, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, key)
		}
	}
}
