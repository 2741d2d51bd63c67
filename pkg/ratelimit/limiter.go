// Package ratelimit implements fixed window request limits per client and
// endpoint class.
//
// The Limiter itself is stateless; all counters live in a Store. Use
// MemoryStore when exactly one process serves traffic, and RedisStore when
// several replicas must share one rate-limit authority.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

var ErrUnknownClass = errors.New("ratelimit: unknown class")

// Hit is the bucket state right after an increment.
type Hit struct {
	Count   int64
	ResetAt time.Time
}

// Store increments counters. Hit must be atomic per key: two concurrent
// calls never observe the same post-increment count.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (Hit, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Class      Class
	Policy     Policy
	Allowed    bool
	Count      int64
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Err returns the 429 for a denied decision, nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.RateLimit(d.Policy.Code, d.Policy.Message, d.RetryAfter)
}

// Limiter applies class policies against a Store.
type Limiter struct {
	store    Store
	policies map[Class]Policy
	now      func() time.Time
}

type Option func(*Limiter)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter builds a Limiter. The policies map is copied.
func NewLimiter(store Store, policies map[Class]Policy, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: make(map[Class]Policy, len(policies)),
		now:      time.Now,
	}
	for c, p := range policies {
		l.policies[c] = p
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the configured policy for class.
func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	return p, ok
}

// Allow charges one request from identity against class and reports
// whether it is admitted. The request is denied once the post-increment
// count exceeds the limit.
func (l *Limiter) Allow(ctx context.Context, class Class, identity string) (Decision, error) {
	p, ok := l.policies[class]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	hit, err := l.store.Hit(ctx, bucketKey(class, identity), p.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: hit %s: %w", class, err)
	}

	d := Decision{
		Class:     class,
		Policy:    p,
		Count:     hit.Count,
		Allowed:   hit.Count <= int64(p.Limit),
		Remaining: int(max(int64(p.Limit)-hit.Count, 0)),
		ResetAt:   hit.ResetAt,
	}
	if !d.Allowed {
		d.RetryAfter = retryAfter(hit.ResetAt.Sub(l.now()), p.Window)
	}
	return d, nil
}

// retryAfter rounds the remaining window up to whole seconds and clamps it
// to [1s, window].
func retryAfter(remaining, window time.Duration) time.Duration {
	secs := time.Duration(math.Ceil(remaining.Seconds())) * time.Second
	if secs < time.Second {
		secs = time.Second
	}
	if window >= time.Second && secs > window {
		secs = window
	}
	return secs
}

func bucketKey(class Class, identity string) string {
	return string(class) + ":" + identity
}
