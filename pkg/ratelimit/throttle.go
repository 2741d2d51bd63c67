package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig defines a token bucket.
type ThrottleConfig struct {
	// RequestsPerWindow is the sustained number of requests per Window.
	RequestsPerWindow int
	Window            time.Duration
	// Burst allows temporary bursts above the sustained rate.
	Burst int
}

// DefaultThrottle is the coarse per-IP flood guard for the whole API.
var DefaultThrottle = ThrottleConfig{
	RequestsPerWindow: 1000,
	Window:            time.Minute,
	Burst:             200,
}

// Throttle is a per-key token bucket. Unlike Limiter it smooths traffic
// rather than counting windows, and it is always process-local.
type Throttle struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func NewThrottle(cfg ThrottleConfig) *Throttle {
	return &Throttle{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       cfg.Burst,
		lastCleanup: time.Now(),
	}
}

// Allow takes one token for key. When empty it reports how long until the
// next token is available.
func (t *Throttle) Allow(key string) (bool, time.Duration) {
	limiter := t.limiter(key)
	if limiter.Allow() {
		return true, 0
	}

	r := limiter.Reserve()
	delay := r.Delay()
	r.Cancel()

	return false, max(delay.Round(time.Second), time.Second)
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := t.limiters.LoadOrStore(key, rate.NewLimiter(t.rate, t.burst))
	t.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket is full again, which means the
// key has been idle.
func (t *Throttle) maybeCleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if time.Since(t.lastCleanup) < 5*time.Minute {
		return
	}
	t.lastCleanup = time.Now()

	t.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(t.burst) {
			t.limiters.Delete(key)
		}
		return true
	})
}
