package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
	"github.com/aussiebroadwan/splitsub/pkg/ratelimit"
	"github.com/aussiebroadwan/splitsub/pkg/slogx"
)

// KeyExtractor derives the rate limit identity from the request.
type KeyExtractor func(*http.Request) string

// ClientIP returns the caller's address. X-Forwarded-For and X-Real-IP are
// only honoured behind a trusted proxy, otherwise any client could pick
// its own bucket.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IPKeyExtractor keys requests by ClientIP.
func IPKeyExtractor(trustProxy bool) KeyExtractor {
	return func(r *http.Request) string { return ClientIP(r, trustProxy) }
}

// RateLimitStage charges one endpoint class per request.
type RateLimitStage struct {
	limiter *ratelimit.Limiter
	class   ratelimit.Class
	key     KeyExtractor
}

// RateLimit builds the stage for class. Panics on an unknown class so a
// misconfigured route fails at startup rather than per request.
func RateLimit(l *ratelimit.Limiter, class ratelimit.Class, key KeyExtractor) *RateLimitStage {
	if _, ok := l.Policy(class); !ok {
		panic("httpx: unknown rate limit class " + string(class))
	}
	return &RateLimitStage{limiter: l, class: class, key: key}
}

func (s *RateLimitStage) Run(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	d, err := s.limiter.Allow(r.Context(), s.class, s.key(r))
	if err != nil {
		return nil, apperr.ExternalService("Rate limiter unavailable").Wrap(err)
	}

	h := w.Header()
	h.Set("RateLimit-Limit", strconv.Itoa(d.Policy.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("RateLimit-Reset", strconv.FormatInt(int64(resetIn(d.ResetAt).Seconds()), 10))

	if !d.Allowed {
		slogx.FromContext(r.Context()).Warn("rate limit exceeded",
			"class", string(s.class),
			"count", d.Count,
			"retry_after", int64(d.RetryAfter.Seconds()),
		)
		return nil, d.Err()
	}
	return r, nil
}

// Charge counts the request without admitting it. The pipeline calls it
// when an earlier stage rejected the request.
func (s *RateLimitStage) Charge(r *http.Request) {
	if _, err := s.limiter.Allow(r.Context(), s.class, s.key(r)); err != nil {
		slogx.FromContext(r.Context()).Warn("rate limit charge failed", "class", string(s.class), "err", err)
	}
}

func resetIn(at time.Time) time.Duration {
	d := time.Until(at)
	if d < 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// Throttle is a coarse flood guard applied to every request before routing.
func Throttle(t *ratelimit.Throttle, key KeyExtractor, resp *Responder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := t.Allow(key(r))
			if !ok {
				resp.Respond(w, r, apperr.RateLimit("", "Too many requests, please try again later.", wait))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
