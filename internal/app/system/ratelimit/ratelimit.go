// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// KindRateLimited is the error kind sent with 429 responses.
const KindRateLimited = "rate_limited"

// Limiter keeps one token bucket per key. It is safe for concurrent use.
// Idle buckets are swept lazily, so no background goroutine is needed.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute int
	burst     int
	idle      time.Duration
	nextSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New allows perMinute requests per key with bursts up to burst.
func New(perMinute, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perMinute: perMinute,
		burst:     burst,
		idle:      10 * time.Minute,
		now:       time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(l.idle)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip, _, _ := strings.Cut(xff, ","); strings.TrimSpace(ip) != "" {
			return strings.TrimSpace(ip)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// key identifies the caller: the actor when signed in, otherwise the IP.
func key(r *http.Request) string {
	if a := authz.CurrentActor(r); a != nil {
		return "actor:" + a.ID.Hex()
	}
	return "ip:" + ClientIP(r)
}

// Writes limits state-changing requests (anything but GET, HEAD, OPTIONS).
// A nil limiter disables limiting.
func Writes(l *Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			k := key(r)
			if !l.Allow(k) {
				if log != nil {
					log.Warn("rate limited", zap.String("key", k), zap.String("path", r.URL.Path))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(l.perMinute)))
				respond.JSON(w, http.StatusTooManyRequests, map[string]any{
					"error": map[string]string{"kind": KindRateLimited, "message": "too many requests, slow down"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter is the whole seconds until one token refills.
func retryAfter(perMinute int) int {
	if perMinute <= 0 {
		return 60
	}
	s := 60 / perMinute
	if s < 1 {
		return 1
	}
	return s
}
