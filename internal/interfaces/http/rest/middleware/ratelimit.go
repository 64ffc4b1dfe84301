package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "hoopgraph-backend/pkg/errors"

	"golang.org/x/time/rate"
)

// ClientRateLimiter keeps one token bucket per client IP. Idle buckets are
// swept lazily so the map stays bounded without a background goroutine.
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	perMinute int
	idleAfter time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter allows requestsPerMinute per client with the given
// burst. Buckets unused for cleanupInterval are dropped.
func NewClientRateLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration) *ClientRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &ClientRateLimiter{
		clients:   make(map[string]*client),
		limit:     rate.Limit(float64(requestsPerMinute) / 60),
		burst:     burst,
		perMinute: requestsPerMinute,
		idleAfter: cleanupInterval,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether key may make a request now.
func (l *ClientRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > l.idleAfter {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idleAfter {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Len reports the number of tracked clients.
func (l *ClientRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects requests over the limit with 429.
func (l *ClientRateLimiter) Middleware(errorHandler *apperrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				errorHandler.Handle(w, r, apperrors.NewRateLimitError(float64(l.perMinute), "minute"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the client address. chi's RealIP middleware has already
// folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}
