package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mamiland-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per client IP and route. Idle buckets
// are dropped after ttl.
type RateLimiter struct {
	mu    sync.Mutex
	m     map[string]*keyLimiter
	r     rate.Limit
	burst int
	ttl   time.Duration
}

func NewRateLimiter(r rate.Limit, burst int, ttl time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{m: make(map[string]*keyLimiter), r: r, burst: burst, ttl: ttl}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if kl, ok := rl.m[key]; ok {
		kl.seen = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(rl.r, rl.burst)
	rl.m[key] = &keyLimiter{lim: lim, seen: time.Now()}
	return lim
}

// Run evicts idle buckets until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.m {
		if now.Sub(v.seen) > rl.ttl {
			delete(rl.m, k)
		}
	}
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.m)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		if !rl.get(clientIP(r) + "|" + path).Allow() {
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, services.MsgRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
