package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tastyfund/backend/internal/api/httpx"
)

const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimit applies a token bucket per remote IP. It runs ahead of authentication so that
// login and register are covered too. rps <= 0 disables limiting.
func RateLimit(rps, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < rps {
		burst = rps
	}
	var (
		mu       sync.Mutex
		clients  = map[string]*limiterEntry{}
		lastScan = time.Now()
	)
	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now()
		if now.Sub(lastScan) > limiterIdle {
			for k, e := range clients {
				if now.Sub(e.seen) > limiterIdle {
					delete(clients, k)
				}
			}
			lastScan = now
		}
		e, ok := clients[key]
		if !ok {
			e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[key] = e
		}
		e.seen = now
		return e.lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !get(clientKey(r)).Allow() {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
