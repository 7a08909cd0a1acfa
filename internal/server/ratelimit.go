package server

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"crypto-recommendations/internal/config"
)

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiters(cfg config.RateLimitConfig) *clientLimiters {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    perSecond,
		burst:    cfg.Burst,
	}
}

func (c *clientLimiters) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.limiters[ip] = limiter
	}
	return limiter
}

// RateLimit throttles requests per client IP and answers 429 when the
// client's bucket is exhausted.
func RateLimit(cfg config.RateLimitConfig, next http.Handler) http.Handler {
	limiters := newClientLimiters(cfg)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiters.get(ip).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
