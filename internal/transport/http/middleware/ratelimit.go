package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-prayer-verify/internal/pkg/ratelimit"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-IP token-bucket limiter for public endpoints.
type RateLimiter struct {
	keyed *ratelimit.Keyed
}

// NewRateLimiter creates a per-IP limiter: r requests/second, burst up to burst requests.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{keyed: ratelimit.New(r, burst)}
}

// Limit is the middleware handler that enforces the rate limit per client IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.keyed.Allow(realIP(r)) {
			writeJSONError(w, http.StatusTooManyRequests, "Rate limited", "Try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// realIP prefers the first X-Forwarded-For hop, then X-Real-Ip, then RemoteAddr.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
