package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter tracks request counts per client IP over a sliding window.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int           // Max requests allowed
	window   time.Duration // Time window for rate limiting
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter. Nothing is pruned until Cleanup runs,
// so the owner must schedule it to keep the map from growing.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a request from ip and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// Drop requests outside the time window
	recent := rl.recent(ip, now.Add(-rl.window))

	// Check if limit exceeded. Rejected requests are not recorded, so a
	// client that backs off regains its budget when the window slides.
	if len(recent) >= rl.limit {
		rl.requests[ip] = recent
		return false
	}

	rl.requests[ip] = append(recent, now)
	return true
}

// Cleanup forgets clients with no requests inside the window and reports how
// many it removed. The scheduler calls it.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for ip := range rl.requests {
		if len(rl.recent(ip, cutoff)) == 0 {
			delete(rl.requests, ip)
			removed++
		}
	}
	return removed
}

// recent returns the ip's requests newer than cutoff. Callers hold mu.
func (rl *RateLimiter) recent(ip string, cutoff time.Time) []time.Time {
	var kept []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Limit rejects requests over the limiter's budget with 429.
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// NewAuthRateLimiter allows 5 sign-in or sign-up attempts per 15 minutes per IP.
func NewAuthRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 15*time.Minute)
}

// NewProofRateLimiter allows 10 proof submissions per 10 minutes per IP. Each
// one is a paid vision model call.
func NewProofRateLimiter() *RateLimiter {
	return NewRateLimiter(10, 10*time.Minute)
}

// clientIP reads RemoteAddr, which chi's RealIP has already rewritten behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
