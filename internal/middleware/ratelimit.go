package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a sliding-window request counter keyed by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Allow records a request from ip and reports whether it fits the window.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := prune(rl.requests[ip], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[ip] = recent
		return false
	}

	rl.requests[ip] = append(recent, now)
	return true
}

// prune drops timestamps at or before cutoff. Timestamps are in
// ascending order.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup forgets IPs without requests in the last two windows
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	for ip, times := range rl.requests {
		if len(prune(times, cutoff)) == 0 {
			delete(rl.requests, ip)
		}
	}
}

// RateLimit limits each client IP to limit requests per window. A limit of
// zero or less disables limiting.
func RateLimit(limit int, window time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	if limit <= 0 {
		slog.Info("rate limiting disabled", "limit", limit)
		return func(next http.HandlerFunc) http.HandlerFunc {
			return next
		}
	}

	limiter := NewRateLimiter(limit, window)
	retryAfter := strconv.Itoa(retryAfterSeconds(window))

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			if !limiter.Allow(ip) {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}

			next(w, r)
		}
	}
}

// retryAfterSeconds rounds window up to whole seconds, at least one.
func retryAfterSeconds(window time.Duration) int {
	seconds := int(math.Ceil(window.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// getClientIP prefers proxy headers over the socket address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
