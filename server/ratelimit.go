package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window request counter keyed by client
type RateLimiter struct {
	counters     map[string]*rateLimitEntry
	mu           sync.Mutex
	maxRequests  int
	windowPeriod time.Duration
	now          func() time.Time
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter allows maxRequests per key in every window
func NewRateLimiter(maxRequests int, windowPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		counters:     make(map[string]*rateLimitEntry),
		maxRequests:  maxRequests,
		windowPeriod: windowPeriod,
		now:          time.Now,
	}
}

// CheckLimit counts a request for key and reports whether the limit is
// exceeded, the count in the current window and when the window resets
func (r *RateLimiter) CheckLimit(key string) (bool, int, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.counters[key]

	if !ok || now.Sub(entry.windowStart) > r.windowPeriod {
		r.counters[key] = &rateLimitEntry{count: 1, windowStart: now}
		r.sweep(now)
		return false, 1, now.Add(r.windowPeriod)
	}

	entry.count++
	reset := entry.windowStart.Add(r.windowPeriod)
	return entry.count > r.maxRequests, entry.count, reset
}

// sweep drops expired windows so idle clients do not accumulate
func (r *RateLimiter) sweep(now time.Time) {
	for key, entry := range r.counters {
		if now.Sub(entry.windowStart) > r.windowPeriod {
			delete(r.counters, key)
		}
	}
}

// Middleware rejects clients over the limit with 429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		exceeded, count, reset := r.CheckLimit(c.ClientIP())

		remaining := r.maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(r.maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
