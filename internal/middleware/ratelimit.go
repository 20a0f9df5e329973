package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string]*window
	limit    int
	period   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type window struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return NewRateLimiterWithNow(limit, period, time.Now)
}

func NewRateLimiterWithNow(limit int, period time.Duration, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string]*window),
		limit:    limit,
		period:   period,
		now:      now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Done is closed once the cleanup goroutine has exited.
func (rl *RateLimiter) Done() <-chan struct{} {
	return rl.done
}

func (rl *RateLimiter) cleanup() {
	defer close(rl.done)
	if rl.period <= 0 {
		return
	}

	ticker := time.NewTicker(rl.period)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.requests {
				if now.After(w.resetAt) {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.requests[key]
	if !exists || now.After(w.resetAt) {
		rl.requests[key] = &window{count: 1, resetAt: now.Add(rl.period)}
		return true
	}

	if w.count >= rl.limit {
		return false
	}

	w.count++
	return true
}

// RateLimitByIP limits anonymous endpoints.
func RateLimitByIP(rl *RateLimiter) gin.HandlerFunc {
	return rateLimit(rl, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByIdentity limits authenticated callers; it must run after
// RequireAuth.
func RateLimitByIdentity(rl *RateLimiter) gin.HandlerFunc {
	return rateLimit(rl, func(c *gin.Context) string {
		if identity, ok := IdentityFromContext(c); ok {
			return identity
		}
		return c.ClientIP()
	})
}

func rateLimit(rl *RateLimiter, key func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
