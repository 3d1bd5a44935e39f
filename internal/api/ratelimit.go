package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// endpointLimiter is a per-endpoint sliding-window rate limiter,
// copied in shape from the teacher's api.RateLimiter
// (internal/api/server.go): a map of recent request timestamps per
// key, pruned on every Allow call. The teacher used this to avoid
// tripping Binance's own rate limits; here it protects the backtest
// engine from being hammered by many concurrent heavy runs.
type endpointLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newEndpointLimiter(limit int, window time.Duration) *endpointLimiter {
	return &endpointLimiter{requests: make(map[string][]time.Time), limit: limit, window: window}
}

func (r *endpointLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	recent := r.requests[key][:0]
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}
	r.requests[key] = append(recent, now)
	return true
}

func rateLimitMiddleware(limiter *endpointLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !limiter.allow(path) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"path":  path,
			})
			return
		}
		c.Next()
	}
}
