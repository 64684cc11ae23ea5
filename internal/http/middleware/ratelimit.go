package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Bucket bookkeeping. Idle callers fall out after bucketIdleTTL; the map
// never holds more than maxBuckets callers.
const (
	maxBuckets    = 10_000
	bucketIdleTTL = 10 * time.Minute
)

// KeyFunc names the bucket a request draws tokens from.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys signed-in callers by user id ("user:<id>") and everyone
// else by client IP ("ip:<addr>").
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := userIDFromCtx(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter is a process-local token-bucket limiter with one bucket per
// key. It is safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc

	mu      sync.Mutex // serializes get-or-create
	buckets *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter refills each bucket at rps tokens per second up to burst.
// burst <= 0 is treated as 1.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   max(burst, 1),
		keyFn:   keyFn,
		buckets: expirable.NewLRU[string, *rate.Limiter](maxBuckets, nil, bucketIdleTTL),
	}
}

// bucket returns the limiter for key, creating it on first use. Every hit
// refreshes the entry's idle timer.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if lim, ok := rl.buckets.Get(key); ok {
		rl.buckets.Add(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets.Add(key, lim)
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which is served without spending a token.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Rejected requests get 429 with the failure
// envelope and a Retry-After of at least one second.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		res := rl.bucket(rl.keyFn(c)).Reserve()
		if res.OK() && res.Delay() == 0 {
			c.Next()
			return
		}
		wait := time.Second
		if res.OK() {
			wait = max(res.Delay(), wait)
			res.Cancel()
		}

		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	}
}
