package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
)

const limiterIdleTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per caller. Anonymous callers are keyed by
// client IP.
type RateLimiter struct {
	mu        sync.Mutex
	callers   map[string]*callerLimiter
	perMinute int
	now       func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		callers:   make(map[string]*callerLimiter),
		perMinute: perMinute,
		now:       time.Now,
	}
}

func (r *RateLimiter) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, cl := range r.callers {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(r.callers, k)
		}
	}

	cl, ok := r.callers[key]
	if !ok {
		cl = &callerLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.perMinute)), r.perMinute)}
		r.callers[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Middleware rejects callers over budget with 429 and a Retry-After header.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := GetCallerID(c)
		if !ok || key == AnonymousCaller {
			key = "ip:" + c.ClientIP()
		}

		res := r.limiterFor(key).ReserveN(r.now(), 1)
		if delay := res.DelayFrom(r.now()); delay > 0 {
			res.CancelAt(r.now())
			retry := int(math.Ceil(delay.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retry))
			logger.Warn("Rate limit exceeded", logger.WithContext(c).With(logger.Fields{"retry_after_s": retry}))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests, retry later",
				"error_type": "rate_limited",
			})
			return
		}
		c.Next()
	}
}
