package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// TokenRateLimiter throttles guest token validation attempts per
// (client IP, booking) pair to blunt token brute-forcing. Limiters are kept
// in an expiring cache so idle keys do not accumulate.
type TokenRateLimiter struct {
	limiters *gocache.Cache
	rate     rate.Limit
	burst    int
	metrics  *metrics.Metrics
}

func NewTokenRateLimiter(perMinute, burst int, m *metrics.Metrics) *TokenRateLimiter {
	return &TokenRateLimiter{
		limiters: gocache.New(10*time.Minute, 15*time.Minute),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		metrics:  m,
	}
}

// Limit rate-limits by client IP plus the named path parameter.
func (rl *TokenRateLimiter) Limit(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.Param(param)

		if !rl.limiterFor(key).Allow() {
			rl.metrics.TokenRateLimited.Inc()
			c.JSON(http.StatusTooManyRequests, handler.NewErrorResponse("too many attempts, try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *TokenRateLimiter) limiterFor(key string) *rate.Limiter {
	if v, found := rl.limiters.Get(key); found {
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	if err := rl.limiters.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		// Lost the insert race; use the winner's limiter.
		if v, found := rl.limiters.Get(key); found {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}
