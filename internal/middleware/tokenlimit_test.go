package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/booking-api/pkg/metrics"
)

func limitedRouter(limiter *TokenRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/manage/:bookingId", limiter.Limit("bookingId"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestTokenRateLimiterBlocksAfterBurst(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry(), "booking", "test")
	r := limitedRouter(NewTokenRateLimiter(1, 3, m))

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/manage/BK7QW2ND", nil)
		r.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	// The burst passes, then the limiter kicks in.
	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusOK, statuses[2])
	assert.Equal(t, http.StatusTooManyRequests, statuses[3])
	assert.Equal(t, http.StatusTooManyRequests, statuses[4])
}

func TestTokenRateLimiterKeysAreIndependent(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry(), "booking", "test")
	r := limitedRouter(NewTokenRateLimiter(1, 1, m))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manage/BKAAAAAA", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Exhausted for the first booking.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manage/BKAAAAAA", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different booking code gets its own bucket.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manage/BKBBBBBB", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
