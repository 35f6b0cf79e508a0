package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/dto"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows the burst then blocks", func(t *testing.T) {
		limiter := NewRateLimiter(3)
		defer limiter.Close()

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("10.0.0.1"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("10.0.0.1"))
	})

	t.Run("separate buckets per client", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		defer limiter.Close()

		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))
	})

	t.Run("refills over time", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		defer limiter.Close()
		now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		for i := 0; i < 60; i++ {
			require.True(t, limiter.Allow("c"))
		}
		assert.False(t, limiter.Allow("c"))

		now = now.Add(time.Second)
		assert.True(t, limiter.Allow("c"))
	})

	t.Run("forgets idle clients", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		defer limiter.Close()
		now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		limiter.Allow("idle")
		now = now.Add(10 * time.Minute)
		limiter.forgetIdle()

		limiter.mu.Lock()
		assert.Empty(t, limiter.visitors)
		limiter.mu.Unlock()
	})

	t.Run("concurrent access", func(t *testing.T) {
		limiter := NewRateLimiter(50)
		defer limiter.Close()

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2)
	defer limiter.Close()

	router := gin.New()
	router.Use(RequestID())
	router.DELETE("/cache", RateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "30", last.Header().Get("Retry-After"))

	var resp dto.Response
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}
