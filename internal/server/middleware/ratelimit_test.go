package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("Burst is allowed, then denied", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 3)
		defer limiter.Stop()

		for i := range 3 {
			assert.True(t, limiter.Allow("192.168.1.1"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("192.168.1.1"))
	})

	t.Run("Keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 1)
		defer limiter.Stop()

		assert.True(t, limiter.Allow("10.0.0.1"))
		assert.False(t, limiter.Allow("10.0.0.1"))
		assert.True(t, limiter.Allow("10.0.0.2"))
	})

	t.Run("Zero burst is raised to one", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 0)
		defer limiter.Stop()

		assert.True(t, limiter.Allow("k"))
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	limiter := NewRateLimiter(0.001, 2)
	defer limiter.Stop()

	handler := limiter.Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Contains(t, logBuf.String(), "Rate limit exceeded")
	assert.Contains(t, logBuf.String(), "ip=203.0.113.7")
}

func TestRateLimiter_ClientIP(t *testing.T) {
	tests := []struct {
		headers    map[string]string
		name       string
		remoteAddr string
		expected   string
	}{
		{name: "RemoteAddr without port", remoteAddr: "192.168.1.1:12345", expected: "192.168.1.1"},
		{name: "RemoteAddr without port part", remoteAddr: "192.168.1.1", expected: "192.168.1.1"},
		{
			name:       "X-Forwarded-For from untrusted peer is ignored",
			remoteAddr: "198.51.100.20:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			expected:   "198.51.100.20",
		},
		{
			name:       "X-Real-IP from untrusted peer is ignored",
			remoteAddr: "198.51.100.20:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			expected:   "198.51.100.20",
		},
		{
			name:       "X-Forwarded-For single IP via trusted proxy",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.1"},
			expected:   "203.0.113.1",
		},
		{
			name:       "X-Forwarded-For chain takes rightmost untrusted hop",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "192.0.2.66, 203.0.113.1, 10.0.0.5"},
			expected:   "203.0.113.1",
		},
		{
			name:       "X-Forwarded-For of trusted hops only",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.7, 10.0.0.5"},
			expected:   "10.0.0.7",
		},
		{
			name:       "X-Real-IP via trusted proxy",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			expected:   "203.0.113.9",
		},
	}

	limiter := NewRateLimiter(1, 1)
	defer limiter.Stop()
	require.NoError(t, limiter.TrustProxies([]string{"10.0.0.0/8"}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, limiter.clientIP(req))
		})
	}
}

func TestRateLimiter_ForwardedHeaderDoesNotBypassLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	defer limiter.Stop()

	handler := limiter.Middleware(setupTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := range 3 {
		req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
		req.RemoteAddr = "198.51.100.20:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_TrustProxiesInvalid(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	defer limiter.Stop()

	assert.Error(t, limiter.TrustProxies([]string{"not-a-cidr"}))
}

func TestRateLimiter_CleanupIdle(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	defer limiter.Stop()

	limiter.Allow("old")
	limiter.Allow("fresh")

	limiter.mu.Lock()
	limiter.clients["old"].lastSeen = time.Now().Add(-time.Hour)
	limiter.mu.Unlock()

	limiter.cleanupIdle(time.Now())

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.clients, "old")
	assert.Contains(t, limiter.clients, "fresh")
}

func TestRateLimiter_StopNoLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	limiter := NewRateLimiter(1, 1)
	limiter.Stop()
	limiter.Stop()
}
