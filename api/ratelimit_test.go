package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepwise/prepwise/internal/log"
)

func TestRateLimiterExhaustsBurst(t *testing.T) {
	rl := newRateLimiter(1, 2)

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"), "third request within the burst window")

	// A different IP has its own bucket
	assert.True(t, rl.allow("10.0.0.2"))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	h := rateLimitMiddleware(rl, false, log.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.5:443",
			want:       "203.0.113.5",
		},
		{
			name:       "x-real-ip ignored without trust",
			remoteAddr: "203.0.113.5:443",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			want:       "203.0.113.5",
		},
		{
			name:       "x-real-ip honored with trust",
			remoteAddr: "203.0.113.5:443",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			trustProxy: true,
			want:       "198.51.100.1",
		},
		{
			name:       "x-forwarded-for first entry",
			remoteAddr: "203.0.113.5:443",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"},
			trustProxy: true,
			want:       "198.51.100.2",
		},
		{
			name:       "garbage header falls back to remote addr",
			remoteAddr: "203.0.113.5:443",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			trustProxy: true,
			want:       "203.0.113.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trustProxy))
		})
	}
}
