package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

type recordedRequest struct {
	route  string
	method string
	status int
}

type requestSink struct {
	mu   sync.Mutex
	reqs []recordedRequest
	hits []string
}

func (s *requestSink) RecordRequest(route, method string, status int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, recordedRequest{route, method, status})
}

func (s *requestSink) RecordRateLimitHit(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, path)
}

// =============================================================================
// REQUEST ID
// =============================================================================

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/kpis", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestID_ReusesInbound(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "upstream-123", seen)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "bad id with spaces", seen)
}

// =============================================================================
// RECOVERY / LOGGING
// =============================================================================

func TestRecoveryMiddleware(t *testing.T) {
	h := NewRecoveryMiddleware(zap.NewNop()).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/kpis", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestLoggingMiddleware_RecordsRoutePattern(t *testing.T) {
	sink := &requestSink{}
	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(zap.NewNop(), sink).Handler)
	r.Get("/api/campaigns/{id}/daily", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/campaigns/as-1/daily", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))

	require.Len(t, sink.reqs, 2)
	assert.Equal(t, recordedRequest{"/api/campaigns/{id}/daily", "GET", http.StatusTeapot}, sink.reqs[0])
	assert.Equal(t, http.StatusNotFound, sink.reqs[1].status)
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, MasterKey: "secret", SkipPaths: []string{"/health"}}
	h := NewAuthMiddleware(cfg, zap.NewNop()).Handler(okHandler())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing key", "/api/kpis", "", http.StatusUnauthorized},
		{"wrong key", "/api/kpis", "nope", http.StatusUnauthorized},
		{"valid key", "/api/kpis", "secret", http.StatusOK},
		{"skipped path", "/health", "", http.StatusOK},
		{"query param", "/api/kpis?api_key=secret", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	h := NewAuthMiddleware(config.AuthConfig{Enabled: false}, zap.NewNop()).Handler(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/kpis", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// RATE LIMIT
// =============================================================================

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RPS: 1000, Burst: 1000, PerIPRPS: 0.001, PerIPBurst: 2}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop())
	sink := &requestSink{}
	rl.SetRecorder(sink)
	h := rl.Handler(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest("GET", "/api/kpis", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "other clients keep their own budget")
	assert.Equal(t, []string{"/api/kpis"}, sink.hits)
}

func TestRateLimitMiddleware_Global(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, PerIPRPS: 1000, PerIPBurst: 1000}
	h := NewRateLimitMiddleware(cfg, zap.NewNop()).Handler(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/kpis", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/kpis", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestCleanupIPLimiters(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RPS: 100, Burst: 100, PerIPRPS: 10, PerIPBurst: 10}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop())

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.ipLimiterFor("10.0.0.1")

	now = now.Add(10 * time.Minute)
	rl.ipLimiterFor("10.0.0.2")

	assert.Equal(t, 1, rl.CleanupIPLimiters(5*time.Minute))
	assert.Len(t, rl.ipLimiters, 1)
	assert.Contains(t, rl.ipLimiters, "10.0.0.2")
}

func TestClientIP_UntrustedPeerIgnoresHeaders(t *testing.T) {
	rl := NewRateLimitMiddleware(config.RateLimitConfig{}, zap.NewNop())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", rl.clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", rl.clientIP(req))
}

func TestClientIP_TrustedProxy(t *testing.T) {
	cfg := config.RateLimitConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop())

	tests := []struct {
		name string
		xff  string
		xri  string
		want string
	}{
		{"last untrusted hop", "203.0.113.5, 198.51.100.9, 10.0.0.2", "", "198.51.100.9"},
		{"single hop", "203.0.113.5", "", "203.0.113.5"},
		{"all trusted", "10.1.1.1, 10.0.0.2", "", "10.1.1.1"},
		{"garbage hop falls back", "not-an-ip", "", "10.0.0.1"},
		{"real ip header", "", "198.51.100.7", "198.51.100.7"},
		{"no headers", "", "", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "10.0.0.1:443"
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestRateLimitMiddleware_ForwardedForRotationSharesBudget(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RPS: 1000, Burst: 1000, PerIPRPS: 0.001, PerIPBurst: 1}
	h := NewRateLimitMiddleware(cfg, zap.NewNop()).Handler(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest("GET", "/api/kpis", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.3"))
}
