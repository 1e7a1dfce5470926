package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitRecorder is notified about rejected requests.
type RateLimitRecorder interface {
	RecordRateLimitHit(path string)
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware implements token bucket rate limiting: one limiter
// for the whole service plus one per client IP.
type RateLimitMiddleware struct {
	cfg      config.RateLimitConfig
	logger   *zap.Logger
	recorder RateLimitRecorder
	global   *rate.Limiter

	trusted  []*net.IPNet

	mu         sync.Mutex
	ipLimiters map[string]*ipLimiter
	now        func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware. Forwarding
// headers are only honored for peers in cfg.TrustedProxies.
func NewRateLimitMiddleware(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimitMiddleware {
	trusted, err := cfg.TrustedNets()
	if err != nil {
		logger.Warn("ignoring trusted proxies", zap.Error(err))
		trusted = nil
	}
	return &RateLimitMiddleware{
		cfg:        cfg,
		logger:     logger,
		global:     rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		trusted:    trusted,
		ipLimiters: make(map[string]*ipLimiter),
		now:        time.Now,
	}
}

// SetRecorder attaches a recorder for rejected requests.
func (rl *RateLimitMiddleware) SetRecorder(r RateLimitRecorder) {
	rl.recorder = r
}

// Handler wraps an http.Handler with rate limiting.
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := rl.clientIP(r)
		if !rl.ipLimiterFor(ip).Allow() || !rl.global.Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
			if rl.recorder != nil {
				rl.recorder.RecordRateLimitHit(r.URL.Path)
			}
			tooManyRequests(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) ipLimiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.ipLimiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.PerIPRPS), rl.cfg.PerIPBurst)}
		rl.ipLimiters[ip] = l
	}
	l.lastSeen = rl.now()
	return l.limiter
}

// CleanupIPLimiters drops limiters idle for longer than maxIdle and
// returns how many were removed.
func (rl *RateLimitMiddleware) CleanupIPLimiters(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for ip, l := range rl.ipLimiters {
		if l.lastSeen.Before(cutoff) {
			delete(rl.ipLimiters, ip)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("cleaned up IP rate limiters", zap.Int("removed", removed))
	}
	return removed
}

// RunCleanup calls CleanupIPLimiters every interval until ctx is done.
func (rl *RateLimitMiddleware) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.CleanupIPLimiters(interval)
		}
	}
}

// clientIP returns the peer address unless the peer is a trusted proxy. In
// that case X-Forwarded-For is walked from the right and the first untrusted
// hop wins.
func (rl *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !rl.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !rl.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (rl *RateLimitMiddleware) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range rl.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
