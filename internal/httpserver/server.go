package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/radiusdt/arbitrage-dashboard/internal/analytics"
	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/database"
	"github.com/radiusdt/arbitrage-dashboard/internal/metrics"
	"github.com/radiusdt/arbitrage-dashboard/internal/middleware"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/radiusdt/arbitrage-dashboard/internal/storage"
	"go.uber.org/zap"
)

// CacheInvalidator drops cached store results.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	Store   storage.RecordStore
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Optional
	Cache          CacheInvalidator
	HealthCheckers map[string]database.HealthChecker
	RateLimiter    *middleware.RateLimitMiddleware
	Now            func() time.Time
}

// Server wraps HTTP handlers and the KPI engine.
type Server struct {
	engine  *analytics.Engine
	store   storage.RecordStore
	cache   CacheInvalidator
	health  map[string]database.HealthChecker
	logger  *zap.Logger
	config  *config.Config
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

// NewServer constructs a new http.Handler with all routes registered.
func NewServer(deps *Dependencies) (http.Handler, error) {
	cfg := deps.Config

	loc, err := cfg.Reporting.Location()
	if err != nil {
		return nil, err
	}
	weekStart, err := cfg.Reporting.Weekday()
	if err != nil {
		return nil, err
	}

	engine := analytics.NewEngine(
		period.NewResolver(weekStart, cfg.Reporting.MaxSpanDays),
		analytics.NewClassifier(cfg.Thresholds),
		nil,
	)

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:  engine,
		store:   deps.Store,
		cache:   deps.Cache,
		health:  deps.HealthCheckers,
		logger:  logger,
		config:  cfg,
		metrics: deps.Metrics,
		loc:     loc,
		now:     now,
	}

	var recorder middleware.RequestRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	rl := deps.RateLimiter
	if rl == nil {
		rl = middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	}
	if deps.Metrics != nil {
		rl.SetRecorder(deps.Metrics)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(logger, recorder).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.AuthHeaderName, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus metrics
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.Handle(cfg.Metrics.Path, deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(rl.Handler)
		r.Use(middleware.NewAuthMiddleware(cfg.Auth, logger).Handler)

		r.Get("/periods/resolve", s.handleResolve)
		r.Get("/kpis", s.handleKPIs)

		// Performance table and per-group daily series
		r.Get("/campaigns", s.handleCampaigns)
		r.Get("/campaigns/{id}/daily", s.handleDaily)

		r.Get("/alerts", s.handleAlerts)
		r.Get("/analytics/current-metrics", s.handleCurrentMetrics)

		r.Post("/cache/invalidate", s.handleCacheInvalidate)
	})

	return r, nil
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, hc := range s.health {
		if err := hc.Health(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = "unavailable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	s.jsonResponseCode(w, map[string]any{
		"status": status,
		"store":  s.store.Name(),
		"checks": checks,
	}, code)
}

// ---- Cache ----

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.errorResponse(w, "record cache is disabled", http.StatusNotFound)
		return
	}
	n, err := s.cache.Invalidate(r.Context())
	if err != nil {
		s.logger.Error("cache invalidation failed", zap.Error(err))
		s.errorResponse(w, "failed to invalidate cache", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, map[string]int{"deleted": n})
}

// ---- Helper Methods ----

func (s *Server) today() period.Date {
	return period.Today(s.now(), s.loc)
}

// fetchContext bounds store access for one request.
func (s *Server) fetchContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.config.Store.FetchTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.config.Store.FetchTimeout)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.jsonResponseCode(w, data, http.StatusOK)
}

func (s *Server) jsonResponseCode(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) recordKPI(endpoint, result string) {
	if s.metrics != nil {
		s.metrics.RecordKPIRequest(endpoint, result)
	}
}
