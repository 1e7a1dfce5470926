package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/database"
	"github.com/radiusdt/arbitrage-dashboard/internal/httpserver"
	"github.com/radiusdt/arbitrage-dashboard/internal/metrics"
	"github.com/radiusdt/arbitrage-dashboard/internal/middleware"
	"github.com/radiusdt/arbitrage-dashboard/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	format := cfg.Log.Format
	if cfg.IsDevelopment() {
		format = "console"
	}
	logger, err := middleware.NewLogger(cfg.Log.Level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting arbitrage dashboard",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("timezone", cfg.Reporting.Timezone),
	)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		logger.Fatal("failed to load reporting timezone", zap.Error(err))
	}

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(cfg.Metrics.Namespace, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record store
	checkers := make(map[string]database.HealthChecker)
	store, closeStore, err := openStore(ctx, cfg, logger, checkers)
	if err != nil {
		logger.Fatal("failed to open record store", zap.Error(err))
	}
	defer closeStore()

	store = storage.NewInstrumentedRecordStore(store, m, logger)

	// Optional Redis record cache
	var cache httpserver.CacheInvalidator
	if cfg.Cache.Enabled {
		redisDB, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, record cache disabled", zap.Error(err))
		} else {
			defer redisDB.Close()
			checkers["redis"] = redisDB

			cached := storage.NewCachedRecordStore(store, redisDB.Client, cfg.Cache.TTL, cfg.Cache.Prefix, loc, logger,
				storage.WithCacheObserver(m),
			)
			store = cached
			cache = cached
			logger.Info("record cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
		}
	}

	// Rate limiter, with idle per-IP limiters swept in the background
	rl := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	go rl.RunCleanup(ctx, 10*time.Minute)

	// Create HTTP server
	deps := &httpserver.Dependencies{
		Store:          store,
		Config:         cfg,
		Logger:         logger,
		Metrics:        m,
		Cache:          cache,
		HealthCheckers: checkers,
		RateLimiter:    rl,
	}

	handler, err := httpserver.NewServer(deps)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Store.FetchTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore connects the configured backend and registers its health check.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checkers map[string]database.HealthChecker) (storage.RecordStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreClickHouse:
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			return nil, nil, err
		}
		checkers["clickhouse"] = ch
		store, err := storage.NewClickHouseRecordStore(ch.DB, cfg.ClickHouse.Table)
		if err != nil {
			ch.Close()
			return nil, nil, err
		}
		return store, func() { ch.Close() }, nil

	case config.StorePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		checkers["postgres"] = db
		store, err := storage.NewPostgresRecordStore(db.Pool, cfg.Database.Table)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	default:
		store := storage.NewInMemoryRecordStore()
		if cfg.Store.SeedFile != "" {
			n, err := storage.LoadRecordsFile(ctx, store, cfg.Store.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("loaded seed records", zap.Int("records", n), zap.String("file", cfg.Store.SeedFile))
		} else {
			logger.Warn("memory store started empty; set DASH_MEMORY_SEED_FILE to load records")
		}
		return store, func() {}, nil
	}
}
