package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dashboard service.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	ClickHouse ClickHouseConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	CORS       CORSConfig
	Reporting  ReportingConfig
	Thresholds Thresholds
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// Store drivers.
const (
	StoreMemory     = "memory"
	StoreClickHouse = "clickhouse"
	StorePostgres   = "postgres"
)

// StoreConfig selects the record store backing the KPI endpoints.
type StoreConfig struct {
	Driver       string
	FetchTimeout time.Duration
	// SeedFile is a JSON file of records loaded into the memory store.
	SeedFile string
}

// ClickHouseConfig configures the columnar metrics store.
type ClickHouseConfig struct {
	Addrs        []string
	Database     string
	User         string
	Password     string
	Table        string
	DialTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Table    string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig controls the Redis record cache in front of the store.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled    bool
	RPS        float64
	Burst      int
	PerIPRPS   float64
	PerIPBurst int

	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means the peer address is used.
	TrustedProxies []string
}

// TrustedNets parses TrustedProxies. A bare IP becomes a single-host network.
func (r RateLimitConfig) TrustedNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(r.TrustedProxies))
	for _, entry := range r.TrustedProxies {
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", entry)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// ReportingConfig holds the calendar rules used to resolve periods.
type ReportingConfig struct {
	// Timezone decides which calendar day "today" is.
	Timezone       string
	WeekStart      string
	MaxSpanDays    int
	ThresholdsFile string
}

// Location loads the reporting timezone.
func (r ReportingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reporting timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Weekday parses WeekStart ("monday", "sunday", ...).
func (r ReportingConfig) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(r.WeekStart))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return time.Monday, fmt.Errorf("invalid week start %q", r.WeekStart)
}

// Load reads configuration from environment variables with sensible defaults.
// When DASH_THRESHOLDS_FILE is set the file is overlaid on DefaultThresholds.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("DASH_HTTP_ADDR", ":8080"),
			Env:             getEnv("DASH_ENV", "development"),
			ShutdownTimeout: getDurationEnv("DASH_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:       getEnv("DASH_STORE_DRIVER", StoreMemory),
			FetchTimeout: getDurationEnv("DASH_STORE_FETCH_TIMEOUT", 20*time.Second),
			SeedFile:     getEnv("DASH_MEMORY_SEED_FILE", ""),
		},
		ClickHouse: ClickHouseConfig{
			Addrs:        getSliceEnv("DASH_CLICKHOUSE_ADDRS", []string{"localhost:9000"}),
			Database:     getEnv("DASH_CLICKHOUSE_DB", "arbitrage"),
			User:         getEnv("DASH_CLICKHOUSE_USER", "default"),
			Password:     getEnv("DASH_CLICKHOUSE_PASSWORD", ""),
			Table:        getEnv("DASH_CLICKHOUSE_TABLE", "metrics"),
			DialTimeout:  getDurationEnv("DASH_CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),
			MaxOpenConns: getIntEnv("DASH_CLICKHOUSE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getIntEnv("DASH_CLICKHOUSE_MAX_IDLE_CONNS", 5),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DASH_DB_HOST", "localhost"),
			Port:     getIntEnv("DASH_DB_PORT", 5432),
			User:     getEnv("DASH_DB_USER", "dashboard"),
			Password: getEnv("DASH_DB_PASSWORD", "dashboard_secret"),
			DBName:   getEnv("DASH_DB_NAME", "arbitrage"),
			SSLMode:  getEnv("DASH_DB_SSLMODE", "disable"),
			Table:    getEnv("DASH_DB_TABLE", "metrics"),
			MaxConns: getIntEnv("DASH_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("DASH_DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("DASH_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("DASH_REDIS_PASSWORD", ""),
			DB:       getIntEnv("DASH_REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getBoolEnv("DASH_CACHE_ENABLED", false),
			TTL:     getDurationEnv("DASH_CACHE_TTL", 15*time.Minute),
			Prefix:  getEnv("DASH_CACHE_PREFIX", "dash:records"),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("DASH_AUTH_ENABLED", false),
			MasterKey: getEnv("DASH_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("DASH_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getBoolEnv("DASH_RATE_LIMIT_ENABLED", true),
			RPS:        getFloatEnv("DASH_RATE_LIMIT_RPS", 50),
			Burst:      getIntEnv("DASH_RATE_LIMIT_BURST", 20),
			PerIPRPS:   getFloatEnv("DASH_RATE_LIMIT_PER_IP_RPS", 10),
			PerIPBurst: getIntEnv("DASH_RATE_LIMIT_PER_IP_BURST", 20),

			TrustedProxies: getSliceEnv("DASH_TRUSTED_PROXIES", nil),
		},
		Log: LogConfig{
			Level:  getEnv("DASH_LOG_LEVEL", "info"),
			Format: getEnv("DASH_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("DASH_METRICS_ENABLED", true),
			Path:      getEnv("DASH_METRICS_PATH", "/metrics"),
			Namespace: getEnv("DASH_METRICS_NAMESPACE", "arbitrage_dashboard"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getSliceEnv("DASH_CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Reporting: ReportingConfig{
			Timezone:       getEnv("DASH_REPORTING_TIMEZONE", "UTC"),
			WeekStart:      getEnv("DASH_REPORTING_WEEK_START", "monday"),
			MaxSpanDays:    getIntEnv("DASH_REPORTING_MAX_SPAN_DAYS", 365),
			ThresholdsFile: getEnv("DASH_THRESHOLDS_FILE", ""),
		},
		Thresholds: DefaultThresholds(),
	}

	if cfg.Reporting.ThresholdsFile != "" {
		th, err := LoadThresholds(cfg.Reporting.ThresholdsFile)
		if err != nil {
			return nil, err
		}
		cfg.Thresholds = th
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("DASH_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Store.Driver {
	case StoreMemory, StoreClickHouse, StorePostgres:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if _, err := c.Reporting.Location(); err != nil {
		return err
	}
	if _, err := c.Reporting.Weekday(); err != nil {
		return err
	}
	if _, err := c.RateLimit.TrustedNets(); err != nil {
		return err
	}
	if c.Reporting.MaxSpanDays <= 0 {
		return fmt.Errorf("DASH_REPORTING_MAX_SPAN_DAYS must be > 0")
	}
	return c.Thresholds.Validate()
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
