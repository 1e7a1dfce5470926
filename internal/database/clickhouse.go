package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"go.uber.org/zap"
)

// ClickHouseDB wraps a database/sql handle opened through clickhouse-go.
type ClickHouseDB struct {
	DB     *sql.DB
	logger *zap.Logger
}

// NewClickHouseDB opens the columnar metrics store and pings it.
func NewClickHouseDB(ctx context.Context, cfg config.ClickHouseConfig, logger *zap.Logger) (*ClickHouseDB, error) {
	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: cfg.Addrs,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
			"readonly":           1,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Info("connected to ClickHouse",
		zap.Strings("addrs", cfg.Addrs),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
	)

	return &ClickHouseDB{DB: db, logger: logger}, nil
}

func (c *ClickHouseDB) Close() error {
	if c.DB == nil {
		return nil
	}
	c.logger.Info("ClickHouse connection closed")
	return c.DB.Close()
}

// Health pings ClickHouse.
func (c *ClickHouseDB) Health(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}
