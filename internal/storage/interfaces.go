package storage

import (
	"context"
	"errors"
	"time"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
)

// ErrInvalidTable is returned when a configured table name is not a plain identifier.
var ErrInvalidTable = errors.New("invalid table name")

// =============================================
// RECORD STORE
// =============================================

// RecordStore serves merged daily metric records for a closed interval.
// Implementations return at most one record per (entity, date).
type RecordStore interface {
	FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// RecordWriter accepts records. Writing a record for an existing
// (entity, date) pair replaces it.
type RecordWriter interface {
	UpsertRecords(ctx context.Context, records []models.MetricRecord) error
}

// =============================================
// OBSERVERS
// =============================================

// FetchObserver receives one call per store fetch.
type FetchObserver interface {
	ObserveStoreFetch(store string, d time.Duration, records int, err error)
}

// CacheObserver receives cache hit and miss notifications.
type CacheObserver interface {
	RecordCacheHit(store string)
	RecordCacheMiss(store string)
}
