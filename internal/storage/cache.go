package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedRecordStore caches fetches of closed intervals in Redis. Keys are
// built from concrete dates, never from preset names, so a cached "last 7
// days" can not outlive the day it was computed for. Intervals that reach
// today are never cached since today's data is still arriving.
type CachedRecordStore struct {
	next     RecordStore
	client   *redis.Client
	ttl      time.Duration
	prefix   string
	loc      *time.Location
	now      func() time.Time
	observer CacheObserver
	logger   *zap.Logger
}

// CacheOption configures a CachedRecordStore.
type CacheOption func(*CachedRecordStore)

// WithClock overrides the clock used to decide what "today" is.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedRecordStore) { c.now = now }
}

// WithCacheObserver reports hits and misses.
func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *CachedRecordStore) { c.observer = o }
}

// NewCachedRecordStore wraps next with a Redis cache.
func NewCachedRecordStore(next RecordStore, client *redis.Client, ttl time.Duration, prefix string, loc *time.Location, logger *zap.Logger, opts ...CacheOption) *CachedRecordStore {
	if loc == nil {
		loc = time.UTC
	}
	c := &CachedRecordStore{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: prefix,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedRecordStore) Name() string { return c.next.Name() }

func (c *CachedRecordStore) FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error) {
	today := period.Today(c.now(), c.loc)
	if !interval.End.Before(today) {
		return c.next.FetchRecords(ctx, interval, groupBy)
	}

	key := c.key(interval, groupBy)
	if records, ok := c.get(ctx, key); ok {
		c.hit()
		return records, nil
	}
	c.miss()

	records, err := c.next.FetchRecords(ctx, interval, groupBy)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, records)
	return records, nil
}

// Invalidate drops every cached interval of the wrapped store.
func (c *CachedRecordStore) Invalidate(ctx context.Context) (int, error) {
	pattern := fmt.Sprintf("%s:%s:*", c.prefix, c.next.Name())

	var deleted int
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("failed to delete cache key: %w", err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return deleted, nil
}

func (c *CachedRecordStore) key(interval period.Interval, groupBy models.GroupBy) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", c.prefix, c.next.Name(), groupBy, interval.Start, interval.End)
}

// get treats every Redis or decode failure as a miss.
func (c *CachedRecordStore) get(ctx context.Context, key string) ([]models.MetricRecord, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("record cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var records []models.MetricRecord
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("record cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return records, true
}

func (c *CachedRecordStore) set(ctx context.Context, key string, records []models.MetricRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn("record cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("record cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedRecordStore) hit() {
	if c.observer != nil {
		c.observer.RecordCacheHit(c.next.Name())
	}
}

func (c *CachedRecordStore) miss() {
	if c.observer != nil {
		c.observer.RecordCacheMiss(c.next.Name())
	}
}
