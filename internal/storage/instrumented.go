package storage

import (
	"context"
	"time"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"go.uber.org/zap"
)

// InstrumentedRecordStore times every fetch and logs failures.
type InstrumentedRecordStore struct {
	next     RecordStore
	observer FetchObserver
	logger   *zap.Logger
}

func NewInstrumentedRecordStore(next RecordStore, observer FetchObserver, logger *zap.Logger) *InstrumentedRecordStore {
	return &InstrumentedRecordStore{next: next, observer: observer, logger: logger}
}

func (s *InstrumentedRecordStore) Name() string { return s.next.Name() }

func (s *InstrumentedRecordStore) FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error) {
	start := time.Now()
	records, err := s.next.FetchRecords(ctx, interval, groupBy)
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveStoreFetch(s.next.Name(), elapsed, len(records), err)
	}

	if err != nil {
		s.logger.Error("record fetch failed",
			zap.String("store", s.next.Name()),
			zap.Stringer("interval", interval),
			zap.String("group_by", string(groupBy)),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Debug("records fetched",
		zap.String("store", s.next.Name()),
		zap.Stringer("interval", interval),
		zap.Int("records", len(records)),
		zap.Duration("duration", elapsed),
	)
	return records, nil
}
