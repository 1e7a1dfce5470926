package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
)

type recordKey struct {
	entity string
	date   period.Date
}

// InMemoryRecordStore keeps records in a map keyed by (entity, date).
// It backs local development and tests.
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records map[recordKey]models.MetricRecord

	// Index for faster interval scans
	byDate map[period.Date]map[string]struct{}
}

// NewInMemoryRecordStore creates an empty store.
func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		records: make(map[recordKey]models.MetricRecord),
		byDate:  make(map[period.Date]map[string]struct{}),
	}
}

func (s *InMemoryRecordStore) Name() string { return "memory" }

// UpsertRecords stores records, replacing any existing record for the same
// (entity, date). A blank market is derived from the ad group name.
func (s *InMemoryRecordStore) UpsertRecords(ctx context.Context, records []models.MetricRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range records {
		if r.EntityID == "" {
			return fmt.Errorf("record %d: entity id is required", i)
		}
		if r.Date.IsZero() {
			return fmt.Errorf("record %d: date is required", i)
		}
		normalizeRecord(&r)

		key := recordKey{entity: r.EntityID, date: r.Date}
		s.records[key] = r

		day, ok := s.byDate[r.Date]
		if !ok {
			day = make(map[string]struct{})
			s.byDate[r.Date] = day
		}
		day[r.EntityID] = struct{}{}
	}
	return nil
}

// FetchRecords returns every record inside interval ordered by date then
// entity. groupBy is ignored: records are kept at the granularity they were
// written with.
func (s *InMemoryRecordStore) FetchRecords(ctx context.Context, interval period.Interval, _ models.GroupBy) ([]models.MetricRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.MetricRecord, 0)
	interval.EachDay(func(d period.Date) {
		entities := s.byDate[d]
		ids := make([]string, 0, len(entities))
		for id := range entities {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			result = append(result, s.records[recordKey{entity: id, date: d}])
		}
	})
	return result, nil
}

// Len returns the number of stored records.
func (s *InMemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// DecodeRecords reads a JSON array of records.
func DecodeRecords(r io.Reader) ([]models.MetricRecord, error) {
	var records []models.MetricRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// LoadRecordsFile seeds a writer from a JSON file.
func LoadRecordsFile(ctx context.Context, w RecordWriter, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	records, err := DecodeRecords(f)
	if err != nil {
		return 0, err
	}
	if err := w.UpsertRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to load seed records: %w", err)
	}
	return len(records), nil
}

// normalizeRecord fills fields that can be derived from others.
func normalizeRecord(r *models.MetricRecord) {
	if r.Market == "" && r.AdGroupName != "" {
		r.Market = models.MarketFromAdGroupName(r.AdGroupName)
	}
}
