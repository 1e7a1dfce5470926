package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
)

// ClickHouseRecordStore reads the daily metrics table from ClickHouse through
// database/sql.
type ClickHouseRecordStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseRecordStore creates a store over table.
func NewClickHouseRecordStore(db *sql.DB, table string) (*ClickHouseRecordStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &ClickHouseRecordStore{db: db, table: table}, nil
}

func (s *ClickHouseRecordStore) Name() string { return "clickhouse" }

func (s *ClickHouseRecordStore) FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error) {
	query := buildRecordQuery(clickhouseDialect, s.table, groupBy)

	rows, err := s.db.QueryContext(ctx, query, interval.Start.String(), interval.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]models.MetricRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}
