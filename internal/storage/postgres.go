package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
)

// PostgresRecordStore reads the daily metrics table from PostgreSQL.
type PostgresRecordStore struct {
	pool  *pgxpool.Pool
	table string
}

func NewPostgresRecordStore(pool *pgxpool.Pool, table string) (*PostgresRecordStore, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &PostgresRecordStore{pool: pool, table: table}, nil
}

func (s *PostgresRecordStore) Name() string { return "postgres" }

func (s *PostgresRecordStore) FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error) {
	query := buildRecordQuery(postgresDialect, s.table, groupBy)

	rows, err := s.pool.Query(ctx, query, interval.Start.String(), interval.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.MetricRecord
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
