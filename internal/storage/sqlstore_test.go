package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

var recordColumns = []string{
	"date", "entity_id",
	"campaign_id", "campaign_name", "ad_set_id", "ad_set_name", "ad_id", "ad_name", "market",
	"spend", "revenue",
	"link_clicks", "widget_clicks", "widget_searches", "searches", "purchases",
}

// =============================================================================
// QUERY BUILDER
// =============================================================================

func TestBuildRecordQuery_Postgres(t *testing.T) {
	q := buildRecordQuery(postgresDialect, "metrics", models.GroupCampaign)

	assert.Contains(t, q, "coalesce(ad_set_id, '') AS entity_id")
	assert.Contains(t, q, "(coalesce(sum(spend), 0))::text AS spend")
	assert.Contains(t, q, "(coalesce(sum(purchases), 0))::bigint AS purchases")
	assert.Contains(t, q, "FROM metrics")
	assert.Contains(t, q, "WHERE date >= $1::date AND date <= $2::date")
	assert.Contains(t, q, "GROUP BY date, coalesce(ad_set_id, ''), coalesce(campaign_id, ''), coalesce(market, '')")
	assert.Contains(t, q, "ORDER BY date, entity_id, campaign_id, market")
	assert.Contains(t, q, "coalesce(campaign_id, '') AS campaign_id")
	assert.Contains(t, q, "coalesce(market, '') AS market")
	assert.Contains(t, q, "coalesce(max(ad_set_name), '') AS ad_set_name")
	assert.NotContains(t, q, "max(campaign_id)")
}

func TestBuildRecordQuery_ClickHouse(t *testing.T) {
	q := buildRecordQuery(clickhouseDialect, "arbitrage.metrics", models.GroupAd)

	assert.Contains(t, q, "coalesce(ad_id, '') AS entity_id")
	assert.Contains(t, q, "toString(coalesce(sum(revenue), 0)) AS revenue")
	assert.Contains(t, q, "toInt64(coalesce(sum(link_clicks), 0)) AS link_clicks")
	assert.Contains(t, q, "WHERE date >= toDate(?) AND date <= toDate(?)")
	assert.Contains(t, q, "GROUP BY date, coalesce(ad_id, ''), coalesce(campaign_id, ''), coalesce(ad_set_id, ''), coalesce(market, '')")
	assert.Contains(t, q, "coalesce(ad_set_id, '') AS ad_set_id")
	assert.NotContains(t, q, "max(ad_set_id)")
}

func TestBuildRecordQuery_NullEntityKeepsParents(t *testing.T) {
	for _, g := range []models.GroupBy{models.GroupNone, models.GroupMarket, models.GroupCampaign, models.GroupAdGroup} {
		q := buildRecordQuery(postgresDialect, "metrics", g)
		assert.Contains(t, q, "coalesce(campaign_id, ''), coalesce(market, '')", "group by %s", g)
	}
}

func TestEntityColumn(t *testing.T) {
	for _, g := range []models.GroupBy{models.GroupNone, models.GroupMarket, models.GroupCampaign, models.GroupAdGroup} {
		assert.Equal(t, "ad_set_id", entityColumn(g), "group by %s", g)
	}
	assert.Equal(t, "ad_id", entityColumn(models.GroupAd))
}

func TestValidateTable(t *testing.T) {
	valid := []string{"metrics", "arbitrage.metrics", "_daily_2024"}
	for _, name := range valid {
		assert.NoError(t, validateTable(name), name)
	}

	invalid := []string{"", "metrics; DROP TABLE x", "a.b.c", "1metrics", "metrics--"}
	for _, name := range invalid {
		err := validateTable(name)
		assert.ErrorIs(t, err, ErrInvalidTable, name)
	}
}

func TestNewPostgresRecordStore_InvalidTable(t *testing.T) {
	_, err := NewPostgresRecordStore(nil, "bad table")
	assert.ErrorIs(t, err, ErrInvalidTable)
}

// =============================================================================
// CLICKHOUSE STORE
// =============================================================================

func TestClickHouseRecordStore_FetchRecords(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := NewClickHouseRecordStore(db, "metrics")
	require.NoError(t, err)

	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT(.|\n)+FROM metrics(.|\n)+GROUP BY date").
		WithArgs("2024-03-08", "2024-03-14").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(day, "as-1", "c-1", "Camp 1", "as-1", "BRA_search", "", "", "", "100.25", "130.10", int64(500), int64(100), int64(90), int64(40), int64(3)).
			AddRow(day, "as-2", "c-1", "Camp 1", "as-2", "MEX_search", "", "", "MX", "0.1", "0", int64(1), int64(0), int64(0), int64(0), int64(0)))

	iv := period.Interval{Start: march(8), End: march(14)}
	records, err := store.FetchRecords(context.Background(), iv, models.GroupNone)
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, "as-1", r.EntityID)
	assert.Equal(t, march(8), r.Date)
	assert.Equal(t, "Camp 1", r.CampaignName)
	assert.Equal(t, "100.25", r.Spend.String())
	assert.Equal(t, "130.1", r.Revenue.String())
	assert.Equal(t, int64(500), r.LinkClicks)
	assert.Equal(t, int64(40), r.SearchEvents)
	assert.Equal(t, int64(3), r.PurchaseEvents)
	assert.Equal(t, models.MarketBrazil, r.Market, "market derived from ad group name")

	assert.Equal(t, "MX", records[1].Market)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseRecordStore_QueryError(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := NewClickHouseRecordStore(db, "metrics")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT").WillReturnError(boom)

	_, err = store.FetchRecords(context.Background(), period.SingleDay(march(8)), models.GroupNone)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseRecordStore_BadMoney(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := NewClickHouseRecordStore(db, "metrics")
	require.NoError(t, err)

	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(day, "as-1", "", "", "", "", "", "", "", "NaN-ish", "0", int64(0), int64(0), int64(0), int64(0), int64(0)))

	_, err = store.FetchRecords(context.Background(), period.SingleDay(march(8)), models.GroupNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spend")
}

func TestClickHouseRecordStore_Empty(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := NewClickHouseRecordStore(db, "metrics")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := store.FetchRecords(context.Background(), period.SingleDay(march(8)), models.GroupAd)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClickHouseRecordStore_NullAdGroupStaysWithCampaign(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	store, err := NewClickHouseRecordStore(db, "metrics")
	require.NoError(t, err)

	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("GROUP BY date, coalesce\\(ad_set_id, ''\\), coalesce\\(campaign_id, ''\\), coalesce\\(market, ''\\)").
		WithArgs("2024-03-08", "2024-03-08").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(day, "", "cmp-a", "Camp A", "", "", "", "", "BR", "10", "12", int64(100), int64(20), int64(0), int64(0), int64(0)).
			AddRow(day, "", "cmp-b", "Camp B", "", "", "", "", "BR", "5", "4", int64(50), int64(10), int64(0), int64(0), int64(0)))

	records, err := store.FetchRecords(context.Background(), period.SingleDay(march(8)), models.GroupCampaign)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "cmp-a", records[0].CampaignID)
	assert.Equal(t, "10", records[0].Spend.String())
	assert.Equal(t, "cmp-b", records[1].CampaignID)
	assert.Equal(t, "5", records[1].Spend.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
