package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/shopspring/decimal"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validateTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

// sqlDialect covers the few spots where ClickHouse and PostgreSQL differ.
type sqlDialect struct {
	placeholder func(n int) string
	dateParam   func(p string) string
	toText      func(expr string) string
	toInt       func(expr string) string
}

var postgresDialect = sqlDialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	dateParam:   func(p string) string { return p + "::date" },
	toText:      func(expr string) string { return "(" + expr + ")::text" },
	toInt:       func(expr string) string { return "(" + expr + ")::bigint" },
}

var clickhouseDialect = sqlDialect{
	placeholder: func(int) string { return "?" },
	dateParam:   func(p string) string { return "toDate(" + p + ")" },
	toText:      func(expr string) string { return "toString(" + expr + ")" },
	toInt:       func(expr string) string { return "toInt64(" + expr + ")" },
}

// entityColumn is the granularity the SQL stores pre-aggregate to. Ad
// groups unless the caller asked for ads, so entity counts mean ad groups.
func entityColumn(groupBy models.GroupBy) string {
	if groupBy == models.GroupAd {
		return "ad_id"
	}
	return "ad_set_id"
}

// identityColumns are scanned in this order after date and entity_id.
var identityColumns = []string{
	"campaign_id", "campaign_name",
	"ad_set_id", "ad_set_name",
	"ad_id", "ad_name",
	"market",
}

var moneyColumns = []string{"spend", "revenue"}

var counterColumns = []string{
	"link_clicks", "widget_clicks", "widget_searches", "searches", "purchases",
}

// parentColumns are grouped on next to the entity so rows with a NULL entity
// never merge across campaigns or markets.
func parentColumns(groupBy models.GroupBy) []string {
	if groupBy == models.GroupAd {
		return []string{"campaign_id", "ad_set_id", "market"}
	}
	return []string{"campaign_id", "market"}
}

// buildRecordQuery returns a query that sums the metrics table to one row
// per (date, entity, parents) between two date parameters.
func buildRecordQuery(d sqlDialect, table string, groupBy models.GroupBy) string {
	entity := fmt.Sprintf("coalesce(%s, '')", entityColumn(groupBy))

	parents := parentColumns(groupBy)
	isParent := make(map[string]bool, len(parents))
	groupExprs := []string{"date", entity}
	for _, c := range parents {
		isParent[c] = true
		groupExprs = append(groupExprs, fmt.Sprintf("coalesce(%s, '')", c))
	}

	cols := []string{"date", entity + " AS entity_id"}
	for _, c := range identityColumns {
		if isParent[c] {
			cols = append(cols, fmt.Sprintf("coalesce(%s, '') AS %s", c, c))
			continue
		}
		cols = append(cols, fmt.Sprintf("coalesce(max(%s), '') AS %s", c, c))
	}
	for _, c := range moneyColumns {
		cols = append(cols, fmt.Sprintf("%s AS %s", d.toText(fmt.Sprintf("coalesce(sum(%s), 0)", c)), c))
	}
	for _, c := range counterColumns {
		cols = append(cols, fmt.Sprintf("%s AS %s", d.toInt(fmt.Sprintf("coalesce(sum(%s), 0)", c)), c))
	}

	var b strings.Builder
	b.WriteString("SELECT\n\t")
	b.WriteString(strings.Join(cols, ",\n\t"))
	b.WriteString("\nFROM ")
	b.WriteString(table)
	fmt.Fprintf(&b, "\nWHERE date >= %s AND date <= %s",
		d.dateParam(d.placeholder(1)), d.dateParam(d.placeholder(2)))
	b.WriteString("\nGROUP BY ")
	b.WriteString(strings.Join(groupExprs, ", "))
	b.WriteString("\nORDER BY date, entity_id, ")
	b.WriteString(strings.Join(parents, ", "))
	return b.String()
}

// rowScanner is satisfied by both *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (models.MetricRecord, error) {
	var (
		r              models.MetricRecord
		day            time.Time
		spend, revenue string
	)
	err := s.Scan(
		&day, &r.EntityID,
		&r.CampaignID, &r.CampaignName,
		&r.AdGroupID, &r.AdGroupName,
		&r.AdID, &r.AdName,
		&r.Market,
		&spend, &revenue,
		&r.LinkClicks, &r.WidgetClicks, &r.WidgetSearches, &r.SearchEvents, &r.PurchaseEvents,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}

	r.Date = period.DateOf(day)
	if r.Spend, err = decimal.NewFromString(spend); err != nil {
		return r, fmt.Errorf("failed to parse spend %q: %w", spend, err)
	}
	if r.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return r, fmt.Errorf("failed to parse revenue %q: %w", revenue, err)
	}
	normalizeRecord(&r)
	return r, nil
}
