package analytics

import (
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
)

// DailyPoint is one day of a DailySeries.
type DailyPoint struct {
	Date    period.Date           `json:"date"`
	Row     *models.AggregatedRow `json:"-"`
	Metrics models.DerivedMetrics `json:"metrics"`
}

// DailySeries sums records per day of iv. Every day of iv is present,
// days without data carry zero totals. Records outside iv are ignored.
func DailySeries(records []models.MetricRecord, iv period.Interval) []DailyPoint {
	byDay := make(map[period.Date]*models.AggregatedRow, iv.Days())
	for _, r := range records {
		if !iv.Contains(r.Date) {
			continue
		}
		row, ok := byDay[r.Date]
		if !ok {
			row = models.NewAggregatedRow(r.Date.String(), r.Date.String())
			byDay[r.Date] = row
		}
		row.Add(r)
	}

	out := make([]DailyPoint, 0, iv.Days())
	iv.EachDay(func(d period.Date) {
		row, ok := byDay[d]
		if !ok {
			row = models.NewAggregatedRow(d.String(), d.String())
		}
		out = append(out, DailyPoint{Date: d, Row: row, Metrics: Derive(row)})
	})
	return out
}

// SelectGroup returns the records whose key at level groupBy equals key.
func SelectGroup(records []models.MetricRecord, groupBy models.GroupBy, key string) []models.MetricRecord {
	var out []models.MetricRecord
	for _, r := range records {
		if k, _ := r.GroupKey(groupBy); k == key {
			out = append(out, r)
		}
	}
	return out
}
