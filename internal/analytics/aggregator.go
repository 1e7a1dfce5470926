package analytics

import (
	"sort"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
)

// Aggregate sums records into one row per group key. With GroupNone the
// result always holds exactly one "all" row, even for empty input.
// Records whose grouping field is blank land in the "unknown" row.
func Aggregate(records []models.MetricRecord, groupBy models.GroupBy) map[string]*models.AggregatedRow {
	rows := make(map[string]*models.AggregatedRow)
	if groupBy == models.GroupNone {
		key, label := models.MetricRecord{}.GroupKey(models.GroupNone)
		rows[key] = models.NewAggregatedRow(key, label)
	}

	for _, r := range records {
		key, label := r.GroupKey(groupBy)
		row, ok := rows[key]
		if !ok {
			row = models.NewAggregatedRow(key, label)
			rows[key] = row
		}
		row.GroupLabel = preferLabel(row.GroupLabel, label)
		row.Add(r)
	}
	return rows
}

// Merge combines two aggregate maps into a new one. Inputs are not modified.
func Merge(a, b map[string]*models.AggregatedRow) map[string]*models.AggregatedRow {
	out := make(map[string]*models.AggregatedRow, len(a)+len(b))
	for _, src := range []map[string]*models.AggregatedRow{a, b} {
		for key, row := range src {
			existing, ok := out[key]
			if !ok {
				out[key] = row.Clone()
				continue
			}
			label := preferLabel(existing.GroupLabel, row.GroupLabel)
			existing.Merge(row)
			existing.GroupLabel = label
		}
	}
	return out
}

// Total folds every row of a grouped aggregate into a single "all" row.
func Total(rows map[string]*models.AggregatedRow) *models.AggregatedRow {
	key, label := models.MetricRecord{}.GroupKey(models.GroupNone)
	total := models.NewAggregatedRow(key, label)
	for _, row := range rows {
		total.Merge(row)
	}
	return total
}

// SortedRows returns rows ordered by spend descending, then by key.
func SortedRows(rows map[string]*models.AggregatedRow) []*models.AggregatedRow {
	out := make([]*models.AggregatedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Spend.Cmp(out[j].Spend); c != 0 {
			return c > 0
		}
		return out[i].GroupKey < out[j].GroupKey
	})
	return out
}

// preferLabel picks the lexicographically smaller non-empty label so the
// result does not depend on record order when names disagree.
func preferLabel(current, candidate string) string {
	switch {
	case current == "":
		return candidate
	case candidate == "":
		return current
	case candidate < current:
		return candidate
	}
	return current
}
