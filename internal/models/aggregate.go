package models

import (
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/shopspring/decimal"
)

// AggregatedRow is the sum of every MetricRecord sharing a group key within an
// interval. Money is summed as decimals so that the totals do not depend on
// the order records arrive in.
type AggregatedRow struct {
	GroupKey   string `json:"group_key"`
	GroupLabel string `json:"group_label"`

	Spend          decimal.Decimal `json:"spend"`
	Revenue        decimal.Decimal `json:"revenue"`
	LinkClicks     int64           `json:"link_clicks"`
	WidgetClicks   int64           `json:"widget_clicks"`
	WidgetSearches int64           `json:"widget_searches"`
	SearchEvents   int64           `json:"search_events"`
	PurchaseEvents int64           `json:"purchase_events"`

	// RecordCount is the number of records summed into the row.
	RecordCount int `json:"record_count"`

	entities map[string]struct{}
	days     map[period.Date]struct{}
}

// NewAggregatedRow returns an empty row for the given key.
func NewAggregatedRow(key, label string) *AggregatedRow {
	return &AggregatedRow{
		GroupKey:   key,
		GroupLabel: label,
		entities:   make(map[string]struct{}),
		days:       make(map[period.Date]struct{}),
	}
}

// Add folds one record into the row.
func (a *AggregatedRow) Add(r MetricRecord) {
	a.ensureSets()
	a.Spend = a.Spend.Add(r.Spend)
	a.Revenue = a.Revenue.Add(r.Revenue)
	a.LinkClicks += r.LinkClicks
	a.WidgetClicks += r.WidgetClicks
	a.WidgetSearches += r.WidgetSearches
	a.SearchEvents += r.SearchEvents
	a.PurchaseEvents += r.PurchaseEvents
	a.RecordCount++

	entity := r.EntityID
	if entity == "" {
		entity = UnknownKey
	}
	a.entities[entity] = struct{}{}
	a.days[r.Date] = struct{}{}
}

// Merge adds other's totals into a. Label is kept from a unless a has none.
func (a *AggregatedRow) Merge(other *AggregatedRow) {
	if other == nil {
		return
	}
	a.ensureSets()
	if a.GroupLabel == "" {
		a.GroupLabel = other.GroupLabel
	}
	a.Spend = a.Spend.Add(other.Spend)
	a.Revenue = a.Revenue.Add(other.Revenue)
	a.LinkClicks += other.LinkClicks
	a.WidgetClicks += other.WidgetClicks
	a.WidgetSearches += other.WidgetSearches
	a.SearchEvents += other.SearchEvents
	a.PurchaseEvents += other.PurchaseEvents
	a.RecordCount += other.RecordCount
	for e := range other.entities {
		a.entities[e] = struct{}{}
	}
	for d := range other.days {
		a.days[d] = struct{}{}
	}
}

// Clone returns a deep copy.
func (a *AggregatedRow) Clone() *AggregatedRow {
	c := NewAggregatedRow(a.GroupKey, a.GroupLabel)
	c.Merge(a)
	return c
}

// EntityCount is the number of distinct entities summed into the row.
func (a *AggregatedRow) EntityCount() int { return len(a.entities) }

// DayCount is the number of distinct calendar days summed into the row.
func (a *AggregatedRow) DayCount() int { return len(a.days) }

func (a *AggregatedRow) ensureSets() {
	if a.entities == nil {
		a.entities = make(map[string]struct{})
	}
	if a.days == nil {
		a.days = make(map[period.Date]struct{})
	}
}
