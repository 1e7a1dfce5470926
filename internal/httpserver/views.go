package httpserver

import (
	"math"

	"github.com/radiusdt/arbitrage-dashboard/internal/analytics"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/shopspring/decimal"
)

// Rounding happens here and nowhere else: money to cents, ratios to four
// places, percentages to two.
const (
	moneyPlaces   = 2
	ratioPlaces   = 4
	percentPlaces = 2
)

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func money(d decimal.Decimal) float64 {
	return d.Round(moneyPlaces).InexactFloat64()
}

type metricsView struct {
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Profit         float64 `json:"profit"`
	LinkClicks     int64   `json:"link_clicks"`
	WidgetClicks   int64   `json:"widget_clicks"`
	WidgetSearches int64   `json:"widget_searches"`
	SearchEvents   int64   `json:"search_events"`
	PurchaseEvents int64   `json:"purchase_events"`

	ROAS            float64 `json:"roas"`
	ROASMultiplier  float64 `json:"roas_multiplier"`
	WidgetCTR       float64 `json:"widget_ctr"`
	RPC             float64 `json:"rpc"`
	CPC             float64 `json:"cpc"`
	CostPerSearch   float64 `json:"cost_per_search"`
	CostPerPurchase float64 `json:"cost_per_purchase"`
}

// newMetricsView takes money from the decimal row so totals are exact.
func newMetricsView(row *models.AggregatedRow, m models.DerivedMetrics) metricsView {
	v := metricsView{
		Spend:          round(m.Spend, moneyPlaces),
		Revenue:        round(m.Revenue, moneyPlaces),
		Profit:         round(m.Profit, moneyPlaces),
		LinkClicks:     m.LinkClicks,
		WidgetClicks:   m.WidgetClicks,
		WidgetSearches: m.WidgetSearches,
		SearchEvents:   m.SearchEvents,
		PurchaseEvents: m.PurchaseEvents,

		ROAS:            round(m.ROAS, ratioPlaces),
		ROASMultiplier:  round(analytics.AbsoluteROAS(m.ROAS), ratioPlaces),
		WidgetCTR:       round(m.WidgetCTR, ratioPlaces),
		RPC:             round(m.RPC, ratioPlaces),
		CPC:             round(m.CPC, ratioPlaces),
		CostPerSearch:   round(m.CostPerSearch, ratioPlaces),
		CostPerPurchase: round(m.CostPerPurchase, ratioPlaces),
	}
	if row != nil {
		v.Spend = money(row.Spend)
		v.Revenue = money(row.Revenue)
		v.Profit = money(row.Revenue.Sub(row.Spend))
	}
	return v
}

type deltaView struct {
	Absolute      float64          `json:"absolute"`
	Percent       float64          `json:"percent"`
	Direction     models.Direction `json:"direction"`
	IsImprovement bool             `json:"is_improvement"`
}

// newDeltasView keeps metrics without a delta as explicit nulls.
func newDeltasView(d analytics.Deltas) map[models.Metric]*deltaView {
	out := make(map[models.Metric]*deltaView, len(d))
	for metric, delta := range d {
		if delta == nil {
			out[metric] = nil
			continue
		}
		out[metric] = &deltaView{
			Absolute:      round(delta.Absolute, ratioPlaces),
			Percent:       round(delta.Percent, percentPlaces),
			Direction:     delta.Direction,
			IsImprovement: delta.IsImprovement,
		}
	}
	return out
}

type snapshotView struct {
	Interval           period.Interval `json:"interval"`
	Days               int             `json:"days"`
	DaysWithData       int             `json:"days_with_data"`
	Records            int             `json:"records"`
	Entities           int             `json:"total_campaigns"`
	ProfitableEntities int             `json:"profitable_campaigns"`
	Metrics            metricsView     `json:"metrics"`
	Status             models.Status   `json:"status"`
}

func newSnapshotView(s analytics.Snapshot) snapshotView {
	return snapshotView{
		Interval:           s.Interval,
		Days:               s.Interval.Days(),
		DaysWithData:       s.Row.DayCount(),
		Records:            s.Row.RecordCount,
		Entities:           s.Entities,
		ProfitableEntities: s.ProfitableEntities,
		Metrics:            newMetricsView(s.Row, s.Metrics),
		Status:             s.Status,
	}
}

type groupView struct {
	Key        string                       `json:"key"`
	Label      string                       `json:"label"`
	Primary    snapshotView                 `json:"primary"`
	Comparison *snapshotView                `json:"comparison,omitempty"`
	Deltas     map[models.Metric]*deltaView `json:"deltas,omitempty"`
}

type kpiView struct {
	Selection  string                       `json:"selection"`
	Today      period.Date                  `json:"today"`
	Resolution period.Resolution            `json:"resolution"`
	GroupBy    models.GroupBy               `json:"group_by"`
	Primary    snapshotView                 `json:"primary"`
	Comparison *snapshotView                `json:"comparison,omitempty"`
	Deltas     map[models.Metric]*deltaView `json:"deltas"`
	Groups     []groupView                  `json:"groups,omitempty"`
}

func newKPIView(rep *analytics.KPIReport, today period.Date) kpiView {
	v := kpiView{
		Selection:  rep.Selection.String(),
		Today:      today,
		Resolution: rep.Resolution,
		GroupBy:    rep.GroupBy,
		Primary:    newSnapshotView(rep.Primary),
		Deltas:     newDeltasView(rep.Deltas),
	}
	if rep.Comparison != nil {
		c := newSnapshotView(*rep.Comparison)
		v.Comparison = &c
	}
	for _, g := range rep.Groups {
		gv := groupView{
			Key:     g.Key,
			Label:   g.Label,
			Primary: newSnapshotView(g.Primary),
		}
		if g.Comparison != nil {
			c := newSnapshotView(*g.Comparison)
			gv.Comparison = &c
			gv.Deltas = newDeltasView(g.Deltas)
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

// campaignRow is one line of the performance table.
type campaignRow struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Entities int           `json:"entities"`
	Metrics  metricsView   `json:"metrics"`
	Status   models.Status `json:"status"`
}

type campaignTable struct {
	Level    models.GroupBy  `json:"level"`
	Interval period.Interval `json:"interval"`
	Total    metricsView     `json:"total"`
	Rows     []campaignRow   `json:"rows"`
}

func newCampaignTable(rep *analytics.KPIReport) campaignTable {
	t := campaignTable{
		Level:    rep.GroupBy,
		Interval: rep.Resolution.Primary,
		Total:    newMetricsView(rep.Primary.Row, rep.Primary.Metrics),
		Rows:     make([]campaignRow, 0, len(rep.Groups)),
	}
	for _, g := range rep.Groups {
		t.Rows = append(t.Rows, campaignRow{
			ID:       g.Key,
			Name:     g.Label,
			Entities: g.Primary.Entities,
			Metrics:  newMetricsView(g.Primary.Row, g.Primary.Metrics),
			Status:   g.Primary.Status,
		})
	}
	return t
}

type alertView struct {
	Level          analytics.AlertLevel `json:"level"`
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Reason         string               `json:"reason"`
	Spend          float64              `json:"spend"`
	Revenue        float64              `json:"revenue"`
	ROASMultiplier float64              `json:"roas_multiplier"`
	WidgetCTR      float64              `json:"widget_ctr"`
}

type alertsView struct {
	Interval period.Interval `json:"interval"`
	Critical []alertView     `json:"critical"`
	Warning  []alertView     `json:"warning"`
	Info     []alertView     `json:"info"`
	Count    int             `json:"count"`
}

func newAlertViews(in []analytics.Alert) []alertView {
	out := make([]alertView, 0, len(in))
	for _, a := range in {
		out = append(out, alertView{
			Level:          a.Level,
			ID:             a.GroupKey,
			Name:           a.GroupLabel,
			Reason:         a.Reason,
			Spend:          round(a.Spend, moneyPlaces),
			Revenue:        round(a.Revenue, moneyPlaces),
			ROASMultiplier: round(a.ROASMultiplier, ratioPlaces),
			WidgetCTR:      round(a.WidgetCTR, ratioPlaces),
		})
	}
	return out
}

type dailyPointView struct {
	Date    period.Date `json:"date"`
	Metrics metricsView `json:"metrics"`
}

type dailySeriesView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Interval period.Interval  `json:"interval"`
	Total    metricsView      `json:"total"`
	Points   []dailyPointView `json:"points"`
}
