package analytics

import (
	"math"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
)

// Derive computes the non-additive metrics of an aggregated row. It is total:
// a zero denominator yields 0, never NaN or Inf. ROAS is relative
// (revenue/spend - 1) and is 0 when there is no spend.
func Derive(row *models.AggregatedRow) models.DerivedMetrics {
	if row == nil {
		return models.DerivedMetrics{}
	}

	spend := row.Spend.InexactFloat64()
	revenue := row.Revenue.InexactFloat64()

	m := models.DerivedMetrics{
		Spend:          spend,
		Revenue:        revenue,
		Profit:         row.Revenue.Sub(row.Spend).InexactFloat64(),
		LinkClicks:     row.LinkClicks,
		WidgetClicks:   row.WidgetClicks,
		WidgetSearches: row.WidgetSearches,
		SearchEvents:   row.SearchEvents,
		PurchaseEvents: row.PurchaseEvents,
	}

	if !row.Spend.IsZero() {
		m.ROAS = RelativeROAS(row.Revenue.Div(row.Spend).InexactFloat64())
	}
	m.WidgetCTR = safeDiv(float64(row.WidgetClicks), float64(row.LinkClicks))
	m.RPC = safeDiv(revenue, float64(row.WidgetClicks))
	m.CPC = safeDiv(spend, float64(row.LinkClicks))
	m.CostPerSearch = safeDiv(spend, float64(row.SearchEvents))
	m.CostPerPurchase = safeDiv(spend, float64(row.PurchaseEvents))

	return m
}

// AbsoluteROAS converts relative ROAS (0 = break-even) to the multiplier
// convention (1.0x = break-even).
func AbsoluteROAS(relative float64) float64 {
	return relative + 1
}

// RelativeROAS converts a revenue/spend multiplier to relative ROAS.
func RelativeROAS(absolute float64) float64 {
	return absolute - 1
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
