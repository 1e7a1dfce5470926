package analytics

import (
	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/shopspring/decimal"
)

// ScenarioSeed is the set of weighted averages used to prefill the scenario
// builder. Each field falls back to its default on its own when the data
// cannot produce it.
type ScenarioSeed struct {
	Interval         period.Interval `json:"interval"`
	CPC              float64         `json:"cpc"`
	RPC              float64         `json:"rpc"`
	WidgetCTRPercent float64         `json:"widget_ctr"`
	DailySpend       float64         `json:"spend"`
}

// BuildScenarioSeed derives the seed from the totals of iv. Values are
// rounded for display: CPC and RPC to cents, CTR to one decimal, daily spend
// to a whole amount.
func BuildScenarioSeed(iv period.Interval, row *models.AggregatedRow, defaults config.ScenarioDefaults) ScenarioSeed {
	seed := ScenarioSeed{
		Interval:         iv,
		CPC:              defaults.CPC,
		RPC:              defaults.RPC,
		WidgetCTRPercent: defaults.WidgetCTRPercent,
		DailySpend:       defaults.DailySpend,
	}
	if row == nil {
		return seed
	}

	if row.LinkClicks > 0 {
		clicks := decimal.NewFromInt(row.LinkClicks)
		seed.CPC = row.Spend.Div(clicks).Round(2).InexactFloat64()
		seed.WidgetCTRPercent = decimal.NewFromInt(row.WidgetClicks).
			Mul(decimal.NewFromInt(100)).
			Div(clicks).Round(1).InexactFloat64()
	}
	if row.WidgetClicks > 0 {
		seed.RPC = row.Revenue.Div(decimal.NewFromInt(row.WidgetClicks)).Round(2).InexactFloat64()
	}
	if row.Spend.IsPositive() && iv.Days() > 0 {
		seed.DailySpend = row.Spend.Div(decimal.NewFromInt(int64(iv.Days()))).Round(0).InexactFloat64()
	}
	return seed
}
