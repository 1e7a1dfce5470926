package analytics

import (
	"testing"

	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyedRow(key, spend, revenue string, links, widget int64) *models.AggregatedRow {
	r := row(spend, revenue, links, widget, 0, 0)
	r.GroupKey = key
	r.GroupLabel = "label-" + key
	return r
}

// =============================================================================
// ALERTS
// =============================================================================

func TestEvaluateAlerts(t *testing.T) {
	rows := map[string]*models.AggregatedRow{
		// 0.5x: critical
		"crit": keyedRow("crit", "200", "100", 1000, 300),
		// 0.9x with spend > 100: warning
		"warn": keyedRow("warn", "150", "135", 1000, 300),
		// 0.9x but small spend: not a warning, CTR fine
		"small": keyedRow("small", "50", "45", 1000, 300),
		// profitable but widget CTR 5%: info
		"ctr": keyedRow("ctr", "100", "150", 1000, 50),
		// healthy
		"ok": keyedRow("ok", "100", "150", 1000, 300),
		// no spend, no clicks
		"idle": keyedRow("idle", "0", "0", 0, 0),
	}

	alerts := EvaluateAlerts(rows, config.DefaultThresholds().Alerts)

	require.Len(t, alerts.Critical, 1)
	assert.Equal(t, "crit", alerts.Critical[0].GroupKey)
	assert.Equal(t, AlertCritical, alerts.Critical[0].Level)
	assert.InDelta(t, 0.5, alerts.Critical[0].ROASMultiplier, 1e-9)
	assert.Contains(t, alerts.Critical[0].Reason, "0.50x")

	require.Len(t, alerts.Warning, 1)
	assert.Equal(t, "warn", alerts.Warning[0].GroupKey)
	assert.InDelta(t, 0.9, alerts.Warning[0].ROASMultiplier, 1e-9)

	require.Len(t, alerts.Info, 1)
	assert.Equal(t, "ctr", alerts.Info[0].GroupKey)
	assert.InDelta(t, 0.05, alerts.Info[0].WidgetCTR, 1e-9)

	assert.Equal(t, 3, alerts.Count())
}

func TestEvaluateAlerts_MostSevereOnly(t *testing.T) {
	// critical ROAS and poor CTR at once
	rows := map[string]*models.AggregatedRow{
		"both": keyedRow("both", "500", "100", 1000, 10),
	}

	alerts := EvaluateAlerts(rows, config.DefaultThresholds().Alerts)
	assert.Len(t, alerts.Critical, 1)
	assert.Empty(t, alerts.Warning)
	assert.Empty(t, alerts.Info)
}

func TestEvaluateAlerts_EmptyListsNotNil(t *testing.T) {
	alerts := EvaluateAlerts(nil, config.DefaultThresholds().Alerts)
	assert.NotNil(t, alerts.Critical)
	assert.NotNil(t, alerts.Warning)
	assert.NotNil(t, alerts.Info)
	assert.Zero(t, alerts.Count())
}

func TestEvaluateAlerts_OrderedBySpend(t *testing.T) {
	rows := map[string]*models.AggregatedRow{
		"x": keyedRow("x", "150", "10", 10, 5),
		"y": keyedRow("y", "900", "10", 10, 5),
		"z": keyedRow("z", "300", "10", 10, 5),
	}

	alerts := EvaluateAlerts(rows, config.DefaultThresholds().Alerts)
	require.Len(t, alerts.Critical, 3)
	assert.Equal(t, "y", alerts.Critical[0].GroupKey)
	assert.Equal(t, "z", alerts.Critical[1].GroupKey)
	assert.Equal(t, "x", alerts.Critical[2].GroupKey)
}

// =============================================================================
// SCENARIO SEED
// =============================================================================

func TestBuildScenarioSeed(t *testing.T) {
	iv := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}
	seed := BuildScenarioSeed(iv, row("1000", "200", 5000, 1000, 0, 0), config.DefaultThresholds().Scenario)

	assert.Equal(t, 0.20, seed.CPC)
	assert.Equal(t, 0.20, seed.RPC)
	assert.Equal(t, 20.0, seed.WidgetCTRPercent)
	assert.Equal(t, 143.0, seed.DailySpend)
	assert.Equal(t, iv, seed.Interval)
}

func TestBuildScenarioSeed_Defaults(t *testing.T) {
	iv := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}
	defaults := config.DefaultThresholds().Scenario

	seed := BuildScenarioSeed(iv, row("0", "0", 0, 0, 0, 0), defaults)
	assert.Equal(t, 0.15, seed.CPC)
	assert.Equal(t, 0.08, seed.RPC)
	assert.Equal(t, 25.0, seed.WidgetCTRPercent)
	assert.Equal(t, 500.0, seed.DailySpend)

	assert.Equal(t, seed, BuildScenarioSeed(iv, nil, defaults))
}

func TestBuildScenarioSeed_PerFieldFallback(t *testing.T) {
	iv := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}

	// clicks but no widget clicks: RPC falls back, the rest is computed
	seed := BuildScenarioSeed(iv, row("70", "0", 700, 0, 0, 0), config.DefaultThresholds().Scenario)
	assert.Equal(t, 0.10, seed.CPC)
	assert.Equal(t, 0.08, seed.RPC)
	assert.Equal(t, 0.0, seed.WidgetCTRPercent)
	assert.Equal(t, 10.0, seed.DailySpend)
}
