package analytics

import (
	"fmt"

	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertWarning  AlertLevel = "warning"
	AlertInfo     AlertLevel = "info"
)

// Alert flags one group that needs attention.
type Alert struct {
	Level      AlertLevel `json:"level"`
	GroupKey   string     `json:"group_key"`
	GroupLabel string     `json:"group_label"`
	Reason     string     `json:"reason"`
	Spend      float64    `json:"spend"`
	Revenue    float64    `json:"revenue"`
	// ROASMultiplier is revenue/spend (1.0 = break-even).
	ROASMultiplier float64 `json:"roas_multiplier"`
	WidgetCTR      float64 `json:"widget_ctr"`
}

// Alerts groups alerts by level.
type Alerts struct {
	Critical []Alert `json:"critical"`
	Warning  []Alert `json:"warning"`
	Info     []Alert `json:"info"`
}

// Count returns the total number of alerts.
func (a Alerts) Count() int {
	return len(a.Critical) + len(a.Warning) + len(a.Info)
}

// EvaluateAlerts checks every row against the alert thresholds. Each row
// yields at most one alert, the most severe that applies. Rows are visited
// in SortedRows order so the output is stable.
func EvaluateAlerts(rows map[string]*models.AggregatedRow, th config.AlertThresholds) Alerts {
	out := Alerts{
		Critical: []Alert{},
		Warning:  []Alert{},
		Info:     []Alert{},
	}

	for _, row := range SortedRows(rows) {
		m := Derive(row)
		alert := Alert{
			GroupKey:   row.GroupKey,
			GroupLabel: row.GroupLabel,
			Spend:      m.Spend,
			Revenue:    m.Revenue,
			WidgetCTR:  m.WidgetCTR,
		}

		hasSpend := m.Spend > 0
		if hasSpend {
			alert.ROASMultiplier = AbsoluteROAS(m.ROAS)
		}

		switch {
		case hasSpend && alert.ROASMultiplier < th.CriticalROASMultiplier:
			alert.Level = AlertCritical
			alert.Reason = fmt.Sprintf("ROAS %.2fx below %.2fx", alert.ROASMultiplier, th.CriticalROASMultiplier)
			out.Critical = append(out.Critical, alert)
		case m.Spend > th.WarningMinSpend && alert.ROASMultiplier < th.WarningROASMultiplier:
			alert.Level = AlertWarning
			alert.Reason = fmt.Sprintf("spend %.2f with ROAS %.2fx below %.2fx",
				m.Spend, alert.ROASMultiplier, th.WarningROASMultiplier)
			out.Warning = append(out.Warning, alert)
		case m.LinkClicks > 0 && m.WidgetCTR < th.InfoWidgetCTR:
			alert.Level = AlertInfo
			alert.Reason = fmt.Sprintf("widget CTR %.1f%% below %.1f%%", m.WidgetCTR*100, th.InfoWidgetCTR*100)
			out.Info = append(out.Info, alert)
		}
	}
	return out
}
