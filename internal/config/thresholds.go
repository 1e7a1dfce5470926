package config

import (
	"fmt"
	"os"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"gopkg.in/yaml.v3"
)

// TierStep assigns Tier to any value >= Min.
type TierStep struct {
	Tier models.Tier `yaml:"tier"`
	Min  float64     `yaml:"min"`
}

// Ladder is an ordered threshold table, evaluated from the highest step down.
// Values below every step get Floor.
type Ladder struct {
	Steps []TierStep  `yaml:"steps"`
	Floor models.Tier `yaml:"floor"`
}

// AlertThresholds are the alert criteria. ROAS values here are multipliers
// (1.0x = break-even) because that is how the criteria are stated.
type AlertThresholds struct {
	CriticalROASMultiplier float64 `yaml:"critical_roas_multiplier"`
	WarningROASMultiplier  float64 `yaml:"warning_roas_multiplier"`
	WarningMinSpend        float64 `yaml:"warning_min_spend"`
	InfoWidgetCTR          float64 `yaml:"info_widget_ctr"`
}

// ScenarioDefaults seed the scenario builder when there is no data to average.
type ScenarioDefaults struct {
	CPC              float64 `yaml:"cpc"`
	RPC              float64 `yaml:"rpc"`
	WidgetCTRPercent float64 `yaml:"widget_ctr_percent"`
	DailySpend       float64 `yaml:"daily_spend"`
}

// Thresholds is the single table shared by classification, alerting and
// display. Nothing else should carry business thresholds.
type Thresholds struct {
	ROAS      Ladder           `yaml:"roas"`
	WidgetCTR Ladder           `yaml:"widget_ctr"`
	Alerts    AlertThresholds  `yaml:"alerts"`
	Scenario  ScenarioDefaults `yaml:"scenario"`
}

// DefaultThresholds returns the built-in table. ROAS is relative (0 = break-even).
func DefaultThresholds() Thresholds {
	return Thresholds{
		ROAS: Ladder{
			Steps: []TierStep{
				{Tier: models.TierExcellent, Min: 0.5},
				{Tier: models.TierProfitable, Min: 0.0},
				{Tier: models.TierBreakEven, Min: -0.3},
			},
			Floor: models.TierLoss,
		},
		WidgetCTR: Ladder{
			Steps: []TierStep{
				{Tier: models.TierExcellent, Min: 0.30},
				{Tier: models.TierGood, Min: 0.20},
				{Tier: models.TierFair, Min: 0.10},
			},
			Floor: models.TierPoor,
		},
		Alerts: AlertThresholds{
			CriticalROASMultiplier: 0.7,
			WarningROASMultiplier:  1.0,
			WarningMinSpend:        100,
			InfoWidgetCTR:          0.10,
		},
		Scenario: ScenarioDefaults{
			CPC:              0.15,
			RPC:              0.08,
			WidgetCTRPercent: 25.0,
			DailySpend:       500,
		},
	}
}

// LoadThresholds reads a YAML file and overlays it on DefaultThresholds.
// Keys missing from the file keep their defaults; a ladder present in the
// file replaces the default ladder entirely.
func LoadThresholds(path string) (Thresholds, error) {
	th := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("failed to read thresholds file: %w", err)
	}
	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("failed to parse thresholds file: %w", err)
	}
	if err := th.Validate(); err != nil {
		return th, err
	}
	return th, nil
}

// Validate checks every ladder is strictly descending and has a floor.
func (t Thresholds) Validate() error {
	if err := t.ROAS.validate("roas"); err != nil {
		return err
	}
	if err := t.WidgetCTR.validate("widget_ctr"); err != nil {
		return err
	}
	if t.Alerts.CriticalROASMultiplier > t.Alerts.WarningROASMultiplier {
		return fmt.Errorf("alerts: critical ROAS multiplier must not exceed warning multiplier")
	}
	return nil
}

func (l Ladder) validate(name string) error {
	if len(l.Steps) == 0 {
		return fmt.Errorf("%s ladder has no steps", name)
	}
	if l.Floor == "" {
		return fmt.Errorf("%s ladder has no floor tier", name)
	}
	for i, s := range l.Steps {
		if s.Tier == "" {
			return fmt.Errorf("%s ladder step %d has no tier", name, i)
		}
		if i > 0 && s.Min >= l.Steps[i-1].Min {
			return fmt.Errorf("%s ladder must be strictly descending at step %d", name, i)
		}
	}
	return nil
}
