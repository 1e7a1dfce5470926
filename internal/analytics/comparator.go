package analytics

import (
	"math"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
)

// PolarityTable says, per metric, whether going up is good.
type PolarityTable map[models.Metric]models.Polarity

// DefaultPolarity is the polarity of every metric the dashboard compares.
func DefaultPolarity() PolarityTable {
	return PolarityTable{
		models.MetricSpend:           models.PolarityInverse,
		models.MetricRevenue:         models.PolarityNormal,
		models.MetricProfit:          models.PolarityNormal,
		models.MetricROAS:            models.PolarityNormal,
		models.MetricLinkClicks:      models.PolarityNormal,
		models.MetricWidgetClicks:    models.PolarityNormal,
		models.MetricWidgetSearches:  models.PolarityNormal,
		models.MetricSearchEvents:    models.PolarityNormal,
		models.MetricPurchaseEvents:  models.PolarityNormal,
		models.MetricWidgetCTR:       models.PolarityNormal,
		models.MetricRPC:             models.PolarityNormal,
		models.MetricCPC:             models.PolarityInverse,
		models.MetricCostPerSearch:   models.PolarityInverse,
		models.MetricCostPerPurchase: models.PolarityInverse,
	}
}

// Deltas holds one entry per compared metric. A nil entry means no
// comparison was possible.
type Deltas map[models.Metric]*models.Delta

// Compare computes the delta of every metric in table. Without a comparison
// period every entry is nil.
func Compare(primary models.DerivedMetrics, comparison *models.DerivedMetrics, table PolarityTable) Deltas {
	out := make(Deltas, len(table))
	for metric, polarity := range table {
		if comparison == nil {
			out[metric] = nil
			continue
		}
		p, ok := primary.Value(metric)
		if !ok {
			continue
		}
		c, _ := comparison.Value(metric)
		out[metric] = ComputeDelta(p, c, polarity)
	}
	return out
}

// ComputeDelta returns nil when c is 0 since a percentage change from zero is
// undefined. Percent is (p-c)/c*100, so its sign flips on a negative base;
// Direction and IsImprovement always follow p-c.
func ComputeDelta(p, c float64, polarity models.Polarity) *models.Delta {
	if c == 0 || math.IsNaN(c) || math.IsNaN(p) {
		return nil
	}

	abs := p - c
	d := &models.Delta{
		Absolute: abs,
		Percent:  abs / c * 100,
	}

	switch {
	case abs > 0:
		d.Direction = models.DirectionUp
		d.IsImprovement = polarity == models.PolarityNormal
	case abs < 0:
		d.Direction = models.DirectionDown
		d.IsImprovement = polarity == models.PolarityInverse
	default:
		d.Direction = models.DirectionFlat
	}
	return d
}
