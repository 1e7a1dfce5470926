package analytics

import (
	"math"

	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
)

// Classifier maps metric values to tiers using the threshold table.
type Classifier struct {
	ladders map[models.Metric]config.Ladder
}

// NewClassifier builds a classifier for every metric with a ladder in th.
func NewClassifier(th config.Thresholds) *Classifier {
	return &Classifier{
		ladders: map[models.Metric]config.Ladder{
			models.MetricROAS:      th.ROAS,
			models.MetricWidgetCTR: th.WidgetCTR,
		},
	}
}

// Classify returns the highest tier whose threshold value meets. NaN falls to
// the ladder floor; a metric without a ladder is TierUnclassified.
func (c *Classifier) Classify(metric models.Metric, value float64) models.Tier {
	ladder, ok := c.ladders[metric]
	if !ok {
		return models.TierUnclassified
	}
	if math.IsNaN(value) {
		return ladder.Floor
	}
	for _, step := range ladder.Steps {
		if value >= step.Min {
			return step.Tier
		}
	}
	return ladder.Floor
}

// Status classifies the metrics that carry a ladder.
func (c *Classifier) Status(m models.DerivedMetrics) models.Status {
	return models.Status{
		ROAS:      c.Classify(models.MetricROAS, m.ROAS),
		WidgetCTR: c.Classify(models.MetricWidgetCTR, m.WidgetCTR),
	}
}
