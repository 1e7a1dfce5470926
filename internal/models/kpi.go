package models

// Metric names a value that can be classified or compared.
type Metric string

const (
	MetricSpend           Metric = "spend"
	MetricRevenue         Metric = "revenue"
	MetricProfit          Metric = "profit"
	MetricROAS            Metric = "roas"
	MetricLinkClicks      Metric = "link_clicks"
	MetricWidgetClicks    Metric = "widget_clicks"
	MetricWidgetSearches  Metric = "widget_searches"
	MetricSearchEvents    Metric = "search_events"
	MetricPurchaseEvents  Metric = "purchase_events"
	MetricWidgetCTR       Metric = "widget_ctr"
	MetricRPC             Metric = "rpc"
	MetricCPC             Metric = "cpc"
	MetricCostPerSearch   Metric = "cost_per_search"
	MetricCostPerPurchase Metric = "cost_per_purchase"
)

// DerivedMetrics holds the row totals as floats plus the non-additive ratios
// computed from them. ROAS uses the relative convention: 0 is break-even,
// 0.2 is a 20% return, -1 is a total loss.
type DerivedMetrics struct {
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	Profit         float64 `json:"profit"`
	LinkClicks     int64   `json:"link_clicks"`
	WidgetClicks   int64   `json:"widget_clicks"`
	WidgetSearches int64   `json:"widget_searches"`
	SearchEvents   int64   `json:"search_events"`
	PurchaseEvents int64   `json:"purchase_events"`

	ROAS            float64 `json:"roas"`
	WidgetCTR       float64 `json:"widget_ctr"`
	RPC             float64 `json:"rpc"`
	CPC             float64 `json:"cpc"`
	CostPerSearch   float64 `json:"cost_per_search"`
	CostPerPurchase float64 `json:"cost_per_purchase"`
}

// Value looks up a metric by name.
func (m DerivedMetrics) Value(metric Metric) (float64, bool) {
	switch metric {
	case MetricSpend:
		return m.Spend, true
	case MetricRevenue:
		return m.Revenue, true
	case MetricProfit:
		return m.Profit, true
	case MetricROAS:
		return m.ROAS, true
	case MetricLinkClicks:
		return float64(m.LinkClicks), true
	case MetricWidgetClicks:
		return float64(m.WidgetClicks), true
	case MetricWidgetSearches:
		return float64(m.WidgetSearches), true
	case MetricSearchEvents:
		return float64(m.SearchEvents), true
	case MetricPurchaseEvents:
		return float64(m.PurchaseEvents), true
	case MetricWidgetCTR:
		return m.WidgetCTR, true
	case MetricRPC:
		return m.RPC, true
	case MetricCPC:
		return m.CPC, true
	case MetricCostPerSearch:
		return m.CostPerSearch, true
	case MetricCostPerPurchase:
		return m.CostPerPurchase, true
	}
	return 0, false
}

// Tier is a status bucket produced by a threshold ladder.
type Tier string

const (
	// ROAS ladder
	TierExcellent  Tier = "excellent"
	TierProfitable Tier = "profitable"
	TierBreakEven  Tier = "break_even"
	TierLoss       Tier = "loss"

	// Widget CTR ladder (shares TierExcellent)
	TierGood Tier = "good"
	TierFair Tier = "fair"
	TierPoor Tier = "poor"

	TierUnclassified Tier = "unclassified"
)

// Status carries the classification of the metrics that have ladders.
type Status struct {
	ROAS      Tier `json:"roas"`
	WidgetCTR Tier `json:"widget_ctr"`
}

// Polarity tells whether an increase in a metric is good (normal) or bad (inverse).
type Polarity int

const (
	PolarityNormal Polarity = iota
	PolarityInverse
)

func (p Polarity) String() string {
	if p == PolarityInverse {
		return "inverse"
	}
	return "normal"
}

// Direction of a change between two periods.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Delta is the change of one metric from the comparison period to the
// primary period. It only exists when the comparison value is non-zero.
type Delta struct {
	Absolute      float64   `json:"absolute"`
	Percent       float64   `json:"percent"`
	Direction     Direction `json:"direction"`
	IsImprovement bool      `json:"is_improvement"`
}
