package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/shopspring/decimal"
)

// UnknownKey buckets records whose grouping field is empty.
const UnknownKey = "unknown"

// Market codes derived from ad group naming.
const (
	MarketBrazil = "BR"
	MarketMexico = "MX"
	MarketOther  = "OTHER"
)

// MetricRecord is one merged Meta Ads + System1 row for a single entity on a
// single calendar day. Only additive fields are carried; ratios are derived
// after aggregation.
type MetricRecord struct {
	EntityID string      `json:"entity_id"`
	Date     period.Date `json:"date"`

	CampaignID   string `json:"campaign_id,omitempty"`
	CampaignName string `json:"campaign_name,omitempty"`
	AdGroupID    string `json:"ad_group_id,omitempty"`
	AdGroupName  string `json:"ad_group_name,omitempty"`
	AdID         string `json:"ad_id,omitempty"`
	AdName       string `json:"ad_name,omitempty"`
	Market       string `json:"market,omitempty"`

	// Meta Ads side
	Spend      decimal.Decimal `json:"spend"`
	LinkClicks int64           `json:"link_clicks"`

	// System1 side
	Revenue        decimal.Decimal `json:"revenue"`
	WidgetClicks   int64           `json:"widget_clicks"`
	WidgetSearches int64           `json:"widget_searches"`

	// Pixel events
	SearchEvents   int64 `json:"search_events"`
	PurchaseEvents int64 `json:"purchase_events"`
}

// MarketFromAdGroupName maps the ad group naming convention to a market code.
func MarketFromAdGroupName(name string) string {
	switch {
	case strings.Contains(name, "BRA_"):
		return MarketBrazil
	case strings.Contains(name, "MEX_"):
		return MarketMexico
	default:
		return MarketOther
	}
}

// GroupBy is the aggregation level.
type GroupBy string

const (
	GroupNone     GroupBy = "none"
	GroupMarket   GroupBy = "market"
	GroupCampaign GroupBy = "campaign"
	GroupAdGroup  GroupBy = "adgroup"
	GroupAd       GroupBy = "ad"
)

// ErrUnknownGroupBy is returned for an unsupported aggregation level.
var ErrUnknownGroupBy = errors.New("unknown group by")

// ParseGroupBy accepts the level names plus the Meta aliases "adset" and "ad_set".
// An empty string means GroupNone.
func ParseGroupBy(s string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GroupNone, nil
	case "market":
		return GroupMarket, nil
	case "campaign":
		return GroupCampaign, nil
	case "adgroup", "adset", "ad_set":
		return GroupAdGroup, nil
	case "ad":
		return GroupAd, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGroupBy, s)
}

// GroupKey projects the record onto the grouping level. Blank keys become UnknownKey.
func (r MetricRecord) GroupKey(g GroupBy) (key, label string) {
	switch g {
	case GroupNone:
		return "all", "All"
	case GroupMarket:
		key, label = r.Market, r.Market
	case GroupCampaign:
		key, label = r.CampaignID, r.CampaignName
	case GroupAdGroup:
		key, label = r.AdGroupID, r.AdGroupName
	case GroupAd:
		key, label = r.AdID, r.AdName
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return UnknownKey, "Unknown"
	}
	if strings.TrimSpace(label) == "" {
		label = key
	}
	return key, label
}
