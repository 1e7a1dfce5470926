package analytics

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/radiusdt/arbitrage-dashboard/internal/config"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(
		period.NewResolver(time.Monday, period.DefaultMaxSpanDays),
		NewClassifier(config.DefaultThresholds()),
		nil,
	)
}

// windowFetcher serves a fixed record set per interval.
type windowFetcher struct {
	mu      sync.Mutex
	byStart map[period.Date][]models.MetricRecord
	calls   []period.Interval
	err     error
}

func (f *windowFetcher) FetchRecords(_ context.Context, iv period.Interval, _ models.GroupBy) ([]models.MetricRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, iv)
	if f.err != nil {
		return nil, f.err
	}
	return f.byStart[iv.Start], nil
}

// spreadRecords splits totals evenly over the days of iv for one entity.
func spreadRecords(entity string, iv period.Interval, spend, revenue int64, links, widget int64) []models.MetricRecord {
	n := int64(iv.Days())
	var out []models.MetricRecord
	i := int64(0)
	iv.EachDay(func(d period.Date) {
		r := models.MetricRecord{
			EntityID:     entity,
			Date:         d,
			CampaignID:   "cmp-" + entity,
			CampaignName: "Campaign " + entity,
			AdGroupID:    entity,
			AdGroupName:  entity,
			Market:       models.MarketBrazil,
			Spend:        decimal.NewFromInt(spend).Div(decimal.NewFromInt(n)),
			Revenue:      decimal.NewFromInt(revenue).Div(decimal.NewFromInt(n)),
			LinkClicks:   links / n,
			WidgetClicks: widget / n,
		}
		// put the remainder on the first day so counters sum exactly
		if i == 0 {
			r.LinkClicks += links % n
			r.WidgetClicks += widget % n
		}
		out = append(out, r)
		i++
	})
	return out
}

// =============================================================================
// COMPUTE KPIS
// =============================================================================

func TestComputeKPIs_EndToEnd(t *testing.T) {
	today := period.NewDate(2024, 3, 15)
	primary := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}
	comparison := period.Interval{Start: period.NewDate(2024, 3, 1), End: period.NewDate(2024, 3, 7)}

	fetcher := &windowFetcher{byStart: map[period.Date][]models.MetricRecord{
		primary.Start:    spreadRecords("a1", primary, 1000, 1200, 5000, 1000),
		comparison.Start: spreadRecords("a1", comparison, 1000, 1000, 5000, 1000),
	}}

	report, err := newTestEngine().ComputeKPIs(context.Background(), KPIRequest{
		Selection: period.PresetSelection(period.PresetLast7Days),
		Today:     today,
		Compare:   true,
	}, fetcher)
	require.NoError(t, err)

	assert.Equal(t, primary, report.Resolution.Primary)
	require.NotNil(t, report.Resolution.Comparison)
	assert.Equal(t, comparison, *report.Resolution.Comparison)
	assert.Len(t, fetcher.calls, 2)

	assert.InDelta(t, 0.2, report.Primary.Metrics.ROAS, 1e-9)
	assert.Equal(t, models.TierProfitable, report.Primary.Status.ROAS)
	assert.Equal(t, models.TierGood, report.Primary.Status.WidgetCTR)

	require.NotNil(t, report.Comparison)
	assert.Equal(t, 0.0, report.Comparison.Metrics.ROAS)

	assert.Nil(t, report.Deltas[models.MetricROAS])

	rev := report.Deltas[models.MetricRevenue]
	require.NotNil(t, rev)
	assert.InDelta(t, 20.0, rev.Percent, 1e-9)
	assert.Equal(t, models.DirectionUp, rev.Direction)
	assert.True(t, rev.IsImprovement)

	spend := report.Deltas[models.MetricSpend]
	require.NotNil(t, spend)
	assert.Equal(t, models.DirectionFlat, spend.Direction)
	assert.False(t, spend.IsImprovement)

	assert.Equal(t, 1, report.Primary.Entities)
	assert.Equal(t, 1, report.Primary.ProfitableEntities)
	assert.Equal(t, 0, report.Comparison.ProfitableEntities)
	assert.Empty(t, report.Groups)
}

func TestComputeKPIs_NoComparison(t *testing.T) {
	fetcher := &windowFetcher{}

	report, err := newTestEngine().ComputeKPIs(context.Background(), KPIRequest{
		Selection: period.PresetSelection(period.PresetToday),
		Today:     period.NewDate(2024, 3, 15),
	}, fetcher)
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 1)
	assert.Nil(t, report.Comparison)
	assert.Nil(t, report.Resolution.Comparison)
	for _, d := range report.Deltas {
		assert.Nil(t, d)
	}

	// empty input is not an error
	assert.Equal(t, models.DerivedMetrics{}, report.Primary.Metrics)
	assert.Equal(t, 0, report.Primary.Entities)
}

func TestComputeKPIs_ResolutionErrorsSkipFetch(t *testing.T) {
	var calls int32
	fetcher := FetcherFunc(func(context.Context, period.Interval, models.GroupBy) ([]models.MetricRecord, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})
	today := period.NewDate(2024, 3, 15)

	tests := []struct {
		name string
		req  KPIRequest
		is   error
	}{
		{"unknown preset", KPIRequest{Selection: period.PresetSelection("last_3_years"), Today: today}, period.ErrUnknownPreset},
		{"future end", KPIRequest{Selection: period.CustomSelection(today, today.AddDays(1)), Today: today}, period.ErrInvalidRange},
		{"bad group by", KPIRequest{Selection: period.PresetSelection(period.PresetToday), Today: today, GroupBy: "region"}, models.ErrUnknownGroupBy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEngine().ComputeKPIs(context.Background(), tt.req, fetcher)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.True(t, IsResolutionError(err))
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestComputeKPIs_FetchError(t *testing.T) {
	boom := errors.New("store down")
	fetcher := &windowFetcher{err: boom}

	_, err := newTestEngine().ComputeKPIs(context.Background(), KPIRequest{
		Selection: period.PresetSelection(period.PresetLast7Days),
		Today:     period.NewDate(2024, 3, 15),
		Compare:   true,
	}, fetcher)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsResolutionError(err))
}

func TestComputeKPIs_MissingToday(t *testing.T) {
	_, err := newTestEngine().ComputeKPIs(context.Background(), KPIRequest{
		Selection: period.PresetSelection(period.PresetToday),
	}, &windowFetcher{})
	assert.Error(t, err)
}

func TestComputeKPIs_Grouped(t *testing.T) {
	today := period.NewDate(2024, 3, 15)
	primary := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}
	comparison := period.Interval{Start: period.NewDate(2024, 3, 1), End: period.NewDate(2024, 3, 7)}

	fetcher := &windowFetcher{byStart: map[period.Date][]models.MetricRecord{
		primary.Start: append(
			spreadRecords("a1", primary, 700, 1050, 3500, 700),
			spreadRecords("b1", primary, 70, 35, 700, 35)...,
		),
		comparison.Start: append(
			spreadRecords("a1", comparison, 700, 700, 3500, 700),
			spreadRecords("c1", comparison, 140, 140, 700, 140)...,
		),
	}}

	report, err := newTestEngine().ComputeKPIs(context.Background(), KPIRequest{
		Selection: period.PresetSelection(period.PresetLast7Days),
		Today:     today,
		Compare:   true,
		GroupBy:   models.GroupCampaign,
	}, fetcher)
	require.NoError(t, err)

	require.Len(t, report.Groups, 3)
	assert.Equal(t, "cmp-a1", report.Groups[0].Key)
	assert.Equal(t, "cmp-b1", report.Groups[1].Key)
	assert.Equal(t, "cmp-c1", report.Groups[2].Key, "comparison-only group sorts last with zero spend")

	a := report.Groups[0]
	assert.Equal(t, "Campaign a1", a.Label)
	assert.InDelta(t, 0.5, a.Primary.Metrics.ROAS, 1e-9)
	assert.Equal(t, models.TierExcellent, a.Primary.Status.ROAS)
	require.NotNil(t, a.Comparison)
	require.NotNil(t, a.Deltas[models.MetricRevenue])
	assert.InDelta(t, 50.0, a.Deltas[models.MetricRevenue].Percent, 1e-9)

	b := report.Groups[1]
	assert.InDelta(t, -0.5, b.Primary.Metrics.ROAS, 1e-9)
	assert.Equal(t, models.TierLoss, b.Primary.Status.ROAS)
	assert.Nil(t, b.Deltas[models.MetricSpend], "no comparison spend for b1")

	c := report.Groups[2]
	assert.True(t, c.Primary.Row.Spend.IsZero())
	assert.Equal(t, "Campaign c1", c.Label)

	// totals cross-check
	var spend decimal.Decimal
	for _, g := range report.Groups {
		spend = spend.Add(g.Primary.Row.Spend)
	}
	assert.True(t, report.Primary.Row.Spend.Equal(spend))
	assert.Equal(t, 2, report.Primary.Entities)
	assert.Equal(t, 1, report.Primary.ProfitableEntities)
}

func TestComputeKPIs_OrderInvariant(t *testing.T) {
	today := period.NewDate(2024, 3, 15)
	primary := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}
	records := append(
		spreadRecords("a1", primary, 700, 1050, 3500, 700),
		spreadRecords("b1", primary, 71, 35, 703, 36)...,
	)

	engine := newTestEngine()
	req := KPIRequest{
		Selection: period.PresetSelection(period.PresetLast7Days),
		Today:     today,
		GroupBy:   models.GroupAdGroup,
	}

	want, err := engine.ComputeKPIs(context.Background(), req, &windowFetcher{byStart: map[period.Date][]models.MetricRecord{primary.Start: records}})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]models.MetricRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := engine.ComputeKPIs(context.Background(), req, &windowFetcher{byStart: map[period.Date][]models.MetricRecord{primary.Start: shuffled}})
		require.NoError(t, err)

		assert.Equal(t, want.Primary.Metrics, got.Primary.Metrics)
		require.Len(t, got.Groups, len(want.Groups))
		for j := range want.Groups {
			assert.Equal(t, want.Groups[j].Key, got.Groups[j].Key)
			assert.Equal(t, want.Groups[j].Primary.Metrics, got.Groups[j].Primary.Metrics)
		}
	}
}

func TestComputeKPIs_ConcurrentCallers(t *testing.T) {
	engine := newTestEngine()
	primary := period.Interval{Start: period.NewDate(2024, 3, 8), End: period.NewDate(2024, 3, 14)}
	fetcher := &windowFetcher{byStart: map[period.Date][]models.MetricRecord{
		primary.Start: spreadRecords("a1", primary, 1000, 1200, 5000, 1000),
	}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := engine.ComputeKPIs(context.Background(), KPIRequest{
				Selection: period.PresetSelection(period.PresetLast7Days),
				Today:     period.NewDate(2024, 3, 15),
				Compare:   true,
			}, fetcher)
			assert.NoError(t, err)
			if report != nil {
				assert.InDelta(t, 0.2, report.Primary.Metrics.ROAS, 1e-9)
			}
		}()
	}
	wg.Wait()
}
