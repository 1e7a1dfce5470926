package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"golang.org/x/sync/errgroup"
)

// Fetcher returns the records of an interval, at most one per entity and day.
type Fetcher interface {
	FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error)

func (f FetcherFunc) FetchRecords(ctx context.Context, interval period.Interval, groupBy models.GroupBy) ([]models.MetricRecord, error) {
	return f(ctx, interval, groupBy)
}

// KPIRequest is one dashboard query. Today is supplied by the caller and
// decides what the relative presets mean.
type KPIRequest struct {
	Selection period.Selection
	Today     period.Date
	Compare   bool
	GroupBy   models.GroupBy
}

// Snapshot is the aggregated view of one interval.
type Snapshot struct {
	Interval period.Interval       `json:"interval"`
	Row      *models.AggregatedRow `json:"row"`
	Metrics  models.DerivedMetrics `json:"metrics"`
	Status   models.Status         `json:"status"`

	// Entities is the number of distinct entities with data in the interval,
	// ProfitableEntities those whose revenue exceeded spend.
	Entities           int `json:"entities"`
	ProfitableEntities int `json:"profitable_entities"`
}

// GroupReport is the per-group slice of a KPIReport.
type GroupReport struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	Primary    Snapshot  `json:"primary"`
	Comparison *Snapshot `json:"comparison,omitempty"`
	Deltas     Deltas    `json:"deltas,omitempty"`
}

// KPIReport is the result of ComputeKPIs.
type KPIReport struct {
	Selection  period.Selection  `json:"-"`
	Resolution period.Resolution `json:"resolution"`
	GroupBy    models.GroupBy    `json:"group_by"`
	Primary    Snapshot          `json:"primary"`
	Comparison *Snapshot         `json:"comparison,omitempty"`
	Deltas     Deltas            `json:"deltas"`
	Groups     []GroupReport     `json:"groups,omitempty"`
}

// Engine runs the KPI pipeline: resolve, fetch, aggregate, derive, classify
// and compare. It keeps no state between calls.
type Engine struct {
	resolver   period.Resolver
	classifier *Classifier
	polarity   PolarityTable
}

// NewEngine creates an engine. A nil polarity table means DefaultPolarity.
func NewEngine(resolver period.Resolver, classifier *Classifier, polarity PolarityTable) *Engine {
	if polarity == nil {
		polarity = DefaultPolarity()
	}
	return &Engine{
		resolver:   resolver,
		classifier: classifier,
		polarity:   polarity,
	}
}

// Resolve exposes the engine's resolver.
func (e *Engine) Resolve(sel period.Selection, today period.Date, compare bool) (period.Resolution, error) {
	return e.resolver.Resolve(sel, today, compare)
}

// Classifier returns the classifier used for statuses.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// ComputeKPIs resolves the selection and builds the report. Resolution errors
// are returned before any fetch happens. Primary and comparison records are
// fetched concurrently; the first failure cancels the other fetch.
func (e *Engine) ComputeKPIs(ctx context.Context, req KPIRequest, fetcher Fetcher) (*KPIReport, error) {
	groupBy, err := models.ParseGroupBy(string(req.GroupBy))
	if err != nil {
		return nil, err
	}
	if req.Today.IsZero() {
		return nil, fmt.Errorf("compute kpis: today is required")
	}

	res, err := e.resolver.Resolve(req.Selection, req.Today, req.Compare)
	if err != nil {
		return nil, err
	}

	var primaryRecs, comparisonRecs []models.MetricRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := fetcher.FetchRecords(gctx, res.Primary, groupBy)
		if err != nil {
			return fmt.Errorf("fetch primary %s: %w", res.Primary, err)
		}
		primaryRecs = recs
		return nil
	})
	if res.Comparison != nil {
		cmp := *res.Comparison
		g.Go(func() error {
			recs, err := fetcher.FetchRecords(gctx, cmp, groupBy)
			if err != nil {
				return fmt.Errorf("fetch comparison %s: %w", cmp, err)
			}
			comparisonRecs = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.Build(req.Selection, res, groupBy, primaryRecs, comparisonRecs), nil
}

// Build assembles a report from already fetched records. comparison is
// ignored unless res has a comparison interval.
func (e *Engine) Build(sel period.Selection, res period.Resolution, groupBy models.GroupBy, primary, comparison []models.MetricRecord) *KPIReport {
	report := &KPIReport{
		Selection:  sel,
		Resolution: res,
		GroupBy:    groupBy,
		Primary:    e.snapshot(res.Primary, Total(Aggregate(primary, models.GroupNone)), primary),
	}

	var cmpMetrics *models.DerivedMetrics
	if res.Comparison != nil {
		snap := e.snapshot(*res.Comparison, Total(Aggregate(comparison, models.GroupNone)), comparison)
		report.Comparison = &snap
		cmpMetrics = &snap.Metrics
	}
	report.Deltas = Compare(report.Primary.Metrics, cmpMetrics, e.polarity)

	if groupBy != models.GroupNone {
		report.Groups = e.groups(res, groupBy, primary, comparison)
	}
	return report
}

func (e *Engine) groups(res period.Resolution, groupBy models.GroupBy, primary, comparison []models.MetricRecord) []GroupReport {
	primaryRows := Aggregate(primary, groupBy)
	primaryParts := partition(primary, groupBy)

	var cmpRows map[string]*models.AggregatedRow
	var cmpParts map[string][]models.MetricRecord
	if res.Comparison != nil {
		cmpRows = Aggregate(comparison, groupBy)
		cmpParts = partition(comparison, groupBy)
	}

	// A group present only in the comparison period still shows up, with
	// a zero primary row.
	keys := make(map[string]struct{}, len(primaryRows)+len(cmpRows))
	for k := range primaryRows {
		keys[k] = struct{}{}
	}
	for k := range cmpRows {
		keys[k] = struct{}{}
	}

	out := make([]GroupReport, 0, len(keys))
	for key := range keys {
		prow, ok := primaryRows[key]
		if !ok {
			prow = models.NewAggregatedRow(key, cmpRows[key].GroupLabel)
		}
		gr := GroupReport{
			Key:     key,
			Label:   prow.GroupLabel,
			Primary: e.snapshot(res.Primary, prow, primaryParts[key]),
		}

		if res.Comparison != nil {
			crow, ok := cmpRows[key]
			if !ok {
				crow = models.NewAggregatedRow(key, prow.GroupLabel)
			}
			snap := e.snapshot(*res.Comparison, crow, cmpParts[key])
			gr.Comparison = &snap
			gr.Deltas = Compare(gr.Primary.Metrics, &snap.Metrics, e.polarity)
		}
		out = append(out, gr)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Primary.Row.Spend.Cmp(out[j].Primary.Row.Spend); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (e *Engine) snapshot(iv period.Interval, row *models.AggregatedRow, records []models.MetricRecord) Snapshot {
	m := Derive(row)
	return Snapshot{
		Interval:           iv,
		Row:                row,
		Metrics:            m,
		Status:             e.classifier.Status(m),
		Entities:           row.EntityCount(),
		ProfitableEntities: countProfitable(records),
	}
}

// countProfitable counts entities whose revenue exceeds spend over all of
// their records.
func countProfitable(records []models.MetricRecord) int {
	byEntity := make(map[string]*models.AggregatedRow)
	for _, r := range records {
		id := r.EntityID
		if id == "" {
			id = models.UnknownKey
		}
		row, ok := byEntity[id]
		if !ok {
			row = models.NewAggregatedRow(id, id)
			byEntity[id] = row
		}
		row.Add(r)
	}

	n := 0
	for _, row := range byEntity {
		if row.Revenue.GreaterThan(row.Spend) {
			n++
		}
	}
	return n
}

func partition(records []models.MetricRecord, groupBy models.GroupBy) map[string][]models.MetricRecord {
	parts := make(map[string][]models.MetricRecord)
	for _, r := range records {
		key, _ := r.GroupKey(groupBy)
		parts[key] = append(parts[key], r)
	}
	return parts
}

// IsResolutionError reports whether err came from resolving the selection
// (a caller mistake) rather than from fetching data.
func IsResolutionError(err error) bool {
	return errors.Is(err, period.ErrInvalidRange) ||
		errors.Is(err, period.ErrUnknownPreset) ||
		errors.Is(err, models.ErrUnknownGroupBy)
}
