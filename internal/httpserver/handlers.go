package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/radiusdt/arbitrage-dashboard/internal/analytics"
	"github.com/radiusdt/arbitrage-dashboard/internal/middleware"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
	"go.uber.org/zap"
)

const defaultDailyDays = 30

// ---- Periods ----

type resolveResponse struct {
	Selection  string           `json:"selection"`
	Today      period.Date      `json:"today"`
	Primary    period.Interval  `json:"primary"`
	Comparison *period.Interval `json:"comparison,omitempty"`
	Days       int              `json:"days"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	const endpoint = "resolve"

	pq, err := parsePeriodQuery(r)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	sel, err := pq.selection(period.PresetLast7Days)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	today := s.today()
	res, err := s.engine.Resolve(sel, today, pq.compare(true))
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	s.recordKPI(endpoint, "ok")
	s.jsonResponse(w, resolveResponse{
		Selection:  sel.String(),
		Today:      today,
		Primary:    res.Primary,
		Comparison: res.Comparison,
		Days:       res.Primary.Days(),
	})
}

// ---- KPIs ----

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	const endpoint = "kpis"

	pq, err := parsePeriodQuery(r)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	sel, err := pq.selection(period.PresetLast7Days)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	groupBy, err := models.ParseGroupBy(r.URL.Query().Get("group_by"))
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	today := s.today()
	rep, err := s.compute(r, analytics.KPIRequest{
		Selection: sel,
		Today:     today,
		Compare:   pq.compare(true),
		GroupBy:   groupBy,
	})
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	if groupBy != models.GroupNone && s.metrics != nil {
		s.metrics.RecordGroups(string(groupBy), len(rep.Groups))
	}
	s.recordKPI(endpoint, "ok")
	s.jsonResponse(w, newKPIView(rep, today))
}

// ---- Campaigns ----

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	const endpoint = "campaigns"

	level, err := parseLevel(r, models.GroupCampaign)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	pq, err := parsePeriodQuery(r)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	sel, err := pq.selection(period.PresetLast7Days)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	rep, err := s.compute(r, analytics.KPIRequest{
		Selection: sel,
		Today:     s.today(),
		GroupBy:   level,
	})
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	s.recordKPI(endpoint, "ok")
	s.jsonResponse(w, newCampaignTable(rep))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	const endpoint = "daily"

	id := chi.URLParam(r, "id")
	level, err := parseLevel(r, models.GroupAdGroup)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	days, err := parseDays(r, defaultDailyDays, s.config.Reporting.MaxSpanDays)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	iv := period.LastNDays(s.today(), days)

	ctx, cancel := s.fetchContext(r)
	defer cancel()
	records, err := s.store.FetchRecords(ctx, iv, level)
	if err != nil {
		s.failRequest(w, r, endpoint, fmt.Errorf("fetch %s: %w", iv, err))
		return
	}

	selected := analytics.SelectGroup(records, level, id)
	if len(selected) == 0 {
		s.recordKPI(endpoint, "not_found")
		s.errorResponse(w, fmt.Sprintf("no data for %s %q in %s", level, id, iv), http.StatusNotFound)
		return
	}

	total := analytics.Aggregate(selected, level)[id]
	view := dailySeriesView{
		ID:       id,
		Name:     total.GroupLabel,
		Interval: iv,
		Total:    newMetricsView(total, analytics.Derive(total)),
	}
	for _, p := range analytics.DailySeries(selected, iv) {
		view.Points = append(view.Points, dailyPointView{
			Date:    p.Date,
			Metrics: newMetricsView(p.Row, p.Metrics),
		})
	}

	s.recordKPI(endpoint, "ok")
	s.jsonResponse(w, view)
}

// ---- Alerts ----

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	const endpoint = "alerts"

	level, err := parseLevel(r, models.GroupAdGroup)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	pq, err := parsePeriodQuery(r)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}
	sel, err := pq.selection(period.PresetLast7Days)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	rep, err := s.compute(r, analytics.KPIRequest{
		Selection: sel,
		Today:     s.today(),
		GroupBy:   level,
	})
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	rows := make(map[string]*models.AggregatedRow, len(rep.Groups))
	for _, g := range rep.Groups {
		rows[g.Key] = g.Primary.Row
	}
	alerts := analytics.EvaluateAlerts(rows, s.config.Thresholds.Alerts)

	if s.metrics != nil {
		s.metrics.SetActiveAlerts(len(alerts.Critical), len(alerts.Warning), len(alerts.Info))
	}
	s.recordKPI(endpoint, "ok")
	s.jsonResponse(w, alertsView{
		Interval: rep.Resolution.Primary,
		Critical: newAlertViews(alerts.Critical),
		Warning:  newAlertViews(alerts.Warning),
		Info:     newAlertViews(alerts.Info),
		Count:    alerts.Count(),
	})
}

// ---- Scenario ----

// handleCurrentMetrics seeds the scenario builder from last_7_days. A store
// failure degrades to the configured defaults instead of an error.
func (s *Server) handleCurrentMetrics(w http.ResponseWriter, r *http.Request) {
	const endpoint = "current_metrics"

	sel := period.PresetSelection(period.PresetLast7Days)
	today := s.today()
	res, err := s.engine.Resolve(sel, today, false)
	if err != nil {
		s.failRequest(w, r, endpoint, err)
		return
	}

	var row *models.AggregatedRow
	rep, err := s.compute(r, analytics.KPIRequest{Selection: sel, Today: today})
	if err != nil {
		s.logger.Warn("scenario seed falling back to defaults",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		s.recordKPI(endpoint, "fallback")
	} else {
		row = rep.Primary.Row
		s.recordKPI(endpoint, "ok")
	}

	s.jsonResponse(w, analytics.BuildScenarioSeed(res.Primary, row, s.config.Thresholds.Scenario))
}

// ---- Helpers ----

func (s *Server) compute(r *http.Request, req analytics.KPIRequest) (*analytics.KPIReport, error) {
	ctx, cancel := s.fetchContext(r)
	defer cancel()
	return s.engine.ComputeKPIs(ctx, req, s.store)
}

// failRequest maps an error to a status code. Caller mistakes are 400 with
// the error text, store failures are logged and hidden behind a generic
// message.
func (s *Server) failRequest(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var qe *QueryError

	switch {
	case errors.As(err, &qe):
		s.recordKPI(endpoint, "invalid")
		s.recordResolutionError("query")
		s.errorResponse(w, qe.Message, http.StatusBadRequest)

	case analytics.IsResolutionError(err):
		s.recordKPI(endpoint, "invalid")
		s.recordResolutionError(resolutionKind(err))
		s.errorResponse(w, err.Error(), http.StatusBadRequest)

	case errors.Is(err, context.DeadlineExceeded):
		s.recordKPI(endpoint, "timeout")
		s.logger.Error("store fetch timed out",
			zap.String("endpoint", endpoint),
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		s.errorResponse(w, "metrics store timed out", http.StatusGatewayTimeout)

	case errors.Is(err, context.Canceled):
		s.recordKPI(endpoint, "canceled")
		s.logger.Debug("request canceled", zap.String("endpoint", endpoint))

	default:
		s.recordKPI(endpoint, "error")
		s.logger.Error("failed to compute kpis",
			zap.String("endpoint", endpoint),
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		s.errorResponse(w, "failed to load metrics", http.StatusInternalServerError)
	}
}

func (s *Server) recordResolutionError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordResolutionError(kind)
	}
}

func resolutionKind(err error) string {
	switch {
	case errors.Is(err, period.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, period.ErrUnknownPreset):
		return "unknown_preset"
	case errors.Is(err, models.ErrUnknownGroupBy):
		return "unknown_group_by"
	}
	return "other"
}
