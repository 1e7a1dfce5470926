package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/radiusdt/arbitrage-dashboard/internal/models"
	"github.com/radiusdt/arbitrage-dashboard/internal/period"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report query parameter names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// periodQuery is the period selection accepted by every KPI endpoint:
// either a preset or an explicit start_date/end_date pair.
type periodQuery struct {
	Preset    string `query:"preset" validate:"omitempty,max=32,excluded_with=StartDate EndDate"`
	StartDate string `query:"start_date" validate:"required_with=EndDate,omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"required_with=StartDate,omitempty,datetime=2006-01-02"`
	Compare   string `query:"compare" validate:"omitempty,boolean"`
}

func parsePeriodQuery(r *http.Request) (periodQuery, error) {
	q := r.URL.Query()
	pq := periodQuery{
		Preset:    strings.TrimSpace(q.Get("preset")),
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
		Compare:   strings.TrimSpace(q.Get("compare")),
	}
	if err := validate.Struct(pq); err != nil {
		return pq, queryError(err)
	}
	return pq, nil
}

// selection turns the query into a Selection. defaultPreset applies when
// neither a preset nor dates were given.
func (pq periodQuery) selection(defaultPreset period.Preset) (period.Selection, error) {
	if pq.StartDate != "" {
		start, err := period.ParseDate(pq.StartDate)
		if err != nil {
			return period.Selection{}, &QueryError{Message: err.Error()}
		}
		end, err := period.ParseDate(pq.EndDate)
		if err != nil {
			return period.Selection{}, &QueryError{Message: err.Error()}
		}
		return period.CustomSelection(start, end), nil
	}

	if pq.Preset == "" {
		return period.PresetSelection(defaultPreset), nil
	}
	p, err := period.ParsePreset(pq.Preset)
	if err != nil {
		return period.Selection{}, err
	}
	return period.PresetSelection(p), nil
}

func (pq periodQuery) compare(def bool) bool {
	if pq.Compare == "" {
		return def
	}
	b, err := strconv.ParseBool(pq.Compare)
	if err != nil {
		return def
	}
	return b
}

// levelQuery picks the rows of the performance table.
type levelQuery struct {
	Level string `query:"level" validate:"omitempty,oneof=market campaign adset ad_set adgroup ad"`
}

func parseLevel(r *http.Request, def models.GroupBy) (models.GroupBy, error) {
	lq := levelQuery{Level: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("level")))}
	if err := validate.Struct(lq); err != nil {
		return "", queryError(err)
	}
	if lq.Level == "" {
		return def, nil
	}
	return models.ParseGroupBy(lq.Level)
}

// daysQuery is the trailing window of the daily series.
type daysQuery struct {
	Days string `query:"days" validate:"omitempty,number"`
}

func parseDays(r *http.Request, def, maxDays int) (int, error) {
	dq := daysQuery{Days: strings.TrimSpace(r.URL.Query().Get("days"))}
	if err := validate.Struct(dq); err != nil {
		return 0, queryError(err)
	}
	if dq.Days == "" {
		return def, nil
	}
	n, err := strconv.Atoi(dq.Days)
	if err != nil {
		return 0, &QueryError{Message: "days must be a whole number"}
	}
	if err := validate.Var(n, fmt.Sprintf("min=1,max=%d", maxDays)); err != nil {
		return 0, &QueryError{Message: fmt.Sprintf("days must be between 1 and %d", maxDays)}
	}
	return n, nil
}

// QueryError is a malformed query string.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string { return e.Message }

func queryError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &QueryError{Message: err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &QueryError{Message: strings.Join(msgs, "; ")}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", fe.Field())
	case "boolean":
		return fmt.Sprintf("%s must be true or false", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "required_with":
		return "start_date and end_date must be given together"
	case "excluded_with":
		return "preset cannot be combined with start_date/end_date"
	case "number":
		return fmt.Sprintf("%s must be a number", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
