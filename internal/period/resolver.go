// Package period turns a user-facing period selection into concrete,
// closed-inclusive day intervals, plus the comparison interval that
// immediately precedes the primary one.
package period

import (
	"fmt"
	"time"
)

// DefaultMaxSpanDays bounds custom ranges: end - start may not exceed it.
const DefaultMaxSpanDays = 365

// Selection is either a preset or an explicit custom interval.
type Selection struct {
	Preset Preset    `json:"preset,omitempty"`
	Custom *Interval `json:"custom,omitempty"`
}

// PresetSelection selects a named preset.
func PresetSelection(p Preset) Selection {
	return Selection{Preset: p}
}

// CustomSelection selects an explicit range. Validation happens in Resolve.
func CustomSelection(start, end Date) Selection {
	return Selection{Custom: &Interval{Start: start, End: end}}
}

func (s Selection) String() string {
	if s.Custom != nil {
		return "custom:" + s.Custom.String()
	}
	return string(s.Preset)
}

// Resolution is the outcome of resolving a Selection.
type Resolution struct {
	Primary    Interval  `json:"primary"`
	Comparison *Interval `json:"comparison,omitempty"`
}

// Resolver maps selections onto intervals. It holds configuration only.
type Resolver struct {
	WeekStart   time.Weekday
	MaxSpanDays int
}

// NewResolver returns a Resolver with the given week start and span limit.
// A non-positive maxSpanDays falls back to DefaultMaxSpanDays.
func NewResolver(weekStart time.Weekday, maxSpanDays int) Resolver {
	if maxSpanDays <= 0 {
		maxSpanDays = DefaultMaxSpanDays
	}
	return Resolver{WeekStart: weekStart, MaxSpanDays: maxSpanDays}
}

// Resolve computes the primary interval for sel relative to today and, when
// comparisonEnabled, the preceding interval of the same length. The
// comparison is always derived from the primary computed here.
func (r Resolver) Resolve(sel Selection, today Date, comparisonEnabled bool) (Resolution, error) {
	primary, err := r.primary(sel, today)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Primary: primary}
	if comparisonEnabled {
		cmp := PrecedingInterval(primary)
		res.Comparison = &cmp
	}
	return res, nil
}

func (r Resolver) primary(sel Selection, today Date) (Interval, error) {
	if sel.Custom != nil {
		return r.validateCustom(*sel.Custom, today)
	}
	if sel.Preset == "" {
		return Interval{}, fmt.Errorf("%w: empty selection", ErrUnknownPreset)
	}
	return sel.Preset.window(today, r.WeekStart)
}

func (r Resolver) validateCustom(i Interval, today Date) (Interval, error) {
	maxSpan := r.MaxSpanDays
	if maxSpan <= 0 {
		maxSpan = DefaultMaxSpanDays
	}

	if i.Start.IsZero() || i.End.IsZero() {
		return Interval{}, &RangeError{Start: i.Start, End: i.End, Reason: "start and end are required"}
	}
	i, err := NewInterval(i.Start, i.End)
	if err != nil {
		return Interval{}, err
	}

	switch {
	case i.End.After(today):
		return Interval{}, &RangeError{Start: i.Start, End: i.End, Reason: "end is after today " + today.String()}
	case i.End.DaysSince(i.Start) > maxSpan:
		return Interval{}, &RangeError{
			Start:  i.Start,
			End:    i.End,
			Reason: fmt.Sprintf("span exceeds %d days", maxSpan),
		}
	}
	return i, nil
}
