package period

import (
	"fmt"
	"strings"
	"time"
)

// Preset is a named window relative to today.
type Preset string

const (
	PresetToday      Preset = "today"
	PresetYesterday  Preset = "yesterday"
	PresetLast7Days  Preset = "last_7_days"
	PresetLast14Days Preset = "last_14_days"
	PresetLast28Days Preset = "last_28_days"
	PresetThisWeek   Preset = "this_week"
	PresetLastWeek   Preset = "last_week"
	PresetThisMonth  Preset = "this_month"
	PresetLastMonth  Preset = "last_month"
)

// Presets lists every supported preset in display order.
var Presets = []Preset{
	PresetToday,
	PresetYesterday,
	PresetLast7Days,
	PresetLast14Days,
	PresetLast28Days,
	PresetThisWeek,
	PresetLastWeek,
	PresetThisMonth,
	PresetLastMonth,
}

// ParsePreset validates a preset key.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Presets {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
}

// window computes the preset's interval for the given today. It is the
// whole preset table and is recomputed on every call.
func (p Preset) window(today Date, weekStart time.Weekday) (Interval, error) {
	switch p {
	case PresetToday:
		return SingleDay(today), nil
	case PresetYesterday:
		return SingleDay(today.AddDays(-1)), nil
	case PresetLast7Days:
		return LastNDays(today, 7), nil
	case PresetLast14Days:
		return LastNDays(today, 14), nil
	case PresetLast28Days:
		return LastNDays(today, 28), nil
	case PresetThisWeek:
		return Interval{Start: today.StartOfWeek(weekStart), End: today}, nil
	case PresetLastWeek:
		start := today.StartOfWeek(weekStart).AddDays(-7)
		return Interval{Start: start, End: start.AddDays(6)}, nil
	case PresetThisMonth:
		return Interval{Start: today.StartOfMonth(), End: today}, nil
	case PresetLastMonth:
		end := today.StartOfMonth().AddDays(-1)
		return Interval{Start: end.StartOfMonth(), End: end}, nil
	default:
		return Interval{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
	}
}

// LastNDays covers the n complete days ending yesterday.
func LastNDays(today Date, n int) Interval {
	return Interval{Start: today.AddDays(-n), End: today.AddDays(-1)}
}
