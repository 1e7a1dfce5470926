package period

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange marks a user-supplied interval that cannot be resolved.
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnknownPreset marks a preset key that is not in the preset table.
	ErrUnknownPreset = errors.New("unknown preset")
)

// RangeError describes why a custom interval was rejected.
type RangeError struct {
	Start  Date
	End    Date
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %s..%s: %s", e.Start, e.End, e.Reason)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// Interval is a closed range of calendar days: both Start and End are included.
type Interval struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewInterval builds an interval, rejecting start > end.
func NewInterval(start, end Date) (Interval, error) {
	if start.After(end) {
		return Interval{}, &RangeError{Start: start, End: end, Reason: "start is after end"}
	}
	return Interval{Start: start, End: end}, nil
}

// SingleDay returns the interval [d, d].
func SingleDay(d Date) Interval {
	return Interval{Start: d, End: d}
}

// Days returns the number of calendar days covered, counting both ends.
func (i Interval) Days() int {
	return i.End.DaysSince(i.Start) + 1
}

// Contains reports whether d falls inside the interval.
func (i Interval) Contains(d Date) bool {
	return !d.Before(i.Start) && !d.After(i.End)
}

// EachDay calls fn for every day in the interval in ascending order.
func (i Interval) EachDay(fn func(Date)) {
	for d := i.Start; !d.After(i.End); d = d.AddDays(1) {
		fn(d)
	}
}

func (i Interval) String() string {
	return i.Start.String() + ".." + i.End.String()
}

// PrecedingInterval returns the interval of equal length that ends the day
// before i starts. There is no gap and no overlap between the two.
func PrecedingInterval(i Interval) Interval {
	end := i.Start.AddDays(-1)
	return Interval{Start: end.AddDays(-(i.Days() - 1)), End: end}
}
