package domain

import "time"

// Interval is a half-open time range [Start, End). A nil End means the
// reservation holds until further notice and overlaps every later query.
type Interval struct {
	Start time.Time
	End   *time.Time
}

// NewInterval validates and normalizes an interval to UTC.
func NewInterval(start time.Time, end *time.Time) (Interval, error) {
	if start.IsZero() {
		return Interval{}, ErrInvalidInterval
	}
	if end != nil && !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	iv := Interval{Start: start.UTC()}
	if end != nil {
		e := end.UTC()
		iv.End = &e
	}
	return iv, nil
}

// Overlaps reports whether two half-open intervals share any instant.
// Open ends are treated as +infinity.
func (iv Interval) Overlaps(other Interval) bool {
	if other.End != nil && !iv.Start.Before(*other.End) {
		return false
	}
	if iv.End != nil && !other.Start.Before(*iv.End) {
		return false
	}
	return true
}

// OpenEnded reports whether the interval has no end.
func (iv Interval) OpenEnded() bool {
	return iv.End == nil
}
