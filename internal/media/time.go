package media

import (
	"fmt"
	"time"
)

// DefaultTimescale is the timescale used for values derived from probed
// durations. 600 divides evenly by the common frame rates.
const DefaultTimescale = 600

// TimeValue is a rational instant or duration: Value ticks over Timescale
// ticks per second.
type TimeValue struct {
	Value     int64 `json:"value"`
	Timescale int32 `json:"timescale"`
}

// Zero is the additive identity at the default timescale.
var Zero = TimeValue{Value: 0, Timescale: DefaultTimescale}

// NewTimeValue builds a TimeValue from raw ticks.
func NewTimeValue(value int64, timescale int32) TimeValue {
	return TimeValue{Value: value, Timescale: timescale}
}

// FromSeconds converts a floating-point second count at the given timescale.
func FromSeconds(seconds float64, timescale int32) TimeValue {
	return TimeValue{Value: int64(seconds*float64(timescale) + 0.5), Timescale: timescale}
}

// FromDuration converts a time.Duration at the given timescale.
func FromDuration(d time.Duration, timescale int32) TimeValue {
	return FromSeconds(d.Seconds(), timescale)
}

// Seconds returns the value as floating-point seconds.
func (t TimeValue) Seconds() float64 {
	if t.Timescale == 0 {
		return 0
	}
	return float64(t.Value) / float64(t.Timescale)
}

// IsZero reports whether the value is zero regardless of timescale.
func (t TimeValue) IsZero() bool {
	return t.Value == 0
}

// rescale converts t to the given timescale, rounding to the nearest tick.
func (t TimeValue) rescale(timescale int32) TimeValue {
	if t.Timescale == timescale || t.Timescale == 0 {
		return TimeValue{Value: t.Value, Timescale: timescale}
	}
	v := float64(t.Value) * float64(timescale) / float64(t.Timescale)
	if v >= 0 {
		v += 0.5
	} else {
		v -= 0.5
	}
	return TimeValue{Value: int64(v), Timescale: timescale}
}

// Add returns t + other expressed in t's timescale.
func (t TimeValue) Add(other TimeValue) TimeValue {
	o := other.rescale(t.Timescale)
	return TimeValue{Value: t.Value + o.Value, Timescale: t.Timescale}
}

// Cmp compares two values: -1 if t < other, 0 if equal, 1 if t > other.
func (t TimeValue) Cmp(other TimeValue) int {
	// Cross-multiply to avoid rounding through floats.
	lhs := t.Value * int64(other.Timescale)
	rhs := other.Value * int64(t.Timescale)
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

func (t TimeValue) String() string {
	return fmt.Sprintf("%.2fs", t.Seconds())
}

// TimeRange is a (start, duration) pair on a single timeline.
// Duration is never negative.
type TimeRange struct {
	Start    TimeValue `json:"start"`
	Duration TimeValue `json:"duration"`
}

// NewTimeRange builds a range and normalizes a negative duration to zero.
func NewTimeRange(start, duration TimeValue) TimeRange {
	if duration.Value < 0 {
		duration.Value = 0
	}
	return TimeRange{Start: start, Duration: duration}
}

// End returns start + duration in the start's timescale.
func (r TimeRange) End() TimeValue {
	return r.Start.Add(r.Duration)
}
