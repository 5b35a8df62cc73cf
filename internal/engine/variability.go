package engine

import (
	"math"
	"time"
)

// monotonyCap stands in for the +Inf monotony of a week with identical
// nonzero load every day.
const monotonyCap = 2.0

// Monotony is mean/stddev of a week of daily loads (population stddev).
// An empty or all-rest week scores 0. A perfectly uniform training week
// would divide by zero, so it is capped at exactly 2.0.
func Monotony(dailyLoads []float64) float64 {
	if len(dailyLoads) == 0 {
		return 0
	}

	var sum float64
	for _, l := range dailyLoads {
		sum += l
	}
	mean := sum / float64(len(dailyLoads))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, l := range dailyLoads {
		d := l - mean
		variance += d * d
	}
	variance /= float64(len(dailyLoads))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return monotonyCap
	}
	return mean / stddev
}

// Strain is total weekly load weighted by monotony - the combined
// overtraining-risk indicator.
func Strain(totalWeeklyLoad, monotony float64) float64 {
	return totalWeeklyLoad * monotony
}

// WeekStart returns the Monday of the week containing t, at local midnight.
func WeekStart(t time.Time) time.Time {
	daysFromMonday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	monday := t.AddDate(0, 0, -daysFromMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())
}
