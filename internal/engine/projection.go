package engine

import "time"

// DefaultProjectionDays is how far Project looks ahead when unspecified.
const DefaultProjectionDays = 7

// ProjectedDay is one simulated future day of the load chain.
type ProjectedDay struct {
	Date time.Time
	CTL  float64
	ATL  float64
	TSB  float64
}

// Project forward-simulates the recurrence from the given state assuming
// zero load every day. Fatigue decays six times faster than fitness, so
// form rises for a while before fitness erosion catches up.
func Project(state LoadState, from time.Time, daysToProject int) []ProjectedDay {
	if daysToProject <= 0 {
		daysToProject = DefaultProjectionDays
	}

	out := make([]ProjectedDay, 0, daysToProject)
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for i := 0; i < daysToProject; i++ {
		day = day.AddDate(0, 0, 1)
		var m DayMetrics
		state, m = state.Advance(0)
		out = append(out, ProjectedDay{Date: day, CTL: m.CTL, ATL: m.ATL, TSB: m.TSB})
	}
	return out
}

// FindPeakDay returns the simulated day with the highest balance. Ties go
// to the later date, since holding form longer is the better outcome.
func FindPeakDay(days []ProjectedDay) (ProjectedDay, bool) {
	if len(days) == 0 {
		return ProjectedDay{}, false
	}
	best := days[0]
	for _, d := range days[1:] {
		if d.TSB >= best.TSB {
			best = d
		}
	}
	return best, true
}
