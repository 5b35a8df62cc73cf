package engine

import "math"

// Exponential smoothing windows, in days. Fixed by the model; bump the
// chain formula version if these ever change.
const (
	CTLDays = 42
	ATLDays = 7
)

// ChainFormulaVersion stamps daily and weekly rows produced by the
// recurrence so old rows stay attributable after a constants change.
const ChainFormulaVersion = "ctl-atl@1.0.0"

var (
	ctlDecay = math.Exp(-1.0 / CTLDays)
	atlDecay = math.Exp(-1.0 / ATLDays)
)

// LoadState is the recurrence state carried from one calendar day to the
// next: chronic and acute load as of the previous day.
type LoadState struct {
	CTL float64
	ATL float64
}

// DayMetrics is one day's full output tuple.
type DayMetrics struct {
	CTL  float64
	ATL  float64
	TSB  float64
	ACWR float64
}

// Advance applies one calendar day of load to the state and returns the
// day's metrics. TSB is yesterday's fitness minus yesterday's fatigue -
// deliberately computed from the pre-update state, per the conventional
// definition of form - while ACWR uses the updated values.
//
// The recurrence depends on the previous day's state, so days must be
// applied strictly in date order.
func (s LoadState) Advance(trimp float64) (LoadState, DayMetrics) {
	tsb := s.CTL - s.ATL

	next := LoadState{
		CTL: s.CTL*ctlDecay + trimp*(1-ctlDecay),
		ATL: s.ATL*atlDecay + trimp*(1-atlDecay),
	}

	var acwr float64
	if next.CTL != 0 {
		acwr = next.ATL / next.CTL
	}

	return next, DayMetrics{CTL: next.CTL, ATL: next.ATL, TSB: tsb, ACWR: acwr}
}
