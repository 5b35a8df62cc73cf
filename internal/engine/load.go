package engine

import (
	"errors"
	"fmt"
	"math"
)

// Model is the closed set of load models. The call site picks one per
// activity and snapshots the choice into the persisted record.
type Model int

const (
	// ModelZonal is the discretized Edwards model over per-zone durations.
	ModelZonal Model = iota
	// ModelContinuous is the Banister-style exponential model over raw HR samples.
	ModelContinuous
	// ModelEstimated is the duration-times-intensity fallback for sessions
	// recorded without a heart rate sensor.
	ModelEstimated
)

// FormulaVersion returns the persisted compatibility stamp for the model.
// Bump these whenever a constant or formula changes; stored rows are never
// recomputed retroactively.
func (m Model) FormulaVersion() string {
	switch m {
	case ModelZonal:
		return "edwards@1.0.0"
	case ModelContinuous:
		return "forma@1.0.0"
	case ModelEstimated:
		return "estimated@1.0.0"
	}
	return fmt.Sprintf("unknown@%d", int(m))
}

// Gender coefficients for the continuous model.
const (
	banisterMale   = 1.92
	banisterFemale = 1.67
)

// maxSampleGap is the longest timestamp delta (seconds) credited between
// consecutive HR samples. Larger gaps are presumed pauses or sensor dropouts
// and contribute nothing.
const maxSampleGap = 30.0

// ErrInvalidZoneBuckets is returned when zonal TRIMP input is not exactly
// five per-zone durations.
var ErrInvalidZoneBuckets = errors.New("zonal TRIMP requires exactly 5 zone durations")

// Edwards zone weights, zone 1 through 5.
var edwardsWeights = [5]float64{1, 2, 3, 4, 5}

// ZonalTRIMP computes the Edwards training impulse from seconds spent in
// each of the five zones: sum of minutes-in-zone times the zone weight.
// The input shape is validated, never coerced.
func ZonalTRIMP(zoneSeconds []float64) (float64, error) {
	if len(zoneSeconds) != 5 {
		return 0, fmt.Errorf("%w, got %d", ErrInvalidZoneBuckets, len(zoneSeconds))
	}
	var trimp float64
	for i, sec := range zoneSeconds {
		trimp += sec / 60 * edwardsWeights[i]
	}
	return trimp, nil
}

// ContinuousTRIMP computes the Banister training impulse from a raw HR
// stream. Each sample above resting HR contributes
// x * 0.64 * e^(b*x) where x is the heart rate reserve fraction, scaled to
// per-minute terms.
//
// When timestamps has the same length as heartrate, real deltas between
// consecutive samples are used; deltas that are non-positive (non-monotonic
// clock) or longer than 30s (pause) are skipped. Otherwise uniform 1 Hz
// sampling is assumed.
//
// A zero or inverted HR reserve, or an empty stream, yields 0. Those are
// degenerate inputs, not errors.
func ContinuousTRIMP(heartrate []float64, timestamps []float64, maxHR, restHR float64, gender string) float64 {
	if len(heartrate) == 0 || maxHR <= restHR {
		return 0
	}

	b := banisterMale
	if gender == "female" {
		b = banisterFemale
	}
	reserve := maxHR - restHR

	contribution := func(hr float64) float64 {
		if hr <= restHR {
			return 0
		}
		x := (hr - restHR) / reserve
		return x * 0.64 * math.Exp(b*x)
	}

	var trimp float64
	if len(timestamps) == len(heartrate) {
		for i := 1; i < len(heartrate); i++ {
			delta := timestamps[i] - timestamps[i-1]
			if delta <= 0 || delta > maxSampleGap {
				continue
			}
			trimp += contribution(heartrate[i]) * delta / 60
		}
		return trimp
	}

	for _, hr := range heartrate {
		trimp += contribution(hr) / 60
	}
	return trimp
}

// EstimatedTRIMP estimates load from duration and intensity alone, for
// activities recorded without a heart rate strap. This keeps the daily load
// chain unbroken across unworn-sensor sessions.
func EstimatedTRIMP(movingTimeSec float64, intensityFactor float64) float64 {
	if movingTimeSec <= 0 || intensityFactor <= 0 {
		return 0
	}
	return movingTimeSec / 60 * intensityFactor
}

// ZoneForIntensity maps an intensity factor to the single zone an estimated
// load is attributed to.
func ZoneForIntensity(intensityFactor float64) int {
	switch {
	case intensityFactor < 0.75:
		return 1
	case intensityFactor < 0.85:
		return 2
	case intensityFactor < 0.95:
		return 3
	case intensityFactor < 1.2:
		return 4
	default:
		return 5
	}
}

// TimeInZones buckets an HR stream into seconds per zone. Timestamp deltas
// follow the same skip rules as ContinuousTRIMP; without timestamps each
// sample counts as one second.
func TimeInZones(zones [5]HRZone, heartrate []float64, timestamps []float64) [5]float64 {
	var out [5]float64
	if len(timestamps) == len(heartrate) && len(heartrate) > 0 {
		for i := 1; i < len(heartrate); i++ {
			delta := timestamps[i] - timestamps[i-1]
			if delta <= 0 || delta > maxSampleGap {
				continue
			}
			if heartrate[i] <= 0 {
				continue
			}
			out[ZoneForHR(zones, heartrate[i])-1] += delta
		}
		return out
	}
	for _, hr := range heartrate {
		if hr <= 0 {
			continue
		}
		out[ZoneForHR(zones, hr)-1]++
	}
	return out
}

// Default athlete thresholds when unset in config.
const (
	DefaultThresholdPace  = 270.0 // seconds per km
	DefaultThresholdPower = 250.0 // watts
)

// IntensityFactorFromPace derives intensity from average speed versus the
// athlete's threshold pace. Faster than threshold yields a factor above 1.
func IntensityFactorFromPace(averageSpeed, thresholdPaceSecPerKm float64) float64 {
	if averageSpeed <= 0 {
		return 0
	}
	if thresholdPaceSecPerKm <= 0 {
		thresholdPaceSecPerKm = DefaultThresholdPace
	}
	paceSecPerKm := 1000 / averageSpeed
	return thresholdPaceSecPerKm / paceSecPerKm
}

// IntensityFactorFromPower derives intensity from average power versus the
// athlete's threshold power.
func IntensityFactorFromPower(averagePower, thresholdPower float64) float64 {
	if averagePower <= 0 {
		return 0
	}
	if thresholdPower <= 0 {
		thresholdPower = DefaultThresholdPower
	}
	return averagePower / thresholdPower
}

// AerobicEfficiency is mean velocity divided by mean heart rate over paired
// samples where both readings are plausible. Returns 0 when nothing pairs up.
func AerobicEfficiency(velocity, heartrate []float64) float64 {
	n := len(velocity)
	if len(heartrate) < n {
		n = len(heartrate)
	}
	var velSum, hrSum float64
	var count int
	for i := 0; i < n; i++ {
		if velocity[i] > 0.5 && heartrate[i] > 40 {
			velSum += velocity[i]
			hrSum += heartrate[i]
			count++
		}
	}
	if count == 0 || hrSum == 0 {
		return 0
	}
	return (velSum / float64(count)) / (hrSum / float64(count))
}
