package engine

// DriftSeverity grades cardiac drift within one activity.
type DriftSeverity string

const (
	DriftNone     DriftSeverity = "none"
	DriftMild     DriftSeverity = "mild"
	DriftModerate DriftSeverity = "moderate"
	DriftSevere   DriftSeverity = "severe"
)

// Minimum stream sizes for a meaningful first-half/second-half comparison.
const (
	driftMinSamples = 60
	driftMinValid   = 40
)

// DriftResult reports aerobic decoupling over a single effort.
type DriftResult struct {
	Detected bool
	Severity DriftSeverity
	DropPct  float64 // efficiency loss from first half to second, percent
	EFStart  float64
	EFEnd    float64
}

// DetectDrift compares velocity/HR efficiency between the first and second
// half of an activity. Streams must be the same length with at least 60
// samples; samples at rest (HR <= 40) or stopped (velocity <= 0.5 m/s) are
// discarded, and at least 40 must survive. Anything short of that reports
// no drift rather than guessing.
func DetectDrift(heartrate, velocity []float64) DriftResult {
	none := DriftResult{Severity: DriftNone}

	if len(heartrate) != len(velocity) || len(heartrate) < driftMinSamples {
		return none
	}

	var efficiency []float64
	for i := range heartrate {
		if heartrate[i] <= 40 || velocity[i] <= 0.5 {
			continue
		}
		efficiency = append(efficiency, velocity[i]/heartrate[i])
	}
	if len(efficiency) < driftMinValid {
		return none
	}

	mid := len(efficiency) / 2
	efStart := mean(efficiency[:mid])
	efEnd := mean(efficiency[mid:])
	if efStart == 0 {
		return none
	}

	dropPct := (efStart - efEnd) / efStart * 100

	severity := DriftNone
	switch {
	case dropPct < 2:
		severity = DriftNone
	case dropPct < 5:
		severity = DriftMild
	case dropPct < 10:
		severity = DriftModerate
	default:
		severity = DriftSevere
	}

	return DriftResult{
		Detected: severity != DriftNone,
		Severity: severity,
		DropPct:  dropPct,
		EFStart:  efStart,
		EFEnd:    efEnd,
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
