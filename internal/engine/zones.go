package engine

import (
	"math"
	"time"
)

// ZoneModelType identifies which strategy produced a set of HR zones.
type ZoneModelType string

const (
	ZoneModelLTHR    ZoneModelType = "lthr"
	ZoneModelAgeEst  ZoneModelType = "age_estimated"
	ZoneModelDefault ZoneModelType = "default"
)

// ZoneCeiling is the open-ended upper bound recorded for zone 5.
const ZoneCeiling = 250

// HRZone is one of five contiguous heart rate training zones.
type HRZone struct {
	Zone  int    `json:"zone"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Label string `json:"label"`
}

var zoneLabels = [5]string{"Recovery", "Endurance", "Tempo", "Threshold", "VO2 Max"}

// AthleteProfile is the physiological fragment zone resolution needs.
// All fields are optional; resolution always succeeds.
type AthleteProfile struct {
	LTHR      float64    // lactate threshold heart rate, bpm
	BirthDate *time.Time // used for age-estimated max HR
	Gender    string     // "male" or "female"; male coefficients by default
}

// ZoneResolution is the outcome of resolving an athlete's zones.
type ZoneResolution struct {
	Zones          [5]HRZone
	Type           ZoneModelType
	SourceValue    float64 // the LTHR or max HR the boundaries were derived from
	EstimatedMaxHR int
}

// ResolveZones derives heart rate zones for an athlete. Priority order:
// a configured LTHR wins over an age-estimated max HR, which wins over the
// static default (max HR 190). It is a total function - any input yields a
// usable five-zone model.
func ResolveZones(profile AthleteProfile, now time.Time) ZoneResolution {
	if profile.LTHR > 0 {
		l := profile.LTHR
		return ZoneResolution{
			Zones: zonesFromBoundaries(
				int(math.Floor(l*0.85)),
				int(math.Floor(l*0.89)),
				int(math.Floor(l*0.94)),
				int(math.Floor(l*0.99)),
			),
			Type:           ZoneModelLTHR,
			SourceValue:    l,
			EstimatedMaxHR: int(math.Round(l / 0.9)),
		}
	}

	if profile.BirthDate != nil {
		hrMax := 220 - calendarAge(*profile.BirthDate, now)
		return ZoneResolution{
			Zones: zonesFromBoundaries(
				hrMax*60/100,
				hrMax*70/100,
				hrMax*80/100,
				hrMax*90/100,
			),
			Type:           ZoneModelAgeEst,
			SourceValue:    float64(hrMax),
			EstimatedMaxHR: hrMax,
		}
	}

	return ZoneResolution{
		Zones:          zonesFromBoundaries(120, 140, 160, 180),
		Type:           ZoneModelDefault,
		SourceValue:    190,
		EstimatedMaxHR: 190,
	}
}

// zonesFromBoundaries builds five contiguous zones from the four upper
// boundaries of zones 1-4. Zone 5 runs to the ceiling.
func zonesFromBoundaries(b1, b2, b3, b4 int) [5]HRZone {
	return [5]HRZone{
		{Zone: 1, Min: 0, Max: b1, Label: zoneLabels[0]},
		{Zone: 2, Min: b1 + 1, Max: b2, Label: zoneLabels[1]},
		{Zone: 3, Min: b2 + 1, Max: b3, Label: zoneLabels[2]},
		{Zone: 4, Min: b3 + 1, Max: b4, Label: zoneLabels[3]},
		{Zone: 5, Min: b4 + 1, Max: ZoneCeiling, Label: zoneLabels[4]},
	}
}

// ZoneForHR returns the 1-based zone containing the given heart rate.
// Samples above every boundary land in zone 5.
func ZoneForHR(zones [5]HRZone, hr float64) int {
	bpm := int(math.Round(hr))
	for _, z := range zones[:4] {
		if bpm <= z.Max {
			return z.Zone
		}
	}
	return 5
}

// calendarAge computes age in whole years by year/month/day comparison.
// Elapsed-time division is wrong across leap years and DST shifts.
func calendarAge(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age
}
