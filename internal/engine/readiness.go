package engine

import (
	"math"
	"time"
)

// ReadinessScore is the 0-100 event readiness breakdown. Accumulation and
// specificity carry 40% each, consistency 20%.
type ReadinessScore struct {
	AccumulationScore float64
	SpecificityScore  float64
	ConsistencyScore  float64
	TotalScore        int
}

// RiskLevel classifies the acute:chronic workload ratio.
type RiskLevel string

const (
	RiskUnderreaching RiskLevel = "underreaching"
	RiskOptimal       RiskLevel = "optimal"
	RiskOverreaching  RiskLevel = "overreaching"
)

// ProjectionStatus classifies where the athlete sits relative to an event.
type ProjectionStatus string

const (
	StatusBuilding      ProjectionStatus = "building"
	StatusNeedsTapering ProjectionStatus = "needs_tapering"
	StatusPrime         ProjectionStatus = "prime"
)

// ReadinessActivity is the slice of activity history the scorer needs.
type ReadinessActivity struct {
	Type       string
	StartDate  time.Time
	DistanceKm float64
	MovingTime int // seconds
}

const (
	// Weekly moving time that counts a week as consistent.
	consistentWeekSeconds = 10800
	consistencyWeeks      = 4

	specificityWindowDays = 30
)

// CalculateReadinessScore scores event readiness from chronic load,
// recent long-effort specificity, and weekly consistency.
//
// The CTL target is 1.5 per target kilometre; the long-effort target is 80%
// of race distance, judged over same-type activities in the 30 days ending
// at refDate; consistency counts the last four Monday-anchored weeks with
// at least three hours of moving time.
func CalculateReadinessScore(ctl float64, activities []ReadinessActivity, activityType string, targetDistanceKm float64, refDate time.Time) ReadinessScore {
	var score ReadinessScore

	targetCTL := targetDistanceKm * 1.5
	if targetCTL <= 0 {
		score.AccumulationScore = 100
	} else {
		score.AccumulationScore = math.Min(ctl/targetCTL*100, 100)
	}

	targetLongRun := targetDistanceKm * 0.8
	if targetLongRun <= 0 {
		score.SpecificityScore = 100
	} else {
		windowStart := refDate.AddDate(0, 0, -specificityWindowDays)
		var maxDistance float64
		for _, a := range activities {
			if a.Type != activityType {
				continue
			}
			if a.StartDate.Before(windowStart) || a.StartDate.After(refDate) {
				continue
			}
			if a.DistanceKm > maxDistance {
				maxDistance = a.DistanceKm
			}
		}
		score.SpecificityScore = math.Min(maxDistance/targetLongRun*100, 100)
	}

	score.ConsistencyScore = consistencyScore(activities, refDate)

	score.TotalScore = int(math.Round(
		0.4*score.AccumulationScore + 0.4*score.SpecificityScore + 0.2*score.ConsistencyScore))
	return score
}

// consistencyScore counts recent Monday-anchored weeks clearing the moving
// time bar.
func consistencyScore(activities []ReadinessActivity, refDate time.Time) float64 {
	currentWeek := WeekStart(refDate)
	weekSeconds := make(map[string]int)
	for _, a := range activities {
		weekSeconds[WeekStart(a.StartDate).Format("2006-01-02")] += a.MovingTime
	}

	met := 0
	for i := 1; i <= consistencyWeeks; i++ {
		week := currentWeek.AddDate(0, 0, -7*i)
		if weekSeconds[week.Format("2006-01-02")] >= consistentWeekSeconds {
			met++
		}
	}
	return float64(met) / consistencyWeeks * 100
}

// GetRiskLevel classifies injury risk from the acute:chronic ratio.
func GetRiskLevel(ctl, atl float64) RiskLevel {
	var acwr float64
	if ctl != 0 {
		acwr = atl / ctl
	}
	switch {
	case acwr < 0.8:
		return RiskUnderreaching
	case acwr > 1.3:
		return RiskOverreaching
	default:
		return RiskOptimal
	}
}

// GetProjectionStatus classifies taper state relative to an event date.
// Outside the two-week taper window, only a deeply negative balance flags
// tapering need. Inside it, a taper is simulated by cutting fatigue to 40%
// and checking whether the projected balance lands in the 5..15 sweet spot.
func GetProjectionStatus(eventDate time.Time, ctl, atl float64, today time.Time) ProjectionStatus {
	daysToEvent := GetDaysRemaining(eventDate, today)

	if daysToEvent > 14 {
		if ctl-atl < -20 {
			return StatusNeedsTapering
		}
		return StatusBuilding
	}

	projectedTSB := ctl - atl*0.4
	if projectedTSB >= 5 && projectedTSB <= 15 {
		return StatusPrime
	}
	return StatusBuilding
}

// GetDaysRemaining returns whole calendar days between today and the event,
// both floored to local midnight, clamped to zero for past events.
func GetDaysRemaining(eventDate, today time.Time) int {
	event := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, eventDate.Location())
	now := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	days := 0
	for d := now; d.Before(event); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}
