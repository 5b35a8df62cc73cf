package service

import (
	"errors"
	"fmt"
	"time"

	"trainload/internal/engine"
	"trainload/internal/store"
)

// ReadinessService answers event-readiness queries from the persisted
// load chain and activity history.
type ReadinessService struct {
	store *store.DB
	now   func() time.Time
}

// NewReadinessService creates a readiness service over the given store.
func NewReadinessService(db *store.DB) *ReadinessService {
	return &ReadinessService{store: db, now: time.Now}
}

// ReadinessReport bundles everything a consumer needs to describe an
// athlete's standing relative to an event. The numeric values here are
// authoritative; downstream text generation must not alter them.
type ReadinessReport struct {
	Score    engine.ReadinessScore
	Risk     engine.RiskLevel
	Status   engine.ProjectionStatus
	DaysToGo int
	CTL      float64
	ATL      float64
	TSB      float64
	ACWR     float64
	PeakDay  time.Time
	PeakTSB  float64
	Monotony float64
	Strain   float64
}

// EventReadiness scores readiness for a target event.
func (r *ReadinessService) EventReadiness(athleteID int64, activityType string, targetDistanceKm float64, eventDate time.Time) (*ReadinessReport, error) {
	today := r.now()

	latest, err := r.store.GetLatestDailyProfile(athleteID)
	if errors.Is(err, store.ErrProfileNotFound) {
		latest = &store.DailyLoadProfile{}
	} else if err != nil {
		return nil, fmt.Errorf("reading latest profile: %w", err)
	}

	// Five weeks of history covers both the 30-day specificity window and
	// the four consistency weeks.
	since := today.AddDate(0, 0, -35).Format(dateFormat)
	activities, err := r.store.ListActivitiesSince(athleteID, since)
	if err != nil {
		return nil, fmt.Errorf("listing recent activities: %w", err)
	}

	history := make([]engine.ReadinessActivity, 0, len(activities))
	for _, a := range activities {
		history = append(history, engine.ReadinessActivity{
			Type:       a.Type,
			StartDate:  a.StartDateLocal,
			DistanceKm: a.Distance / 1000,
			MovingTime: a.MovingTime,
		})
	}

	report := &ReadinessReport{
		Score:    engine.CalculateReadinessScore(latest.CTL, history, activityType, targetDistanceKm, today),
		Risk:     engine.GetRiskLevel(latest.CTL, latest.ATL),
		Status:   engine.GetProjectionStatus(eventDate, latest.CTL, latest.ATL, today),
		DaysToGo: engine.GetDaysRemaining(eventDate, today),
		CTL:      latest.CTL,
		ATL:      latest.ATL,
		TSB:      latest.TSB,
		ACWR:     latest.ACWR,
	}

	days := engine.GetDaysRemaining(eventDate, today)
	if days < engine.DefaultProjectionDays {
		days = engine.DefaultProjectionDays
	}
	projected := engine.Project(engine.LoadState{CTL: latest.CTL, ATL: latest.ATL}, today, days)
	if peak, ok := engine.FindPeakDay(projected); ok {
		report.PeakDay = peak.Date
		report.PeakTSB = peak.TSB
	}

	weekly, err := r.store.GetWeeklyProfiles(athleteID)
	if err != nil {
		return nil, fmt.Errorf("reading weekly profiles: %w", err)
	}
	if len(weekly) > 0 {
		current := weekly[len(weekly)-1]
		report.Monotony = current.Monotony
		report.Strain = current.Strain
	}

	return report, nil
}

// ActivityDrift runs the cardiac drift detector over one activity's
// stored streams.
func (r *ReadinessService) ActivityDrift(activityID int64) (engine.DriftResult, error) {
	points, err := r.store.GetStreams(activityID)
	if err != nil {
		return engine.DriftResult{}, fmt.Errorf("reading streams: %w", err)
	}

	heartrate := make([]float64, 0, len(points))
	velocity := make([]float64, 0, len(points))
	for _, p := range points {
		var hr, vel float64
		if p.Heartrate != nil {
			hr = float64(*p.Heartrate)
		}
		if p.VelocitySmooth != nil {
			vel = *p.VelocitySmooth
		}
		heartrate = append(heartrate, hr)
		velocity = append(velocity, vel)
	}

	return engine.DetectDrift(heartrate, velocity), nil
}
