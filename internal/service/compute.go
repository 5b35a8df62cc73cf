package service

import (
	"encoding/json"
	"fmt"
	"time"

	"trainload/internal/config"
	"trainload/internal/engine"
	"trainload/internal/store"
)

// LoadComputer turns stored activities and streams into persisted
// ActivityLoad records. Zones are resolved once per run and frozen into
// each record so historical loads stay reproducible.
type LoadComputer struct {
	store      *store.DB
	profile    engine.AthleteProfile
	restingHR  float64
	maxHR      float64
	model      engine.Model
	thresholds config.Thresholds
}

// NewLoadComputer creates a computer for the configured athlete.
func NewLoadComputer(db *store.DB, athleteCfg config.AthleteConfig) *LoadComputer {
	return &LoadComputer{
		store:      db,
		profile:    athleteCfg.Profile(),
		restingHR:  athleteCfg.RestingHROrDefault(),
		maxHR:      athleteCfg.MaxHR,
		model:      athleteCfg.LoadModelOrDefault(),
		thresholds: athleteCfg.Thresholds,
	}
}

// ComputeActivityLoad builds the load record for one activity without
// persisting it. Activities with a usable HR stream are scored by the
// configured model, continuous over raw samples or zonal over the zone
// durations; sensorless sessions fall back to the duration-times-intensity
// estimate so the daily chain stays unbroken.
func (c *LoadComputer) ComputeActivityLoad(activity *store.Activity, streams []store.StreamPoint) (*store.ActivityLoad, error) {
	resolution := engine.ResolveZones(c.profile, time.Now())

	snapshot, err := json.Marshal(resolution.Zones)
	if err != nil {
		return nil, fmt.Errorf("encoding zone snapshot: %w", err)
	}

	load := &store.ActivityLoad{
		ActivityID:    activity.ID,
		ZoneModelType: string(resolution.Type),
		ZoneSnapshot:  string(snapshot),
	}

	heartrate, timestamps, velocity := splitStreams(streams)

	load.IntensityFactor = c.intensityFactor(activity)
	load.AerobicEfficiency = engine.AerobicEfficiency(velocity, heartrate)

	if len(heartrate) > 0 {
		load.HRZonesTime = engine.TimeInZones(resolution.Zones, heartrate, timestamps)

		switch c.model {
		case engine.ModelZonal:
			score, err := engine.ZonalTRIMP(load.HRZonesTime[:])
			if err != nil {
				return nil, fmt.Errorf("scoring zonal load: %w", err)
			}
			load.TRIMPScore = score
			load.FormulaVersion = engine.ModelZonal.FormulaVersion()
		default:
			maxHR := float64(resolution.EstimatedMaxHR)
			if c.maxHR > 0 {
				maxHR = c.maxHR
			}
			load.TRIMPScore = engine.ContinuousTRIMP(heartrate, timestamps, maxHR, c.restingHR, c.profile.Gender)
			load.FormulaVersion = engine.ModelContinuous.FormulaVersion()
		}
		return load, nil
	}

	// No sensor data: estimate and attribute the whole session to the
	// zone implied by its intensity.
	load.TRIMPScore = engine.EstimatedTRIMP(float64(activity.MovingTime), load.IntensityFactor)
	zone := engine.ZoneForIntensity(load.IntensityFactor)
	load.HRZonesTime[zone-1] = float64(activity.MovingTime)
	load.FormulaVersion = engine.ModelEstimated.FormulaVersion()
	return load, nil
}

// intensityFactor prefers power when the activity has it, otherwise pace.
func (c *LoadComputer) intensityFactor(activity *store.Activity) float64 {
	if activity.AverageWatts != nil && *activity.AverageWatts > 0 {
		return engine.IntensityFactorFromPower(*activity.AverageWatts, c.thresholds.Power)
	}
	return engine.IntensityFactorFromPace(activity.AverageSpeed, c.thresholds.Pace)
}

// splitStreams flattens stream points into the parallel sample slices the
// engine consumes. Only points with an HR reading participate; timestamps
// keep real deltas so pause gaps can be skipped downstream.
func splitStreams(streams []store.StreamPoint) (heartrate, timestamps, velocity []float64) {
	for _, p := range streams {
		if p.Heartrate == nil || *p.Heartrate <= 0 {
			continue
		}
		heartrate = append(heartrate, float64(*p.Heartrate))
		timestamps = append(timestamps, float64(p.TimeOffset))
		if p.VelocitySmooth != nil {
			velocity = append(velocity, *p.VelocitySmooth)
		} else {
			velocity = append(velocity, 0)
		}
	}
	return heartrate, timestamps, velocity
}
