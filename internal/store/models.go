package store

import "time"

// Auth represents OAuth tokens for activity source API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Activity represents one workout summary
type Activity struct {
	ID               int64     `db:"id"`
	AthleteID        int64     `db:"athlete_id"`
	Name             string    `db:"name"`
	Type             string    `db:"type"`
	StartDate        time.Time `db:"start_date"`
	StartDateLocal   time.Time `db:"start_date_local"`
	Timezone         string    `db:"timezone"`
	Distance         float64   `db:"distance"`    // meters
	MovingTime       int       `db:"moving_time"` // seconds
	ElapsedTime      int       `db:"elapsed_time"`
	AverageSpeed     float64   `db:"average_speed"` // m/s
	AverageHeartrate *float64  `db:"average_heartrate"`
	MaxHeartrate     *float64  `db:"max_heartrate"`
	AverageWatts     *float64  `db:"average_watts"`
	HasHeartrate     bool      `db:"has_heartrate"`
	StreamsSynced    bool      `db:"streams_synced"`
}

// LocalDate returns the activity's calendar date as stored (YYYY-MM-DD).
func (a *Activity) LocalDate() string {
	return a.StartDateLocal.Format("2006-01-02")
}

// StreamPoint represents a single per-second sample from activity streams
type StreamPoint struct {
	ActivityID     int64    `db:"activity_id"`
	TimeOffset     int      `db:"time_offset"` // seconds
	VelocitySmooth *float64 `db:"velocity_smooth"`
	Heartrate      *int     `db:"heartrate"`
	Cadence        *int     `db:"cadence"`
	Distance       *float64 `db:"distance"` // cumulative meters
}

// ActivityLoad is the computed load record for one activity. The zone
// snapshot freezes the exact boundaries used so the row stays reproducible
// after the athlete's physiological settings change.
type ActivityLoad struct {
	ActivityID        int64      `db:"activity_id"`
	TRIMPScore        float64    `db:"trimp_score"`
	HRZonesTime       [5]float64 `db:"-"` // seconds per zone, columns zone1_s..zone5_s
	FormulaVersion    string     `db:"formula_version"`
	ZoneModelType     string     `db:"zone_model_type"`
	ZoneSnapshot      string     `db:"zone_snapshot"` // JSON of the five boundaries
	IntensityFactor   float64    `db:"intensity_factor"`
	AerobicEfficiency float64    `db:"aerobic_efficiency"`
}

// DailyLoadProfile is one athlete-day of the smoothed load chain.
// TSB and ACWR are derivable from adjacent CTL/ATL values and are persisted
// together with them in the same write, never independently.
type DailyLoadProfile struct {
	AthleteID      int64     `db:"athlete_id"`
	Date           string    `db:"date"` // YYYY-MM-DD, local calendar
	DailyTRIMP     float64   `db:"daily_trimp"`
	CTL            float64   `db:"ctl"`
	ATL            float64   `db:"atl"`
	TSB            float64   `db:"tsb"`
	ACWR           float64   `db:"acwr"`
	FormulaVersion string    `db:"formula_version"`
	CalculatedAt   time.Time `db:"calculated_at"`
}

// WeeklyLoadProfile is one Monday-anchored week of variability metrics,
// derived entirely from seven daily profiles (missing days count as zero).
type WeeklyLoadProfile struct {
	AthleteID      int64   `db:"athlete_id"`
	WeekStart      string  `db:"week_start"` // YYYY-MM-DD, always a Monday
	TotalTRIMP     float64 `db:"total_trimp"`
	Monotony       float64 `db:"monotony"`
	Strain         float64 `db:"strain"`
	FormulaVersion string  `db:"formula_version"`
}
