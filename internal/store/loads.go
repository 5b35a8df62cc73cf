package store

import (
	"database/sql"
	"errors"
)

// ErrLoadNotFound is returned when an activity has no computed load record
var ErrLoadNotFound = errors.New("activity load not found")

// UpsertActivityLoad stores the computed load for an activity, keyed on
// activity id. Recomputation overwrites the row; the frozen zone snapshot
// travels with it.
func (db *DB) UpsertActivityLoad(l *ActivityLoad) error {
	_, err := db.Exec(`
		INSERT INTO activity_loads (
			activity_id, trimp_score, zone1_s, zone2_s, zone3_s, zone4_s, zone5_s,
			formula_version, zone_model_type, zone_snapshot,
			intensity_factor, aerobic_efficiency, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			trimp_score = excluded.trimp_score,
			zone1_s = excluded.zone1_s,
			zone2_s = excluded.zone2_s,
			zone3_s = excluded.zone3_s,
			zone4_s = excluded.zone4_s,
			zone5_s = excluded.zone5_s,
			formula_version = excluded.formula_version,
			zone_model_type = excluded.zone_model_type,
			zone_snapshot = excluded.zone_snapshot,
			intensity_factor = excluded.intensity_factor,
			aerobic_efficiency = excluded.aerobic_efficiency,
			calculated_at = CURRENT_TIMESTAMP
	`,
		l.ActivityID, l.TRIMPScore,
		l.HRZonesTime[0], l.HRZonesTime[1], l.HRZonesTime[2], l.HRZonesTime[3], l.HRZonesTime[4],
		l.FormulaVersion, l.ZoneModelType, l.ZoneSnapshot,
		l.IntensityFactor, l.AerobicEfficiency,
	)
	return err
}

// GetActivityLoad retrieves the computed load for an activity
func (db *DB) GetActivityLoad(activityID int64) (*ActivityLoad, error) {
	row := db.QueryRow(`
		SELECT activity_id, trimp_score, zone1_s, zone2_s, zone3_s, zone4_s, zone5_s,
			formula_version, zone_model_type, zone_snapshot,
			intensity_factor, aerobic_efficiency
		FROM activity_loads
		WHERE activity_id = ?
	`, activityID)

	var l ActivityLoad
	err := row.Scan(
		&l.ActivityID, &l.TRIMPScore,
		&l.HRZonesTime[0], &l.HRZonesTime[1], &l.HRZonesTime[2], &l.HRZonesTime[3], &l.HRZonesTime[4],
		&l.FormulaVersion, &l.ZoneModelType, &l.ZoneSnapshot,
		&l.IntensityFactor, &l.AerobicEfficiency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DailyTRIMPSums aggregates activity loads into per-local-date sums for an
// athlete over [fromDate, toDate] inclusive. Dates are YYYY-MM-DD.
func (db *DB) DailyTRIMPSums(athleteID int64, fromDate, toDate string) (map[string]float64, error) {
	rows, err := db.Query(`
		SELECT substr(a.start_date_local, 1, 10) AS day, SUM(l.trimp_score)
		FROM activity_loads l
		JOIN activities a ON a.id = l.activity_id
		WHERE a.athlete_id = ?
		AND substr(a.start_date_local, 1, 10) BETWEEN ? AND ?
		GROUP BY day
	`, athleteID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]float64)
	for rows.Next() {
		var day string
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, err
		}
		sums[day] = total
	}
	return sums, rows.Err()
}

// CountActivityLoads returns the number of activities with computed loads
func (db *DB) CountActivityLoads() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activity_loads").Scan(&count)
	return count, err
}
