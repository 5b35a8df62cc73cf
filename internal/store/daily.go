package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrProfileNotFound is returned when no daily profile exists for a date
var ErrProfileNotFound = errors.New("daily load profile not found")

const dailyColumns = `athlete_id, date, daily_trimp, ctl, atl, tsb, acwr, formula_version, calculated_at`

// UpsertDailyProfile writes one athlete-day of the load chain, keyed on
// athlete and date.
func (db *DB) UpsertDailyProfile(p *DailyLoadProfile) error {
	_, err := db.Exec(`
		INSERT INTO daily_load_profiles (
			athlete_id, date, daily_trimp, ctl, atl, tsb, acwr, formula_version, calculated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, date) DO UPDATE SET
			daily_trimp = excluded.daily_trimp,
			ctl = excluded.ctl,
			atl = excluded.atl,
			tsb = excluded.tsb,
			acwr = excluded.acwr,
			formula_version = excluded.formula_version,
			calculated_at = excluded.calculated_at
	`,
		p.AthleteID, p.Date, p.DailyTRIMP, p.CTL, p.ATL, p.TSB, p.ACWR,
		p.FormulaVersion, p.CalculatedAt.Format(time.RFC3339),
	)
	return err
}

// GetDailyProfile retrieves the profile for one athlete-day
func (db *DB) GetDailyProfile(athleteID int64, date string) (*DailyLoadProfile, error) {
	row := db.QueryRow(`
		SELECT `+dailyColumns+`
		FROM daily_load_profiles
		WHERE athlete_id = ? AND date = ?
	`, athleteID, date)
	return scanDailyProfile(row)
}

// GetDailyProfileBefore retrieves the most recent profile strictly before
// the given date. This seeds the chain sync recurrence.
func (db *DB) GetDailyProfileBefore(athleteID int64, date string) (*DailyLoadProfile, error) {
	row := db.QueryRow(`
		SELECT `+dailyColumns+`
		FROM daily_load_profiles
		WHERE athlete_id = ? AND date < ?
		ORDER BY date DESC
		LIMIT 1
	`, athleteID, date)
	return scanDailyProfile(row)
}

// GetDailyProfilesRange retrieves profiles for [fromDate, toDate] in date order
func (db *DB) GetDailyProfilesRange(athleteID int64, fromDate, toDate string) ([]DailyLoadProfile, error) {
	rows, err := db.Query(`
		SELECT `+dailyColumns+`
		FROM daily_load_profiles
		WHERE athlete_id = ? AND date BETWEEN ? AND ?
		ORDER BY date
	`, athleteID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDailyProfiles(rows)
}

// GetAllDailyProfiles retrieves an athlete's whole chain in date order
func (db *DB) GetAllDailyProfiles(athleteID int64) ([]DailyLoadProfile, error) {
	rows, err := db.Query(`
		SELECT `+dailyColumns+`
		FROM daily_load_profiles
		WHERE athlete_id = ?
		ORDER BY date
	`, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDailyProfiles(rows)
}

// GetLatestDailyProfile retrieves the newest profile for an athlete
func (db *DB) GetLatestDailyProfile(athleteID int64) (*DailyLoadProfile, error) {
	row := db.QueryRow(`
		SELECT `+dailyColumns+`
		FROM daily_load_profiles
		WHERE athlete_id = ?
		ORDER BY date DESC
		LIMIT 1
	`, athleteID)
	return scanDailyProfile(row)
}

// DeleteDailyProfiles removes an athlete's entire chain. Used by full
// recompute only.
func (db *DB) DeleteDailyProfiles(athleteID int64) error {
	_, err := db.Exec(`DELETE FROM daily_load_profiles WHERE athlete_id = ?`, athleteID)
	return err
}

func scanDailyProfile(row *sql.Row) (*DailyLoadProfile, error) {
	var p DailyLoadProfile
	var calculatedAt string
	err := row.Scan(
		&p.AthleteID, &p.Date, &p.DailyTRIMP, &p.CTL, &p.ATL, &p.TSB, &p.ACWR,
		&p.FormulaVersion, &calculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CalculatedAt, _ = time.Parse(time.RFC3339, calculatedAt)
	return &p, nil
}

func scanDailyProfiles(rows *sql.Rows) ([]DailyLoadProfile, error) {
	var profiles []DailyLoadProfile
	for rows.Next() {
		var p DailyLoadProfile
		var calculatedAt string
		err := rows.Scan(
			&p.AthleteID, &p.Date, &p.DailyTRIMP, &p.CTL, &p.ATL, &p.TSB, &p.ACWR,
			&p.FormulaVersion, &calculatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.CalculatedAt, _ = time.Parse(time.RFC3339, calculatedAt)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
