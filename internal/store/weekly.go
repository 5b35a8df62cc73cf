package store

// UpsertWeeklyProfile writes one athlete-week of variability metrics,
// keyed on athlete and Monday week start.
func (db *DB) UpsertWeeklyProfile(p *WeeklyLoadProfile) error {
	_, err := db.Exec(`
		INSERT INTO weekly_load_profiles (
			athlete_id, week_start, total_trimp, monotony, strain, formula_version
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, week_start) DO UPDATE SET
			total_trimp = excluded.total_trimp,
			monotony = excluded.monotony,
			strain = excluded.strain,
			formula_version = excluded.formula_version
	`, p.AthleteID, p.WeekStart, p.TotalTRIMP, p.Monotony, p.Strain, p.FormulaVersion)
	return err
}

// GetWeeklyProfiles retrieves an athlete's weekly metrics in week order
func (db *DB) GetWeeklyProfiles(athleteID int64) ([]WeeklyLoadProfile, error) {
	rows, err := db.Query(`
		SELECT athlete_id, week_start, total_trimp, monotony, strain, formula_version
		FROM weekly_load_profiles
		WHERE athlete_id = ?
		ORDER BY week_start
	`, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []WeeklyLoadProfile
	for rows.Next() {
		var p WeeklyLoadProfile
		err := rows.Scan(&p.AthleteID, &p.WeekStart, &p.TotalTRIMP, &p.Monotony, &p.Strain, &p.FormulaVersion)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
