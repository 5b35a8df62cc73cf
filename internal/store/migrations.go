package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activity summaries
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			athlete_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			timezone TEXT,
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			average_speed REAL,
			average_heartrate REAL,
			max_heartrate REAL,
			average_watts REAL,
			has_heartrate INTEGER NOT NULL,
			streams_synced INTEGER DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_athlete ON activities(athlete_id)`,

		// Per-second stream samples
		`CREATE TABLE IF NOT EXISTS streams (
			activity_id INTEGER NOT NULL,
			time_offset INTEGER NOT NULL,
			velocity_smooth REAL,
			heartrate INTEGER,
			cadence INTEGER,
			distance REAL,
			PRIMARY KEY (activity_id, time_offset),
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Computed load per activity, with the frozen zone snapshot
		`CREATE TABLE IF NOT EXISTS activity_loads (
			activity_id INTEGER PRIMARY KEY,
			trimp_score REAL NOT NULL,
			zone1_s REAL NOT NULL DEFAULT 0,
			zone2_s REAL NOT NULL DEFAULT 0,
			zone3_s REAL NOT NULL DEFAULT 0,
			zone4_s REAL NOT NULL DEFAULT 0,
			zone5_s REAL NOT NULL DEFAULT 0,
			formula_version TEXT NOT NULL,
			zone_model_type TEXT NOT NULL,
			zone_snapshot TEXT NOT NULL,
			intensity_factor REAL NOT NULL DEFAULT 0,
			aerobic_efficiency REAL NOT NULL DEFAULT 0,
			calculated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Daily load chain (CTL/ATL/TSB/ACWR), one row per athlete-day
		`CREATE TABLE IF NOT EXISTS daily_load_profiles (
			athlete_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			daily_trimp REAL NOT NULL DEFAULT 0,
			ctl REAL NOT NULL,
			atl REAL NOT NULL,
			tsb REAL NOT NULL,
			acwr REAL NOT NULL,
			formula_version TEXT NOT NULL,
			calculated_at TEXT NOT NULL,
			PRIMARY KEY (athlete_id, date)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_daily_profiles_date ON daily_load_profiles(date)`,

		// Weekly variability metrics, one row per athlete-week
		`CREATE TABLE IF NOT EXISTS weekly_load_profiles (
			athlete_id INTEGER NOT NULL,
			week_start TEXT NOT NULL,
			total_trimp REAL NOT NULL,
			monotony REAL NOT NULL,
			strain REAL NOT NULL,
			formula_version TEXT NOT NULL,
			PRIMARY KEY (athlete_id, week_start)
		)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
