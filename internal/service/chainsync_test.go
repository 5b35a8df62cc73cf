package service

import (
	"context"
	"math"
	"testing"
	"time"

	"trainload/internal/engine"
	"trainload/internal/store"
)

const testAthleteID = 42

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// addLoadedActivity stores an activity on the given local date together
// with a precomputed load, which is all the chain walk reads.
func addLoadedActivity(t *testing.T, db *store.DB, id int64, date time.Time, trimp float64) {
	t.Helper()
	err := db.UpsertActivity(&store.Activity{
		ID:             id,
		AthleteID:      testAthleteID,
		Name:           "Morning Run",
		Type:           "Run",
		StartDate:      date.UTC(),
		StartDateLocal: date,
		Distance:       10000,
		MovingTime:     3600,
		ElapsedTime:    3700,
		AverageSpeed:   2.78,
	})
	if err != nil {
		t.Fatalf("UpsertActivity() error = %v", err)
	}
	err = db.UpsertActivityLoad(&store.ActivityLoad{
		ActivityID:     id,
		TRIMPScore:     trimp,
		FormulaVersion: engine.ModelContinuous.FormulaVersion(),
		ZoneModelType:  string(engine.ZoneModelDefault),
		ZoneSnapshot:   "[]",
	})
	if err != nil {
		t.Fatalf("UpsertActivityLoad() error = %v", err)
	}
}

func chainSyncAt(db *store.DB, now time.Time) *ChainSync {
	cs := NewChainSync(db)
	cs.now = func() time.Time { return now }
	return cs
}

func TestSyncChain(t *testing.T) {
	db := setupTestDB(t)

	day1 := time.Date(2026, 8, 3, 7, 0, 0, 0, time.Local) // Monday
	day3 := day1.AddDate(0, 0, 2)
	today := day1.AddDate(0, 0, 9)

	addLoadedActivity(t, db, 1, day1, 100)
	addLoadedActivity(t, db, 2, day3, 50)

	cs := chainSyncAt(db, today)
	if err := cs.SyncChain(context.Background(), testAthleteID, day1); err != nil {
		t.Fatalf("SyncChain() error = %v", err)
	}

	// Every day from the start through today gets a profile.
	profiles, err := db.GetAllDailyProfiles(testAthleteID)
	if err != nil {
		t.Fatalf("GetAllDailyProfiles() error = %v", err)
	}
	if len(profiles) != 10 {
		t.Fatalf("len(profiles) = %d, want 10", len(profiles))
	}

	first := profiles[0]
	if first.Date != "2026-08-03" {
		t.Errorf("first profile date = %s, want 2026-08-03", first.Date)
	}
	if first.DailyTRIMP != 100 {
		t.Errorf("day 1 DailyTRIMP = %v, want 100", first.DailyTRIMP)
	}
	// First day starts from a zero state: form is zero, ratio is high.
	if first.TSB != 0 {
		t.Errorf("day 1 TSB = %v, want 0", first.TSB)
	}
	if first.ACWR < 5 {
		t.Errorf("day 1 ACWR = %v, want the fresh-start spike above 5", first.ACWR)
	}
	if first.FormulaVersion != engine.ChainFormulaVersion {
		t.Errorf("FormulaVersion = %q, want %q", first.FormulaVersion, engine.ChainFormulaVersion)
	}

	// Mirror the recurrence by hand across the ten days.
	state := engine.LoadState{}
	loads := []float64{100, 0, 50, 0, 0, 0, 0, 0, 0, 0}
	for i, p := range profiles {
		var m engine.DayMetrics
		state, m = state.Advance(loads[i])
		if math.Abs(p.CTL-m.CTL) > 1e-9 || math.Abs(p.ATL-m.ATL) > 1e-9 {
			t.Errorf("day %d CTL/ATL = %v/%v, want %v/%v", i+1, p.CTL, p.ATL, m.CTL, m.ATL)
		}
		if p.DailyTRIMP != loads[i] {
			t.Errorf("day %d DailyTRIMP = %v, want %v", i+1, p.DailyTRIMP, loads[i])
		}
	}

	// The weekly resync ran over the whole range: the Monday week holds
	// both activities.
	weekly, err := db.GetWeeklyProfiles(testAthleteID)
	if err != nil {
		t.Fatalf("GetWeeklyProfiles() error = %v", err)
	}
	if len(weekly) != 2 {
		t.Fatalf("len(weekly) = %d, want 2", len(weekly))
	}
	if weekly[0].WeekStart != "2026-08-03" {
		t.Errorf("first week start = %s, want 2026-08-03", weekly[0].WeekStart)
	}
	if weekly[0].TotalTRIMP != 150 {
		t.Errorf("week total = %v, want 150", weekly[0].TotalTRIMP)
	}
	wantMonotony := engine.Monotony([]float64{100, 0, 50, 0, 0, 0, 0})
	if math.Abs(weekly[0].Monotony-wantMonotony) > 1e-9 {
		t.Errorf("week monotony = %v, want %v", weekly[0].Monotony, wantMonotony)
	}
	if math.Abs(weekly[0].Strain-150*wantMonotony) > 1e-9 {
		t.Errorf("week strain = %v, want %v", weekly[0].Strain, 150*wantMonotony)
	}
}

func TestSyncChainSeedsFromPriorProfile(t *testing.T) {
	db := setupTestDB(t)

	err := db.UpsertDailyProfile(&store.DailyLoadProfile{
		AthleteID:      testAthleteID,
		Date:           "2026-08-09",
		CTL:            10,
		ATL:            10,
		FormulaVersion: engine.ChainFormulaVersion,
		CalculatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("UpsertDailyProfile() error = %v", err)
	}

	start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.Local)
	cs := chainSyncAt(db, start)
	if err := cs.SyncChain(context.Background(), testAthleteID, start); err != nil {
		t.Fatalf("SyncChain() error = %v", err)
	}

	got, err := db.GetDailyProfile(testAthleteID, "2026-08-10")
	if err != nil {
		t.Fatalf("GetDailyProfile() error = %v", err)
	}

	// One rest day decays the seeded state rather than restarting at zero.
	wantCTL := 10 * math.Exp(-1.0/42)
	wantATL := 10 * math.Exp(-1.0/7)
	if math.Abs(got.CTL-wantCTL) > 1e-9 {
		t.Errorf("CTL = %v, want %v", got.CTL, wantCTL)
	}
	if math.Abs(got.ATL-wantATL) > 1e-9 {
		t.Errorf("ATL = %v, want %v", got.ATL, wantATL)
	}
	if got.TSB != 0 {
		t.Errorf("TSB = %v, want 0 (seeded CTL equals seeded ATL)", got.TSB)
	}
}

func TestSyncChainConvergenceEarlyExit(t *testing.T) {
	db := setupTestDB(t)

	day1 := time.Date(2026, 5, 4, 8, 0, 0, 0, time.Local)
	today := day1.AddDate(0, 0, 100)

	addLoadedActivity(t, db, 1, day1, 120)

	cs := chainSyncAt(db, today)
	if err := cs.SyncChain(context.Background(), testAthleteID, day1); err != nil {
		t.Fatalf("first SyncChain() error = %v", err)
	}

	// Plant a sentinel far past the last activity. A second walk over
	// unchanged data must stop well before reaching it.
	sentinelDate := day1.AddDate(0, 0, 60).Format("2006-01-02")
	sentinel, err := db.GetDailyProfile(testAthleteID, sentinelDate)
	if err != nil {
		t.Fatalf("GetDailyProfile() error = %v", err)
	}
	sentinel.CTL = 999
	if err := db.UpsertDailyProfile(sentinel); err != nil {
		t.Fatalf("UpsertDailyProfile() error = %v", err)
	}

	if err := cs.SyncChain(context.Background(), testAthleteID, day1); err != nil {
		t.Fatalf("second SyncChain() error = %v", err)
	}

	got, err := db.GetDailyProfile(testAthleteID, sentinelDate)
	if err != nil {
		t.Fatalf("GetDailyProfile() error = %v", err)
	}
	if got.CTL != 999 {
		t.Errorf("sentinel CTL = %v; the walk should have converged and stopped before day 60", got.CTL)
	}

	// But the stable stretch just past the activity was still rewritten.
	early, err := db.GetDailyProfile(testAthleteID, day1.AddDate(0, 0, 5).Format("2006-01-02"))
	if err != nil {
		t.Fatalf("GetDailyProfile() error = %v", err)
	}
	if early.CTL <= 0 || early.CTL >= 120 {
		t.Errorf("early profile CTL = %v, want a decayed positive value", early.CTL)
	}
}

func TestSyncChainNoopWhenStartAfterToday(t *testing.T) {
	db := setupTestDB(t)

	today := time.Date(2026, 8, 26, 12, 0, 0, 0, time.Local)
	cs := chainSyncAt(db, today)

	if err := cs.SyncChain(context.Background(), testAthleteID, today.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("SyncChain() error = %v", err)
	}

	profiles, err := db.GetAllDailyProfiles(testAthleteID)
	if err != nil {
		t.Fatalf("GetAllDailyProfiles() error = %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("len(profiles) = %d, want 0", len(profiles))
	}
}

func TestSyncChainCancellation(t *testing.T) {
	db := setupTestDB(t)

	day1 := time.Date(2026, 8, 3, 7, 0, 0, 0, time.Local)
	addLoadedActivity(t, db, 1, day1, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cs := chainSyncAt(db, day1.AddDate(0, 0, 30))
	if err := cs.SyncChain(ctx, testAthleteID, day1); err != context.Canceled {
		t.Errorf("SyncChain() error = %v, want context.Canceled", err)
	}
}

func TestResyncWeeklyUniformWeek(t *testing.T) {
	db := setupTestDB(t)

	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, time.Local)
	for i := 0; i < 7; i++ {
		err := db.UpsertDailyProfile(&store.DailyLoadProfile{
			AthleteID:      testAthleteID,
			Date:           monday.AddDate(0, 0, i).Format("2006-01-02"),
			DailyTRIMP:     50,
			FormulaVersion: engine.ChainFormulaVersion,
			CalculatedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("UpsertDailyProfile() error = %v", err)
		}
	}

	cs := NewChainSync(db)
	if err := cs.ResyncWeekly(context.Background(), testAthleteID); err != nil {
		t.Fatalf("ResyncWeekly() error = %v", err)
	}

	weekly, err := db.GetWeeklyProfiles(testAthleteID)
	if err != nil {
		t.Fatalf("GetWeeklyProfiles() error = %v", err)
	}
	if len(weekly) != 1 {
		t.Fatalf("len(weekly) = %d, want 1", len(weekly))
	}
	if weekly[0].TotalTRIMP != 350 {
		t.Errorf("TotalTRIMP = %v, want 350", weekly[0].TotalTRIMP)
	}
	// Identical load every day is the textbook monotony red flag.
	if weekly[0].Monotony != 2.0 {
		t.Errorf("Monotony = %v, want 2.0", weekly[0].Monotony)
	}
	if weekly[0].Strain != 700 {
		t.Errorf("Strain = %v, want 700", weekly[0].Strain)
	}
}
