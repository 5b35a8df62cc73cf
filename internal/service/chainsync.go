package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"trainload/internal/engine"
	"trainload/internal/store"
)

const (
	// Epsilon is the CTL/ATL delta below which a recomputed day is
	// considered unchanged from its stored value. 0.01 is far below any
	// meaningfully different training state.
	Epsilon = 0.01

	// ConvergenceWindow is how many consecutive stable days past the last
	// activity stop the forward walk. Roughly two chronic half-lives of
	// slack without sacrificing numeric fidelity.
	ConvergenceWindow = 14

	dateFormat = "2006-01-02"
)

// ChainSync recomputes and persists the daily load chain for one athlete.
// Strictly sequential per athlete: each day's CTL/ATL depends on the
// previous day's, so the walk must never be parallelized within one chain.
// Different athletes are independent.
type ChainSync struct {
	store *store.DB

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewChainSync creates a chain sync over the given store.
func NewChainSync(db *store.DB) *ChainSync {
	return &ChainSync{store: db, now: time.Now}
}

// SyncChain walks calendar days from startDate through today, re-running
// the load recurrence with freshly aggregated daily sums and upserting
// each day. The walk seeds from the last stored profile strictly before
// startDate and exits early once recomputed values have matched stored
// ones for ConvergenceWindow consecutive days past the last activity.
//
// A persistence error aborts the remaining range and propagates; days
// already written stay written.
func (s *ChainSync) SyncChain(ctx context.Context, athleteID int64, startDate time.Time) error {
	start := midnight(startDate)
	today := midnight(s.now())
	if start.After(today) {
		return nil
	}

	startKey := start.Format(dateFormat)
	todayKey := today.Format(dateFormat)

	state, err := s.seedState(athleteID, startKey)
	if err != nil {
		return fmt.Errorf("seeding chain state: %w", err)
	}

	sums, err := s.store.DailyTRIMPSums(athleteID, startKey, todayKey)
	if err != nil {
		return fmt.Errorf("aggregating daily loads: %w", err)
	}

	lastActivityDate := startKey
	for day, total := range sums {
		if total > 0 && day > lastActivityDate {
			lastActivityDate = day
		}
	}

	stableDays := 0
	calculatedAt := s.now()

	// Advance by calendar components, never by raw duration, so DST
	// transitions can't skip or double a day.
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		key := d.Format(dateFormat)
		trimp := sums[key]

		var metrics engine.DayMetrics
		state, metrics = state.Advance(trimp)

		stored, err := s.store.GetDailyProfile(athleteID, key)
		if err != nil && !errors.Is(err, store.ErrProfileNotFound) {
			return fmt.Errorf("reading profile for %s: %w", key, err)
		}

		if stored != nil && key > lastActivityDate &&
			math.Abs(stored.CTL-metrics.CTL) < Epsilon &&
			math.Abs(stored.ATL-metrics.ATL) < Epsilon {
			stableDays++
		} else {
			stableDays = 0
		}

		profile := &store.DailyLoadProfile{
			AthleteID:      athleteID,
			Date:           key,
			DailyTRIMP:     trimp,
			CTL:            metrics.CTL,
			ATL:            metrics.ATL,
			TSB:            metrics.TSB,
			ACWR:           metrics.ACWR,
			FormulaVersion: engine.ChainFormulaVersion,
			CalculatedAt:   calculatedAt,
		}
		if err := s.store.UpsertDailyProfile(profile); err != nil {
			return fmt.Errorf("persisting profile for %s: %w", key, err)
		}

		if stableDays >= ConvergenceWindow {
			// The rest of the chain already matches what's stored.
			break
		}
	}

	return s.ResyncWeekly(ctx, athleteID)
}

// seedState loads the recurrence state as of the day before startKey.
func (s *ChainSync) seedState(athleteID int64, startKey string) (engine.LoadState, error) {
	prev, err := s.store.GetDailyProfileBefore(athleteID, startKey)
	if errors.Is(err, store.ErrProfileNotFound) {
		return engine.LoadState{}, nil
	}
	if err != nil {
		return engine.LoadState{}, err
	}
	return engine.LoadState{CTL: prev.CTL, ATL: prev.ATL}, nil
}

// ResyncWeekly recomputes monotony and strain for the athlete's entire
// history from the persisted daily profiles. Days without a profile count
// as zero load.
func (s *ChainSync) ResyncWeekly(ctx context.Context, athleteID int64) error {
	profiles, err := s.store.GetAllDailyProfiles(athleteID)
	if err != nil {
		return fmt.Errorf("reading daily profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil
	}

	loadByDate := make(map[string]float64, len(profiles))
	for _, p := range profiles {
		loadByDate[p.Date] = p.DailyTRIMP
	}

	firstDay, err := time.ParseInLocation(dateFormat, profiles[0].Date, time.Local)
	if err != nil {
		return fmt.Errorf("parsing first profile date: %w", err)
	}
	lastDay, err := time.ParseInLocation(dateFormat, profiles[len(profiles)-1].Date, time.Local)
	if err != nil {
		return fmt.Errorf("parsing last profile date: %w", err)
	}

	firstWeek := engine.WeekStart(firstDay)
	lastWeek := engine.WeekStart(lastDay)

	for week := firstWeek; !week.After(lastWeek); week = week.AddDate(0, 0, 7) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		loads := make([]float64, 7)
		var total float64
		for i := 0; i < 7; i++ {
			loads[i] = loadByDate[week.AddDate(0, 0, i).Format(dateFormat)]
			total += loads[i]
		}

		monotony := engine.Monotony(loads)
		profile := &store.WeeklyLoadProfile{
			AthleteID:      athleteID,
			WeekStart:      week.Format(dateFormat),
			TotalTRIMP:     total,
			Monotony:       monotony,
			Strain:         engine.Strain(total, monotony),
			FormulaVersion: engine.ChainFormulaVersion,
		}
		if err := s.store.UpsertWeeklyProfile(profile); err != nil {
			return fmt.Errorf("persisting week %s: %w", profile.WeekStart, err)
		}
	}

	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
