package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trainload/internal/config"
	"trainload/internal/store"
	"trainload/internal/strava"
)

// SyncService orchestrates pulling data from the activity source and
// recomputing the load chain.
type SyncService struct {
	client   *strava.Client
	store    *store.DB
	computer *LoadComputer
	chain    *ChainSync
}

// NewSyncService creates a sync service for the configured athlete.
func NewSyncService(client *strava.Client, db *store.DB, athleteCfg config.AthleteConfig) *SyncService {
	return &SyncService{
		client:   client,
		store:    db,
		computer: NewLoadComputer(db, athleteCfg),
		chain:    NewChainSync(db),
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string // "activities", "streams", "loads", "chain"
	Total           int
	Completed       int
	CurrentActivity string
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	RunID             string
	ActivitiesFetched int
	ActivitiesStored  int
	StreamsFetched    int
	LoadsComputed     int
	Errors            []error
}

// SyncAll performs a full sync: activity summaries, streams, per-activity
// loads, then the daily chain from the earliest touched date.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{RunID: uuid.NewString()}

	if err := s.syncActivities(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	if err := s.syncStreams(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing streams: %w", err)
	}

	chainStart, err := s.computeLoads(ctx, progress, result)
	if err != nil {
		return result, fmt.Errorf("computing loads: %w", err)
	}

	if !chainStart.IsZero() {
		if progress != nil {
			progress <- SyncProgress{Phase: "chain"}
		}
		athleteID, err := s.athleteID()
		if err != nil {
			return result, err
		}
		if err := s.chain.SyncChain(ctx, athleteID, chainStart); err != nil {
			return result, fmt.Errorf("syncing load chain: %w", err)
		}
	}

	s.store.SetSyncState("last_sync_run", result.RunID)
	return result, nil
}

// RecomputeChain rebuilds one athlete's chain from the very first activity.
// Stored daily profiles are dropped first so stale rows from an older
// formula version can't satisfy the convergence check.
func (s *SyncService) RecomputeChain(ctx context.Context, athleteID int64) error {
	all, err := s.store.ListActivitiesSince(athleteID, "0000-01-01")
	if err != nil {
		return fmt.Errorf("listing activities: %w", err)
	}
	if len(all) == 0 {
		return nil
	}
	earliest := all[len(all)-1].StartDateLocal

	if err := s.store.DeleteDailyProfiles(athleteID); err != nil {
		return fmt.Errorf("clearing stored chain: %w", err)
	}
	return s.chain.SyncChain(ctx, athleteID, earliest)
}

// RecomputeAll rebuilds every athlete's chain. Athletes are independent;
// one failure is collected and the rest proceed.
func (s *SyncService) RecomputeAll(ctx context.Context) []error {
	athletes, err := s.store.ListAthleteIDs()
	if err != nil {
		return []error{fmt.Errorf("listing athletes: %w", err)}
	}

	var errs []error
	for _, athleteID := range athletes {
		select {
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
			return errs
		default:
		}
		if err := s.RecomputeChain(ctx, athleteID); err != nil {
			errs = append(errs, fmt.Errorf("athlete %d: %w", athleteID, err))
		}
	}
	return errs
}

// syncActivities fetches new activity summaries and stores them
func (s *SyncService) syncActivities(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	lastSyncStr, _ := s.store.GetSyncState("last_activity_sync")
	var after time.Time
	if lastSyncStr != "" {
		after, _ = time.Parse(time.RFC3339, lastSyncStr)
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "activities"}
	}

	page := 1
	perPage := 100

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		activities, err := s.client.GetActivities(ctx, after, page, perPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}

		result.ActivitiesFetched += len(activities)

		for _, a := range activities {
			if err := s.store.UpsertActivity(convertActivity(a)); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:     "activities",
				Total:     result.ActivitiesFetched,
				Completed: result.ActivitiesStored,
			}
		}

		if len(activities) < perPage {
			break // Last page
		}
		page++
	}

	s.store.SetSyncState("last_activity_sync", time.Now().Format(time.RFC3339))
	return nil
}

// syncStreams fetches per-second data for activities that need it
func (s *SyncService) syncStreams(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingStreams(50)
	if err != nil {
		return fmt.Errorf("getting activities needing streams: %w", err)
	}
	if len(activities) == 0 {
		return nil
	}

	for i, activity := range activities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:           "streams",
				Total:           len(activities),
				Completed:       i,
				CurrentActivity: activity.Name,
			}
		}

		streams, err := s.client.GetActivityStreams(ctx, activity.ID)
		if err != nil {
			// Some activities legitimately have no streams; keep going.
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", activity.ID, activity.Name, err))
			continue
		}

		points := convertStreams(activity.ID, streams)
		if len(points) > 0 {
			if err := s.store.SaveStreams(activity.ID, points); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("saving streams for %d: %w", activity.ID, err))
				continue
			}
		}

		if err := s.store.MarkStreamsSynced(activity.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("marking synced for %d: %w", activity.ID, err))
			continue
		}

		result.StreamsFetched++
	}

	return nil
}

// computeLoads builds load records for activities that lack them and
// returns the earliest local date a load was written for, which is where
// the chain walk must start.
func (s *SyncService) computeLoads(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) (time.Time, error) {
	activities, err := s.store.GetActivitiesNeedingLoads()
	if err != nil {
		return time.Time{}, fmt.Errorf("getting activities needing loads: %w", err)
	}
	if len(activities) == 0 {
		return time.Time{}, nil
	}

	var earliest time.Time

	for i, activity := range activities {
		select {
		case <-ctx.Done():
			return earliest, ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:           "loads",
				Total:           len(activities),
				Completed:       i,
				CurrentActivity: activity.Name,
			}
		}

		streams, err := s.store.GetStreams(activity.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("getting streams for %d: %w", activity.ID, err))
			continue
		}

		load, err := s.computer.ComputeActivityLoad(&activity, streams)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("computing load for %d: %w", activity.ID, err))
			continue
		}

		if err := s.store.UpsertActivityLoad(load); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving load for %d: %w", activity.ID, err))
			continue
		}

		result.LoadsComputed++
		if earliest.IsZero() || activity.StartDateLocal.Before(earliest) {
			earliest = activity.StartDateLocal
		}
	}

	return earliest, nil
}

// athleteID resolves the authenticated athlete.
func (s *SyncService) athleteID() (int64, error) {
	auth, err := s.store.GetAuth()
	if err != nil {
		return 0, fmt.Errorf("resolving athlete: %w", err)
	}
	return auth.AthleteID, nil
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// convertActivity converts an API activity to a store activity
func convertActivity(a strava.Activity) *store.Activity {
	activity := &store.Activity{
		ID:             a.ID,
		AthleteID:      a.Athlete.ID,
		Name:           a.Name,
		Type:           a.Type,
		StartDate:      a.StartDate,
		StartDateLocal: a.StartDateLocal,
		Timezone:       a.Timezone,
		Distance:       a.Distance,
		MovingTime:     a.MovingTime,
		ElapsedTime:    a.ElapsedTime,
		AverageSpeed:   a.AverageSpeed,
		HasHeartrate:   a.HasHeartrate,
		StreamsSynced:  false,
	}

	if a.AverageHeartrate > 0 {
		activity.AverageHeartrate = &a.AverageHeartrate
	}
	if a.MaxHeartrate > 0 {
		activity.MaxHeartrate = &a.MaxHeartrate
	}
	if a.AverageWatts > 0 {
		activity.AverageWatts = &a.AverageWatts
	}

	return activity
}

// convertStreams converts API streams to store stream points
func convertStreams(activityID int64, s *strava.Streams) []store.StreamPoint {
	if s == nil || s.Time == nil {
		return nil
	}

	length := len(s.Time.Data)
	points := make([]store.StreamPoint, length)

	for i := 0; i < length; i++ {
		p := store.StreamPoint{
			ActivityID: activityID,
			TimeOffset: s.Time.Data[i],
		}

		if s.VelocitySmooth != nil && i < len(s.VelocitySmooth.Data) {
			vel := s.VelocitySmooth.Data[i]
			p.VelocitySmooth = &vel
		}
		if s.Heartrate != nil && i < len(s.Heartrate.Data) {
			hr := s.Heartrate.Data[i]
			p.Heartrate = &hr
		}
		if s.Cadence != nil && i < len(s.Cadence.Data) {
			cad := s.Cadence.Data[i]
			p.Cadence = &cad
		}
		if s.Distance != nil && i < len(s.Distance.Data) {
			dist := s.Distance.Data[i]
			p.Distance = &dist
		}

		points[i] = p
	}

	return points
}
