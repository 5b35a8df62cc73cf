// Package fitimport decodes local FIT activity files into the store's
// activity and stream representations, so workouts recorded offline can
// feed the load chain without going through the remote API.
package fitimport

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"trainload/internal/store"
)

// Decoded is the result of parsing one FIT file.
type Decoded struct {
	Activity store.Activity
	Streams  []store.StreamPoint
}

// ImportFile decodes a single FIT activity file. Local activities get a
// negative synthetic ID derived from the start time so they can never
// collide with API activity IDs, which are positive.
func ImportFile(path string, athleteID int64) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening FIT file: %w", err)
	}
	defer f.Close()

	decoded, err := fit.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("%s is not an activity file: %w", filepath.Base(path), err)
	}
	if len(activity.Sessions) == 0 {
		return nil, fmt.Errorf("%s has no session message", filepath.Base(path))
	}

	session := activity.Sessions[0]
	start := session.StartTime
	if start.IsZero() || fit.IsBaseTime(start) {
		return nil, fmt.Errorf("%s has no valid start time", filepath.Base(path))
	}

	act := store.Activity{
		ID:             -start.Unix(),
		AthleteID:      athleteID,
		Name:           strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Type:           sportName(session.Sport),
		StartDate:      start.UTC(),
		StartDateLocal: start.Local(),
		Timezone:       "",
		Distance:       session.GetTotalDistanceScaled(),
		MovingTime:     int(session.GetTotalTimerTimeScaled()),
		ElapsedTime:    int(session.GetTotalElapsedTimeScaled()),
		AverageSpeed:   session.GetAvgSpeedScaled(),
	}
	if act.MovingTime == 0 {
		act.MovingTime = act.ElapsedTime
	}
	if avgHR := session.AvgHeartRate; avgHR != math.MaxUint8 && avgHR > 0 {
		v := float64(avgHR)
		act.AverageHeartrate = &v
	}
	if maxHR := session.MaxHeartRate; maxHR != math.MaxUint8 && maxHR > 0 {
		v := float64(maxHR)
		act.MaxHeartrate = &v
	}
	if avgW := session.AvgPower; avgW != math.MaxUint16 && avgW > 0 {
		v := float64(avgW)
		act.AverageWatts = &v
	}

	points := recordPoints(activity.Records, act.ID, start)
	act.HasHeartrate = hasHeartrate(points)
	act.StreamsSynced = true

	return &Decoded{Activity: act, Streams: points}, nil
}

// ImportDir decodes every .fit file in a directory. Files that fail to
// decode are reported and skipped so one corrupt export does not block
// the rest of the batch.
func ImportDir(dir string, athleteID int64, onError func(path string, err error)) ([]*Decoded, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var results []*Decoded
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".fit") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		d, err := ImportFile(path, athleteID)
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			continue
		}
		results = append(results, d)
	}
	return results, nil
}

func recordPoints(records []*fit.RecordMsg, activityID int64, start time.Time) []store.StreamPoint {
	rows := make([]*fit.RecordMsg, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		rows = append(rows, rec)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	points := make([]store.StreamPoint, 0, len(rows))
	for _, rec := range rows {
		p := store.StreamPoint{
			ActivityID: activityID,
			TimeOffset: int(rec.Timestamp.Sub(start).Seconds()),
		}
		if rec.HeartRate != math.MaxUint8 && rec.HeartRate > 0 {
			hr := int(rec.HeartRate)
			p.Heartrate = &hr
		}
		if speed, ok := recordSpeed(rec); ok {
			p.VelocitySmooth = &speed
		}
		if rec.Cadence != math.MaxUint8 {
			cad := int(rec.Cadence)
			p.Cadence = &cad
		}
		if dist := rec.GetDistanceScaled(); !math.IsNaN(dist) && dist >= 0 {
			p.Distance = &dist
		}
		points = append(points, p)
	}
	return points
}

func recordSpeed(rec *fit.RecordMsg) (float64, bool) {
	speed := rec.GetEnhancedSpeedScaled()
	if !math.IsNaN(speed) && !math.IsInf(speed, 0) && speed >= 0 {
		return speed, true
	}
	speed = rec.GetSpeedScaled()
	if !math.IsNaN(speed) && !math.IsInf(speed, 0) && speed >= 0 {
		return speed, true
	}
	return 0, false
}

func hasHeartrate(points []store.StreamPoint) bool {
	for _, p := range points {
		if p.Heartrate != nil {
			return true
		}
	}
	return false
}

// sportName maps FIT sport enums onto the activity type names the rest of
// the system uses (matching the API naming where the two overlap).
func sportName(s fit.Sport) string {
	switch s {
	case fit.SportRunning:
		return "Run"
	case fit.SportCycling:
		return "Ride"
	case fit.SportSwimming:
		return "Swim"
	case fit.SportWalking:
		return "Walk"
	case fit.SportHiking:
		return "Hike"
	default:
		return "Workout"
	}
}
