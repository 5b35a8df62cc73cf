package engine

import (
	"testing"
	"time"
)

// refDate is a Wednesday; the current week starts Monday 2026-08-24.
var refDate = time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

// consistentWeeks builds one three-hour run per week for the n weeks
// preceding the week containing refDate.
func consistentWeeks(n int) []ReadinessActivity {
	monday := WeekStart(refDate)
	out := make([]ReadinessActivity, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, ReadinessActivity{
			Type:       "Run",
			StartDate:  monday.AddDate(0, 0, -7*i),
			DistanceKm: 4,
			MovingTime: consistentWeekSeconds,
		})
	}
	return out
}

func TestCalculateReadinessScore(t *testing.T) {
	longRun := ReadinessActivity{
		Type:       "Run",
		StartDate:  refDate.AddDate(0, 0, -10),
		DistanceKm: 8,
		MovingTime: 2400,
	}

	tests := []struct {
		name         string
		ctl          float64
		activities   []ReadinessActivity
		activityType string
		targetKm     float64
		wantAccum    float64
		wantSpec     float64
		wantCons     float64
		wantTotal    int
	}{
		{
			name:         "fully prepared for a 10k",
			ctl:          15, // target CTL = 10 * 1.5
			activities:   append(consistentWeeks(4), longRun),
			activityType: "Run",
			targetKm:     10,
			wantAccum:    100,
			wantSpec:     100, // 8km long run covers the 80% target
			wantCons:     100,
			wantTotal:    100,
		},
		{
			name:         "halfway on every axis",
			ctl:          7.5,
			activities: append(consistentWeeks(2), ReadinessActivity{
				Type:       "Run",
				StartDate:  refDate.AddDate(0, 0, -5),
				DistanceKm: 4,
				MovingTime: 1200,
			}),
			activityType: "Run",
			targetKm:     10,
			wantAccum:    50,
			wantSpec:     50,
			wantCons:     50,
			wantTotal:    50,
		},
		{
			name:         "no history",
			ctl:          0,
			activities:   nil,
			activityType: "Run",
			targetKm:     10,
			wantAccum:    0,
			wantSpec:     0,
			wantCons:     0,
			wantTotal:    0,
		},
		{
			name: "other activity types ignored for specificity",
			ctl:  15,
			activities: []ReadinessActivity{{
				Type:       "Ride",
				StartDate:  refDate.AddDate(0, 0, -5),
				DistanceKm: 100,
				MovingTime: consistentWeekSeconds,
			}},
			activityType: "Run",
			targetKm:     10,
			wantAccum:    100,
			wantSpec:     0,
			wantCons:     0, // the ride fell in the current week, not a scored one
			wantTotal:    40,
		},
		{
			name:         "long run outside the 30 day window ignored",
			ctl:          15,
			activities: []ReadinessActivity{{
				Type:       "Run",
				StartDate:  refDate.AddDate(0, 0, -40),
				DistanceKm: 20,
				MovingTime: 7200,
			}},
			activityType: "Run",
			targetKm:     10,
			wantAccum:    100,
			wantSpec:     0,
			wantCons:     0,
			wantTotal:    40,
		},
		{
			name:         "zero distance target scores free",
			ctl:          0,
			activities:   nil,
			activityType: "Run",
			targetKm:     0,
			wantAccum:    100,
			wantSpec:     100,
			wantCons:     0,
			wantTotal:    80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateReadinessScore(tt.ctl, tt.activities, tt.activityType, tt.targetKm, refDate)
			if got.AccumulationScore != tt.wantAccum {
				t.Errorf("AccumulationScore = %v, want %v", got.AccumulationScore, tt.wantAccum)
			}
			if got.SpecificityScore != tt.wantSpec {
				t.Errorf("SpecificityScore = %v, want %v", got.SpecificityScore, tt.wantSpec)
			}
			if got.ConsistencyScore != tt.wantCons {
				t.Errorf("ConsistencyScore = %v, want %v", got.ConsistencyScore, tt.wantCons)
			}
			if got.TotalScore != tt.wantTotal {
				t.Errorf("TotalScore = %v, want %v", got.TotalScore, tt.wantTotal)
			}
		})
	}
}

func TestGetRiskLevel(t *testing.T) {
	tests := []struct {
		name string
		ctl  float64
		atl  float64
		want RiskLevel
	}{
		{"well under", 100, 50, RiskUnderreaching},
		{"lower band edge included", 100, 80, RiskOptimal},
		{"balanced", 100, 100, RiskOptimal},
		{"upper band edge included", 100, 130, RiskOptimal},
		{"spiking", 100, 140, RiskOverreaching},
		{"no chronic base", 0, 0, RiskUnderreaching},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetRiskLevel(tt.ctl, tt.atl); got != tt.want {
				t.Errorf("GetRiskLevel(%v, %v) = %v, want %v", tt.ctl, tt.atl, got, tt.want)
			}
		})
	}
}

func TestGetProjectionStatus(t *testing.T) {
	today := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		eventDate time.Time
		ctl       float64
		atl       float64
		want      ProjectionStatus
	}{
		{
			name:      "far out and balanced",
			eventDate: today.AddDate(0, 0, 60),
			ctl:       50,
			atl:       55,
			want:      StatusBuilding,
		},
		{
			name:      "far out but badly overcooked",
			eventDate: today.AddDate(0, 0, 60),
			ctl:       50,
			atl:       75,
			want:      StatusNeedsTapering,
		},
		{
			name:      "taper window, simulated taper lands in the sweet spot",
			eventDate: today.AddDate(0, 0, 10),
			ctl:       30,
			atl:       50, // 30 - 50*0.4 = 10
			want:      StatusPrime,
		},
		{
			name:      "taper window, too little base to peak",
			eventDate: today.AddDate(0, 0, 10),
			ctl:       3,
			atl:       2, // 3 - 0.8 = 2.2, short of the sweet spot
			want:      StatusBuilding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetProjectionStatus(tt.eventDate, tt.ctl, tt.atl, today); got != tt.want {
				t.Errorf("GetProjectionStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDaysRemaining(t *testing.T) {
	tests := []struct {
		name  string
		event time.Time
		today time.Time
		want  int
	}{
		{
			name:  "a few days out",
			event: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			today: time.Date(2026, 2, 26, 18, 0, 0, 0, time.UTC),
			want:  3,
		},
		{
			name:  "race day",
			event: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			today: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
			want:  0,
		},
		{
			name:  "event already passed",
			event: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			today: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			want:  0,
		},
		{
			name:  "one year out spans a leap february",
			event: time.Date(2028, 3, 1, 0, 0, 0, 0, time.UTC),
			today: time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  366,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetDaysRemaining(tt.event, tt.today); got != tt.want {
				t.Errorf("GetDaysRemaining() = %v, want %v", got, tt.want)
			}
		})
	}
}
