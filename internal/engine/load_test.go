package engine

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestZonalTRIMP(t *testing.T) {
	tests := []struct {
		name        string
		zoneSeconds []float64
		want        float64
	}{
		{
			name: "worked example",
			// 1min z1 + 2min z2 + 3min z3 + 1min z4 + 1min z5
			// = 1*1 + 2*2 + 3*3 + 1*4 + 1*5 = 23
			zoneSeconds: []float64{60, 120, 180, 60, 60},
			want:        23,
		},
		{
			name:        "all rest",
			zoneSeconds: []float64{0, 0, 0, 0, 0},
			want:        0,
		},
		{
			name: "one hour steady zone 2",
			// 60 min * weight 2
			zoneSeconds: []float64{0, 3600, 0, 0, 0},
			want:        120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ZonalTRIMP(tt.zoneSeconds)
			if err != nil {
				t.Fatalf("ZonalTRIMP() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ZonalTRIMP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZonalTRIMPRejectsWrongBucketCount(t *testing.T) {
	for _, input := range [][]float64{nil, {}, {60}, {60, 60, 60, 60}, {60, 60, 60, 60, 60, 60}} {
		_, err := ZonalTRIMP(input)
		if !errors.Is(err, ErrInvalidZoneBuckets) {
			t.Errorf("ZonalTRIMP(len %d) error = %v, want ErrInvalidZoneBuckets", len(input), err)
		}
	}
}

func TestContinuousTRIMP(t *testing.T) {
	steady := func(hr float64, n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = hr
		}
		return out
	}

	tests := []struct {
		name      string
		heartrate []float64
		maxHR     float64
		restHR    float64
		gender    string
		want      float64
		delta     float64
	}{
		{
			name: "60 min steady at half reserve",
			// x = (125-50)/(200-50) = 0.5
			// per minute: 0.5 * 0.64 * e^(1.92*0.5) = 0.8357
			// 60 minutes = ~50.1
			heartrate: steady(125, 3600),
			maxHR:     200,
			restHR:    50,
			gender:    "male",
			want:      50.1,
			delta:     0.5,
		},
		{
			name:      "empty stream",
			heartrate: nil,
			maxHR:     200,
			restHR:    50,
			gender:    "male",
			want:      0,
		},
		{
			name:      "inverted reserve",
			heartrate: steady(125, 3600),
			maxHR:     50,
			restHR:    200,
			gender:    "male",
			want:      0,
		},
		{
			name:      "samples at or below resting contribute nothing",
			heartrate: steady(45, 3600),
			maxHR:     200,
			restHR:    50,
			gender:    "male",
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContinuousTRIMP(tt.heartrate, nil, tt.maxHR, tt.restHR, tt.gender)
			if math.Abs(got-tt.want) > tt.delta {
				t.Errorf("ContinuousTRIMP() = %v, want %v (±%v)", got, tt.want, tt.delta)
			}
		})
	}
}

func TestContinuousTRIMPGenderCoefficients(t *testing.T) {
	hr := make([]float64, 1800)
	for i := range hr {
		hr[i] = 160
	}

	male := ContinuousTRIMP(hr, nil, 200, 50, "male")
	female := ContinuousTRIMP(hr, nil, 200, 50, "female")

	if male <= female {
		t.Errorf("male TRIMP %v should exceed female TRIMP %v at identical intensity", male, female)
	}
	if female <= 0 {
		t.Errorf("female TRIMP = %v, want > 0", female)
	}
}

func TestContinuousTRIMPTimestampGaps(t *testing.T) {
	hr := []float64{150, 150, 150}

	// Uninterrupted: two 1s deltas counted.
	full := ContinuousTRIMP(hr, []float64{0, 1, 2}, 200, 50, "male")
	// 100s gap between the last two samples is treated as a pause.
	gapped := ContinuousTRIMP(hr, []float64{0, 1, 101}, 200, 50, "male")

	if full <= 0 {
		t.Fatalf("uninterrupted TRIMP = %v, want > 0", full)
	}
	if math.Abs(gapped-full/2) > 1e-9 {
		t.Errorf("gapped TRIMP = %v, want %v (half of uninterrupted)", gapped, full/2)
	}

	// Non-monotonic timestamps are skipped too.
	backwards := ContinuousTRIMP(hr, []float64{0, 1, 0.5}, 200, 50, "male")
	if math.Abs(backwards-full/2) > 1e-9 {
		t.Errorf("backwards TRIMP = %v, want %v", backwards, full/2)
	}
}

func TestEstimatedTRIMP(t *testing.T) {
	tests := []struct {
		name            string
		movingTime      float64
		intensityFactor float64
		want            float64
	}{
		{"one hour at threshold", 3600, 1.0, 60},
		{"30 min easy", 1800, 0.7, 21},
		{"zero duration", 0, 1.0, 0},
		{"zero intensity", 3600, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatedTRIMP(tt.movingTime, tt.intensityFactor)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EstimatedTRIMP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZoneForIntensity(t *testing.T) {
	tests := []struct {
		intensityFactor float64
		want            int
	}{
		{0.5, 1},
		{0.74, 1},
		{0.75, 2},
		{0.84, 2},
		{0.85, 3},
		{0.94, 3},
		{0.95, 4},
		{1.19, 4},
		{1.2, 5},
		{1.5, 5},
	}

	for _, tt := range tests {
		if got := ZoneForIntensity(tt.intensityFactor); got != tt.want {
			t.Errorf("ZoneForIntensity(%v) = %v, want %v", tt.intensityFactor, got, tt.want)
		}
	}
}

func TestTimeInZones(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	zones := ResolveZones(AthleteProfile{}, now).Zones // boundaries 120/140/160/180

	t.Run("uniform sampling counts one second each", func(t *testing.T) {
		hr := []float64{110, 110, 130, 150, 170, 190, 0}
		got := TimeInZones(zones, hr, nil)
		want := [5]float64{2, 1, 1, 1, 1} // zero HR dropped
		if got != want {
			t.Errorf("TimeInZones() = %v, want %v", got, want)
		}
	})

	t.Run("timestamp deltas attribute to the trailing sample", func(t *testing.T) {
		hr := []float64{110, 130, 130, 170}
		ts := []float64{0, 5, 10, 12}
		got := TimeInZones(zones, hr, ts)
		want := [5]float64{0, 10, 0, 2, 0}
		if got != want {
			t.Errorf("TimeInZones() = %v, want %v", got, want)
		}
	})

	t.Run("pause gaps excluded", func(t *testing.T) {
		hr := []float64{130, 130, 130}
		ts := []float64{0, 5, 100}
		got := TimeInZones(zones, hr, ts)
		want := [5]float64{0, 5, 0, 0, 0}
		if got != want {
			t.Errorf("TimeInZones() = %v, want %v", got, want)
		}
	})
}

func TestIntensityFactorFromPace(t *testing.T) {
	tests := []struct {
		name          string
		averageSpeed  float64
		thresholdPace float64
		want          float64
		delta         float64
	}{
		{
			name:          "exactly threshold pace",
			averageSpeed:  1000.0 / 270.0, // 4:30/km as m/s
			thresholdPace: 270,
			want:          1.0,
			delta:         1e-9,
		},
		{
			name:          "faster than threshold",
			averageSpeed:  4.0, // 4:10/km
			thresholdPace: 270,
			want:          1.08,
			delta:         0.01,
		},
		{
			name:          "zero speed",
			averageSpeed:  0,
			thresholdPace: 270,
			want:          0,
			delta:         0,
		},
		{
			name:          "unset threshold falls back to default",
			averageSpeed:  1000.0 / DefaultThresholdPace,
			thresholdPace: 0,
			want:          1.0,
			delta:         1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntensityFactorFromPace(tt.averageSpeed, tt.thresholdPace)
			if math.Abs(got-tt.want) > tt.delta {
				t.Errorf("IntensityFactorFromPace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntensityFactorFromPower(t *testing.T) {
	if got := IntensityFactorFromPower(250, 250); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("IntensityFactorFromPower(250, 250) = %v, want 1.0", got)
	}
	if got := IntensityFactorFromPower(200, 250); math.Abs(got-0.8) > 1e-9 {
		t.Errorf("IntensityFactorFromPower(200, 250) = %v, want 0.8", got)
	}
	if got := IntensityFactorFromPower(0, 250); got != 0 {
		t.Errorf("IntensityFactorFromPower(0, 250) = %v, want 0", got)
	}
	if got := IntensityFactorFromPower(DefaultThresholdPower, 0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("IntensityFactorFromPower with unset threshold = %v, want 1.0", got)
	}
}

func TestAerobicEfficiency(t *testing.T) {
	t.Run("steady effort", func(t *testing.T) {
		vel := []float64{3.0, 3.0, 3.0}
		hr := []float64{150, 150, 150}
		got := AerobicEfficiency(vel, hr)
		if math.Abs(got-0.02) > 1e-9 {
			t.Errorf("AerobicEfficiency() = %v, want 0.02", got)
		}
	})

	t.Run("implausible samples filtered", func(t *testing.T) {
		// Standing still and no-strap samples must not dilute the ratio.
		vel := []float64{3.0, 0.2, 3.0, 3.0}
		hr := []float64{150, 150, 30, 150}
		got := AerobicEfficiency(vel, hr)
		if math.Abs(got-0.02) > 1e-9 {
			t.Errorf("AerobicEfficiency() = %v, want 0.02", got)
		}
	})

	t.Run("nothing plausible", func(t *testing.T) {
		if got := AerobicEfficiency([]float64{0.1}, []float64{30}); got != 0 {
			t.Errorf("AerobicEfficiency() = %v, want 0", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := AerobicEfficiency(nil, nil); got != 0 {
			t.Errorf("AerobicEfficiency() = %v, want 0", got)
		}
	})
}

func TestModelFormulaVersions(t *testing.T) {
	tests := []struct {
		model Model
		want  string
	}{
		{ModelZonal, "edwards@1.0.0"},
		{ModelContinuous, "forma@1.0.0"},
		{ModelEstimated, "estimated@1.0.0"},
	}
	for _, tt := range tests {
		if got := tt.model.FormulaVersion(); got != tt.want {
			t.Errorf("FormulaVersion() = %v, want %v", got, tt.want)
		}
	}
}
