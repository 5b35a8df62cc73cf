package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trainload/internal/engine"
)

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `json:"strava"`
	Athlete AthleteConfig `json:"athlete"`
}

// StravaConfig holds activity source API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AthleteConfig holds athlete-specific physiological settings.
// All fields are optional; zone resolution falls back from LTHR to
// birth-date age estimation to static defaults.
type AthleteConfig struct {
	LTHR       float64    `json:"lthr"`       // lactate threshold HR, bpm
	BirthDate  string     `json:"birth_date"` // YYYY-MM-DD
	Gender     string     `json:"gender"`     // "male" or "female"
	RestingHR  float64    `json:"resting_hr"`
	MaxHR      float64    `json:"max_hr"`     // measured max HR; overrides the estimate
	LoadModel  string     `json:"load_model"` // "continuous" (default) or "zonal"
	Thresholds Thresholds `json:"thresholds"`
}

// Thresholds are the per-athlete intensity anchors for sensorless loads.
type Thresholds struct {
	Pace  float64 `json:"pace"`  // seconds per km
	Power float64 `json:"power"` // watts
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			Gender:    "male",
			RestingHR: 50,
			Thresholds: Thresholds{
				Pace:  engine.DefaultThresholdPace,
				Power: engine.DefaultThresholdPower,
			},
		},
	}
}

// Profile converts the config fragment into the engine's athlete profile.
// An unparseable birth date is treated as absent rather than failing, so
// zone resolution stays total.
func (a AthleteConfig) Profile() engine.AthleteProfile {
	profile := engine.AthleteProfile{
		LTHR:   a.LTHR,
		Gender: a.Gender,
	}
	if a.BirthDate != "" {
		if birth, err := time.ParseInLocation("2006-01-02", a.BirthDate, time.Local); err == nil {
			profile.BirthDate = &birth
		}
	}
	return profile
}

// LoadModelOrDefault maps the configured model name onto the engine's
// load-model enum. Sessions without an HR stream always use the estimated
// model regardless of this setting.
func (a AthleteConfig) LoadModelOrDefault() engine.Model {
	if a.LoadModel == "zonal" {
		return engine.ModelZonal
	}
	return engine.ModelContinuous
}

// RestingHROrDefault returns the configured resting HR, defaulting to 50.
func (a AthleteConfig) RestingHROrDefault() float64 {
	if a.RestingHR > 0 {
		return a.RestingHR
	}
	return 50
}

// Load reads the configuration from ~/.trainload/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing values
	defaults := DefaultConfig()
	if cfg.Athlete.Gender == "" {
		cfg.Athlete.Gender = defaults.Athlete.Gender
	}
	if cfg.Athlete.RestingHR == 0 {
		cfg.Athlete.RestingHR = defaults.Athlete.RestingHR
	}
	if cfg.Athlete.Thresholds.Pace == 0 {
		cfg.Athlete.Thresholds.Pace = defaults.Athlete.Thresholds.Pace
	}
	if cfg.Athlete.Thresholds.Power == 0 {
		cfg.Athlete.Thresholds.Power = defaults.Athlete.Thresholds.Power
	}

	return &cfg, nil
}

// Save writes the configuration to ~/.trainload/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	return Save(&example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	if c.Athlete.Gender != "" && c.Athlete.Gender != "male" && c.Athlete.Gender != "female" {
		return fmt.Errorf("athlete.gender must be \"male\" or \"female\", got %q", c.Athlete.Gender)
	}
	if c.Athlete.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", c.Athlete.BirthDate); err != nil {
			return fmt.Errorf("athlete.birth_date must be YYYY-MM-DD, got %q", c.Athlete.BirthDate)
		}
	}
	if c.Athlete.LTHR < 0 {
		return fmt.Errorf("athlete.lthr must be positive, got %v", c.Athlete.LTHR)
	}
	if c.Athlete.MaxHR < 0 {
		return fmt.Errorf("athlete.max_hr must be positive, got %v", c.Athlete.MaxHR)
	}
	if m := c.Athlete.LoadModel; m != "" && m != "continuous" && m != "zonal" {
		return fmt.Errorf("athlete.load_model must be \"continuous\" or \"zonal\", got %q", m)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainload", "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainload"), nil
}
