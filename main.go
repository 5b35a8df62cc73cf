package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron"
	"golang.org/x/oauth2"

	"trainload/internal/auth"
	"trainload/internal/config"
	"trainload/internal/fitimport"
	"trainload/internal/service"
	"trainload/internal/store"
	"trainload/internal/strava"
)

const usage = `trainload - training load engine for endurance athletes

Usage:
  trainload [flags] <command> [args]

Commands:
  sync                 Fetch new activities and update the load chain (default)
  resync               Recompute the full load chain from stored activities
  import <path>        Import a local .fit file or a directory of .fit files
  readiness            Score readiness for a target event
  drift <activity-id>  Check an activity for cardiac drift

Flags:
  -schedule "<spec>"   Run sync on a cron schedule instead of once

Readiness flags:
  -event YYYY-MM-DD    Event date (required)
  -distance <km>       Event distance in kilometers (required)
  -type <type>         Activity type, e.g. Run (default Run)
`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	schedule := flag.String("schedule", "", "cron spec for scheduled sync")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("You need to add your Strava API credentials.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n", configDir)
		return nil
	}

	// Open database
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	cmd := "sync"
	args := flag.Args()
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	// Commands that work entirely from local data
	switch cmd {
	case "import":
		return runImport(ctx, db, cfg, args)
	case "readiness":
		return runReadiness(db, args)
	case "drift":
		return runDrift(db, args)
	}

	// sync and resync talk to the API
	client, err := apiClient(ctx, db, cfg)
	if err != nil {
		return err
	}
	syncSvc := service.NewSyncService(client, db, cfg.Athlete)

	switch cmd {
	case "sync":
		if *schedule != "" {
			return runScheduled(ctx, syncSvc, *schedule)
		}
		return runSync(ctx, syncSvc)
	case "resync":
		return runResync(ctx, syncSvc)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// apiClient sets up the authenticated Strava client, running the OAuth
// flow if no tokens are stored and re-authenticating if they are stale.
func apiClient(ctx context.Context, db *store.DB, cfg *config.Config) (*strava.Client, error) {
	storedAuth, err := db.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if err := authenticate(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
		storedAuth, err = db.GetAuth()
		if err != nil {
			return nil, fmt.Errorf("fetching auth after login: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort),
	})

	token := &oauth2.Token{
		AccessToken:  storedAuth.AccessToken,
		RefreshToken: storedAuth.RefreshToken,
		Expiry:       storedAuth.ExpiresAt,
	}

	tokenSource := auth.NewTokenSource(oauthCfg, token, func(newToken *oauth2.Token) error {
		return db.UpdateTokens(newToken.AccessToken, newToken.RefreshToken, newToken.Expiry)
	})

	// Test token is valid by getting a fresh one
	if _, err := tokenSource.Token(); err != nil {
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if err := authenticate(ctx, db, cfg); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
	}

	return strava.NewClient(tokenSource), nil
}

func authenticate(ctx context.Context, db *store.DB, cfg *config.Config) error {
	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort),
	})

	result, err := auth.Authenticate(ctx, oauthCfg)
	if err != nil {
		return err
	}

	// Store the tokens
	storedAuth := &store.Auth{
		AthleteID:    result.AthleteID,
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
		ExpiresAt:    result.Token.Expiry,
	}

	if err := db.SaveAuth(storedAuth); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
	return nil
}

func runSync(ctx context.Context, syncSvc *service.SyncService) error {
	progress := make(chan service.SyncProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p.Total > 0 {
				fmt.Printf("  %s: %d/%d %s\n", p.Phase, p.Completed, p.Total, p.CurrentActivity)
			} else {
				fmt.Printf("  %s...\n", p.Phase)
			}
		}
	}()

	result, err := syncSvc.SyncAll(ctx, progress)
	<-done
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("\nSync %s complete:\n", result.RunID)
	fmt.Printf("  activities: %d fetched, %d stored\n", result.ActivitiesFetched, result.ActivitiesStored)
	fmt.Printf("  streams:    %d fetched\n", result.StreamsFetched)
	fmt.Printf("  loads:      %d computed\n", result.LoadsComputed)
	for _, e := range result.Errors {
		fmt.Printf("  warning: %v\n", e)
	}
	short, daily := syncSvc.RateLimitStatus()
	fmt.Printf("  rate limit: %d short / %d daily remaining\n", short, daily)
	return nil
}

func runResync(ctx context.Context, syncSvc *service.SyncService) error {
	fmt.Println("Recomputing load chain for all athletes...")
	errs := syncSvc.RecomputeAll(ctx)
	for _, e := range errs {
		fmt.Printf("  warning: %v\n", e)
	}
	if len(errs) > 0 {
		return fmt.Errorf("resync finished with %d error(s)", len(errs))
	}
	fmt.Println("Done.")
	return nil
}

// runScheduled runs sync repeatedly on a cron schedule until interrupted.
func runScheduled(ctx context.Context, syncSvc *service.SyncService, spec string) error {
	c := cron.New()
	err := c.AddFunc(spec, func() {
		log.Println("scheduled sync starting")
		if err := runSync(ctx, syncSvc); err != nil {
			log.Printf("scheduled sync failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	c.Start()
	defer c.Stop()
	fmt.Printf("Running sync on schedule %q. Ctrl-C to stop.\n", spec)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	return nil
}

func runImport(ctx context.Context, db *store.DB, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: trainload import <file.fit|dir>")
	}
	path := args[0]

	athleteID, err := localAthleteID(db)
	if err != nil {
		return err
	}

	var imports []*fitimport.Decoded
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		imports, err = fitimport.ImportDir(path, athleteID, func(p string, err error) {
			fmt.Printf("  skipping %s: %v\n", p, err)
		})
		if err != nil {
			return err
		}
	} else {
		d, err := fitimport.ImportFile(path, athleteID)
		if err != nil {
			return err
		}
		imports = append(imports, d)
	}
	if len(imports) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	computer := service.NewLoadComputer(db, cfg.Athlete)
	chain := service.NewChainSync(db)

	var earliest time.Time
	for _, d := range imports {
		if err := db.UpsertActivity(&d.Activity); err != nil {
			return fmt.Errorf("storing %s: %w", d.Activity.Name, err)
		}
		if err := db.SaveStreams(d.Activity.ID, d.Streams); err != nil {
			return fmt.Errorf("storing streams for %s: %w", d.Activity.Name, err)
		}
		load, err := computer.ComputeActivityLoad(&d.Activity, d.Streams)
		if err != nil {
			fmt.Printf("  skipping load for %s: %v\n", d.Activity.Name, err)
			continue
		}
		if err := db.UpsertActivityLoad(load); err != nil {
			return fmt.Errorf("storing load for %s: %w", d.Activity.Name, err)
		}
		fmt.Printf("  %s (%s): TRIMP %.1f\n", d.Activity.Name, d.Activity.LocalDate(), load.TRIMPScore)
		if earliest.IsZero() || d.Activity.StartDateLocal.Before(earliest) {
			earliest = d.Activity.StartDateLocal
		}
	}

	if !earliest.IsZero() {
		if err := chain.SyncChain(ctx, athleteID, earliest); err != nil {
			return fmt.Errorf("updating load chain: %w", err)
		}
	}
	fmt.Printf("Imported %d activities.\n", len(imports))
	return nil
}

func runReadiness(db *store.DB, args []string) error {
	fs := flag.NewFlagSet("readiness", flag.ContinueOnError)
	eventDate := fs.String("event", "", "event date YYYY-MM-DD")
	distance := fs.Float64("distance", 0, "event distance in km")
	activityType := fs.String("type", "Run", "activity type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventDate == "" || *distance <= 0 {
		return fmt.Errorf("usage: trainload readiness -event YYYY-MM-DD -distance <km> [-type Run]")
	}
	date, err := time.ParseInLocation("2006-01-02", *eventDate, time.Local)
	if err != nil {
		return fmt.Errorf("invalid event date %q: %w", *eventDate, err)
	}

	athleteID, err := localAthleteID(db)
	if err != nil {
		return err
	}

	svc := service.NewReadinessService(db)
	report, err := svc.EventReadiness(athleteID, *activityType, *distance, date)
	if err != nil {
		return fmt.Errorf("computing readiness: %w", err)
	}

	fmt.Print(readinessSummary(report, *distance, *activityType, *eventDate))
	return nil
}

// readinessSummary renders the readiness report as the block of text the
// readiness command prints. Subscores are float64 and rounded for display.
func readinessSummary(report *service.ReadinessReport, distanceKm float64, activityType, eventDate string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Readiness for %.1f km %s on %s (%d days to go)\n\n",
		distanceKm, strings.ToLower(activityType), eventDate, report.DaysToGo)
	fmt.Fprintf(&b, "  Score:        %d/100 (accumulation %.0f, specificity %.0f, consistency %.0f)\n",
		report.Score.TotalScore, report.Score.AccumulationScore,
		report.Score.SpecificityScore, report.Score.ConsistencyScore)
	fmt.Fprintf(&b, "  Risk:         %s (ACWR %.2f)\n", report.Risk, report.ACWR)
	fmt.Fprintf(&b, "  Status:       %s\n", report.Status)
	fmt.Fprintf(&b, "  Fitness:      CTL %.1f  ATL %.1f  TSB %.1f\n", report.CTL, report.ATL, report.TSB)
	fmt.Fprintf(&b, "  Week:         monotony %.2f  strain %.1f\n", report.Monotony, report.Strain)
	if !report.PeakDay.IsZero() {
		fmt.Fprintf(&b, "  Peak form:    TSB %.1f on %s (zero-load projection)\n",
			report.PeakTSB, report.PeakDay.Format("2006-01-02"))
	}
	return b.String()
}

func runDrift(db *store.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: trainload drift <activity-id>")
	}
	activityID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid activity id %q", args[0])
	}

	svc := service.NewReadinessService(db)
	result, err := svc.ActivityDrift(activityID)
	if err != nil {
		return fmt.Errorf("analyzing drift: %w", err)
	}

	if !result.Detected {
		fmt.Println("No meaningful cardiac drift detected.")
		return nil
	}
	fmt.Printf("Cardiac drift: %s (efficiency dropped %.1f%%, %.4f -> %.4f)\n",
		result.Severity, result.DropPct, result.EFStart, result.EFEnd)
	return nil
}

// localAthleteID resolves the athlete to operate on: stored auth when the
// API has been linked, otherwise the single athlete present in the store.
func localAthleteID(db *store.DB) (int64, error) {
	a, err := db.GetAuth()
	if err == nil {
		return a.AthleteID, nil
	}
	if !errors.Is(err, store.ErrNoAuth) {
		return 0, err
	}
	ids, err := db.ListAthleteIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		return ids[0], nil
	}
	// Nothing stored yet; local imports start under a placeholder athlete.
	return 1, nil
}
