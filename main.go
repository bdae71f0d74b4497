package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotel-scraper/config"
	"hotel-scraper/db"
	"hotel-scraper/fetcher"
	"hotel-scraper/filter"
	"hotel-scraper/notify"
	"hotel-scraper/pipeline"
	"hotel-scraper/sheets"
	"hotel-scraper/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	fetcherKind := flag.String("fetcher", "rod", "Fetcher to use: rod (headless browser) or colly (plain HTTP)")
	refreshCities := flag.Bool("refresh-cities", false, "Re-discover city listings even when the cache exists")
	maxCities := flag.Int("cities", 0, "Limit the run to the first N city listings (0 = all)")
	maxPages := flag.Int("pages", 0, "Override the per-city pagination cap (0 = use config)")
	rebuildCSV := flag.Bool("rebuild-csv", false, "Regenerate the CSV export from the log and exit")
	spreadsheetID := flag.String("spreadsheet", "", "Google Sheets spreadsheet ID to export filtered results to")
	credentialsPath := flag.String("credentials", "", "Path to Google service account credentials JSON")
	mirrorDB := flag.Bool("mirror-db", false, "Mirror committed records into Postgres after the run")
	flag.Parse()

	config.LoadEnv()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Printf("Could not load %s (%v), using defaults\n", *configPath, err)
		cfg = config.GetDefaultConfig()
	}
	if *maxPages > 0 {
		cfg.Scraper.MaxPages = *maxPages
	}

	st, err := store.Open(cfg.Output.LogPath, cfg.Output.CSVPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	if *rebuildCSV {
		if err := st.RebuildCSV(); err != nil {
			log.Fatalf("Failed to rebuild CSV export: %v", err)
		}
		log.Printf("Rebuilt %s from %s (%d records)\n",
			cfg.Output.CSVPath, cfg.Output.LogPath, st.ProcessedCount())
		return
	}

	f, err := buildFetcher(*fetcherKind, cfg)
	if err != nil {
		log.Fatalf("Failed to start fetcher: %v", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, f, st)
	p.RefreshCities = *refreshCities
	p.MaxCities = *maxCities

	stats, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("Interrupted; committed records are safe, rerun to resume")
		} else {
			log.Printf("Run ended with error: %v\n", err)
		}
	}

	log.Print(stats.Summary())

	exportResults(cfg, st, *spreadsheetID, *credentialsPath, *mirrorDB)

	notifier, err := notify.NewNotifier()
	if err != nil {
		log.Printf("Warning: telegram notifier unavailable: %v\n", err)
	} else if err := notifier.SendSummary(stats.Summary()); err != nil {
		log.Printf("Warning: %v\n", err)
	}
}

// buildFetcher constructs the requested fetcher with the configured
// throttling.
func buildFetcher(kind string, cfg *config.Config) (fetcher.Fetcher, error) {
	delay := time.Duration(cfg.Scraper.RequestDelayMs) * time.Millisecond
	jitter := time.Duration(cfg.Scraper.JitterMs) * time.Millisecond

	switch kind {
	case "colly":
		return fetcher.NewCollyFetcher(delay), nil
	default:
		throttle := fetcher.NewThrottle(delay, jitter)
		timeout := time.Duration(cfg.Scraper.PageTimeoutS) * time.Second
		return fetcher.NewRodFetcher(cfg.Scraper.Headless, timeout, throttle)
	}
}

// exportResults pushes the committed dataset to the optional sinks: a Google
// Sheet (filtered per config) and a Postgres mirror. Export failures never
// fail the run; the log already holds everything.
func exportResults(cfg *config.Config, st *store.Store, spreadsheetID, credentialsPath string, mirrorDB bool) {
	if spreadsheetID == "" && !mirrorDB {
		return
	}

	hotels, err := st.ReadAll()
	if err != nil {
		log.Printf("Warning: could not read log for export: %v\n", err)
		return
	}

	if spreadsheetID != "" {
		writer, err := sheets.NewWriter(spreadsheetID, credentialsPath)
		if err != nil {
			log.Printf("Warning: sheets export unavailable: %v\n", err)
		} else {
			filtered := filter.NewFilter(&cfg.Filters).Apply(hotels)
			log.Printf("Exporting %d of %d hotels to Google Sheets\n", len(filtered), len(hotels))
			if err := writer.WriteHotels(filtered, true); err != nil {
				log.Printf("Warning: sheets export failed: %v\n", err)
			}
		}
	}

	if mirrorDB {
		database, err := db.NewDB()
		if err != nil {
			log.Printf("Warning: database mirror unavailable: %v\n", err)
			return
		}
		defer database.Close()

		mirrored, err := database.MirrorAll(hotels)
		if err != nil {
			log.Printf("Warning: database mirror stopped after %d records: %v\n", mirrored, err)
			return
		}
		log.Printf("Mirrored %d hotels to Postgres\n", mirrored)
	}
}
