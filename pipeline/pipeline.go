package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"hotel-scraper/config"
	"hotel-scraper/discovery"
	"hotel-scraper/fetcher"
	"hotel-scraper/listing"
	"hotel-scraper/models"
	"hotel-scraper/parser"
	"hotel-scraper/retry"
	"hotel-scraper/store"
)

// Pipeline drives the three crawl stages end to end: city discovery, listing
// enumeration, detail extraction. Every committed record goes through the
// store, which makes interrupted runs resumable without revisiting finished
// hotels.
type Pipeline struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	store      *store.Store
	discoverer *discovery.Discoverer
	enumerator *listing.Enumerator
	parser     *parser.DetailParser
	retry      retry.Config

	// RefreshCities forces re-discovery even when the city cache exists.
	RefreshCities bool
	// MaxCities caps how many city listings a run walks; 0 means all.
	MaxCities int
}

// New wires a Pipeline from config plus an already-open fetcher and store.
func New(cfg *config.Config, f fetcher.Fetcher, s *store.Store) *Pipeline {
	r := retry.Config{
		MaxAttempts: cfg.Scraper.MaxRetries,
		BaseDelay:   time.Duration(cfg.Scraper.RetryBackoffMs) * time.Millisecond,
	}

	return &Pipeline{
		cfg:        cfg,
		fetcher:    f,
		store:      s,
		discoverer: discovery.NewDiscoverer(f, cfg.Scraper.StartURL, cfg.Output.CityCache),
		enumerator: listing.NewEnumerator(f, cfg.Scraper.MaxPages, r),
		parser:     parser.NewDetailParser(),
		retry:      r,
	}
}

// Run executes one full crawl. It returns ctx.Err() when interrupted;
// everything committed before the interrupt stays committed.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartedAt: time.Now()}
	defer func() { stats.FinishedAt = time.Now() }()

	cities, err := p.discoverer.Discover(p.RefreshCities)
	if err != nil {
		return stats, err
	}
	if p.MaxCities > 0 && len(cities) > p.MaxCities {
		cities = cities[:p.MaxCities]
	}

	log.Printf("Crawling %d city listings (%d hotels already committed)\n",
		len(cities), p.store.ProcessedCount())

	for _, city := range cities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Cities++
		log.Printf("City %d/%d: %s\n", stats.Cities, len(cities), cityName(city))

		err := p.enumerator.Enumerate(ctx, city, func(card models.HotelCard) bool {
			stats.CardsSeen++
			p.processCard(ctx, card, stats)
			return ctx.Err() == nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			// Enumeration problems are scoped to one city
			log.Printf("Warning: enumeration of %s ended early: %v\n", cityName(city), err)
		}

		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// processCard runs detail extraction and commit for one card. Failures are
// counted and logged but never abort the run; the card stays unprocessed and
// will be retried on the next run.
func (p *Pipeline) processCard(ctx context.Context, card models.HotelCard, stats *Stats) {
	if card.DetailURL == "" {
		log.Printf("Skipping card %q: no detail URL\n", card.Name)
		stats.DetailFailures++
		return
	}

	if p.store.IsProcessed(card.DetailURL) {
		stats.Skipped++
		return
	}

	var html string
	err := p.retry.Do(ctx, fmt.Sprintf("fetch detail %s", card.DetailURL), func() error {
		h, ferr := p.fetcher.Fetch(card.DetailURL)
		if ferr != nil {
			return ferr
		}
		html = h
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("Detail fetch failed for %s: %v\n", card.DetailURL, err)
		stats.DetailFailures++
		return
	}

	hotel := p.parser.ParseDetailPage(html, card)
	stats.FieldErrors += len(hotel.ExtractionErrors)

	if err := p.store.Append(hotel); err != nil {
		log.Printf("Failed to commit %s: %v\n", card.DetailURL, err)
		stats.DetailFailures++
		return
	}

	stats.Extracted++
	if hotel.IsPetFriendly {
		stats.PetFriendly++
	}
	if len(hotel.ExtractionErrors) > 0 {
		log.Printf("Committed %s with %d field errors\n", hotel.Name, len(hotel.ExtractionErrors))
	}
}

func cityName(city models.CityListing) string {
	if city.Label != "" {
		return city.Label
	}
	return city.URL
}
