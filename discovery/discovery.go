package discovery

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hotel-scraper/fetcher"
	"hotel-scraper/models"
	"hotel-scraper/paginate"

	"github.com/PuerkitoBio/goquery"
)

// Discoverer locates the top-level city listing URLs on the explore page and
// caches them so later runs skip the fetch entirely.
type Discoverer struct {
	fetcher   fetcher.Fetcher
	startURL  string
	cachePath string
}

// NewDiscoverer creates a Discoverer reading/writing the given cache file.
func NewDiscoverer(f fetcher.Fetcher, startURL, cachePath string) *Discoverer {
	return &Discoverer{
		fetcher:   f,
		startURL:  startURL,
		cachePath: cachePath,
	}
}

// Discover returns the city listings, from cache when available. A fetch
// failure with no usable cache is fatal: without listings there is no work.
func (d *Discoverer) Discover(refresh bool) ([]models.CityListing, error) {
	if !refresh {
		cities, err := d.loadCache()
		if err == nil && len(cities) > 0 {
			log.Printf("Loaded %d city listings from cache %s\n", len(cities), d.cachePath)
			return cities, nil
		}
	}

	log.Printf("Discovering city listings from %s\n", d.startURL)
	html, err := d.fetcher.Fetch(d.startURL)
	if err != nil {
		return nil, fmt.Errorf("city discovery failed: %w", err)
	}

	cities, err := parseCityLinks(html, d.startURL)
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("no city listings found on %s", d.startURL)
	}

	if err := d.saveCache(cities); err != nil {
		// The run can proceed on the in-memory result; only caching is lost
		log.Printf("Warning: failed to write city cache: %v\n", err)
	}

	return cities, nil
}

// parseCityLinks extracts city listing links from the explore page HTML,
// deduplicated by URL with document order preserved.
func parseCityLinks(html, baseURL string) ([]models.CityListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	var cities []models.CityListing
	now := time.Now().UTC()

	doc.Find("ul.cmp-list a.cmp-list__item-link").Each(func(i int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		label := strings.TrimSpace(s.Text())

		u := paginate.AbsoluteURL(baseURL, href)
		if u == "" || seen[u] {
			return
		}
		if !isListingURL(u) {
			return
		}

		seen[u] = true
		cities = append(cities, models.CityListing{
			URL:          u,
			Label:        label,
			DiscoveredAt: now,
		})
	})

	return cities, nil
}

// isListingURL filters the explore page's mixed link set down to city/category
// collection pages, skipping brand roots and outbound links.
func isListingURL(u string) bool {
	lower := strings.ToLower(u)
	if !strings.Contains(lower, "ihg.com") {
		return false
	}
	return strings.Contains(lower, "hotels") ||
		strings.Contains(lower, "/explore/") ||
		strings.Contains(lower, "/destinations") ||
		strings.Contains(lower, "pet")
}

// loadCache reads the CSV cache written by a previous run.
func (d *Discoverer) loadCache() ([]models.CityListing, error) {
	f, err := os.Open(d.cachePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read city cache: %w", err)
	}

	var cities []models.CityListing
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue // header or malformed row
		}
		cities = append(cities, models.CityListing{URL: row[0], Label: row[1]})
	}
	return cities, nil
}

// saveCache writes the discovered listings as a url,label CSV.
func (d *Discoverer) saveCache(cities []models.CityListing) error {
	if err := os.MkdirAll(filepath.Dir(d.cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	f, err := os.Create(d.cachePath)
	if err != nil {
		return fmt.Errorf("failed to create city cache: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"url", "label"}); err != nil {
		return fmt.Errorf("failed to write cache header: %w", err)
	}
	for _, c := range cities {
		if err := w.Write([]string{c.URL, c.Label}); err != nil {
			return fmt.Errorf("failed to write cache row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
