package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"hotel-scraper/config"
	"hotel-scraper/store"
)

// routeFetcher serves canned pages by URL and can fail selected URLs.
type routeFetcher struct {
	pages   map[string]string
	failing map[string]bool
	calls   map[string]int
}

func newRouteFetcher() *routeFetcher {
	return &routeFetcher{
		pages:   make(map[string]string),
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (r *routeFetcher) Fetch(url string) (string, error) {
	r.calls[url]++
	if r.failing[url] {
		return "", errors.New("gateway timeout")
	}
	html, ok := r.pages[url]
	if !ok {
		return `<html><body><ul id="hotelList"></ul></body></html>`, nil
	}
	return html, nil
}

func (r *routeFetcher) Close() error { return nil }

const (
	exploreURL = "https://www.ihg.com/explore/pet-friendly-hotels"
	listingURL = "https://www.ihg.com/explore/testville-hotels"
	detailA    = "https://www.ihg.com/hotels/us/en/testville/aaaaa/hoteldetail"
	detailB    = "https://www.ihg.com/hotels/us/en/testville/bbbbb/hoteldetail"
)

func crawlFixture() *routeFetcher {
	f := newRouteFetcher()
	f.pages[exploreURL] = `<html><body><ul class="cmp-list">
		<li><a class="cmp-list__item-link" href="` + listingURL + `">Testville</a></li>
	</ul></body></html>`
	f.pages[listingURL] = `<html><body><ul id="hotelList">
		<li><a class="cmp-card__title-link" href="` + detailA + `">Hotel A</a></li>
		<li><a class="cmp-card__title-link" href="` + detailB + `">Hotel B</a></li>
	</ul></body></html>`
	f.pages[detailA] = `<html><body>
		<section><h3>Pet Policy</h3><p>Pets allowed. $75 fee per stay.</p></section>
	</body></html>`
	f.pages[detailB] = `<html><body><p>A quiet hotel.</p></body></html>`
	return f
}

func testConfig(dir string) *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Scraper.StartURL = exploreURL
	cfg.Scraper.MaxRetries = 1
	cfg.Scraper.RetryBackoffMs = 1
	cfg.Scraper.MaxPages = 5
	cfg.Output.CityCache = filepath.Join(dir, "cities.csv")
	cfg.Output.LogPath = filepath.Join(dir, "hotels.jsonl")
	cfg.Output.CSVPath = filepath.Join(dir, "hotels.csv")
	return cfg
}

func runOnce(t *testing.T, cfg *config.Config, f *routeFetcher) *Stats {
	t.Helper()
	st, err := store.Open(cfg.Output.LogPath, cfg.Output.CSVPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	stats, err := New(cfg, f, st).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return stats
}

func TestRunExtractsAndCommits(t *testing.T) {
	cfg := testConfig(t.TempDir())
	f := crawlFixture()

	stats := runOnce(t, cfg, f)

	if stats.Cities != 1 {
		t.Errorf("Cities = %d, want 1", stats.Cities)
	}
	if stats.CardsSeen != 2 {
		t.Errorf("CardsSeen = %d, want 2", stats.CardsSeen)
	}
	if stats.Extracted != 2 {
		t.Errorf("Extracted = %d, want 2", stats.Extracted)
	}
	if stats.PetFriendly != 1 {
		t.Errorf("PetFriendly = %d, want 1 (only Hotel A declares pets allowed)", stats.PetFriendly)
	}
	if stats.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0 on a fresh run", stats.Skipped)
	}
}

func TestSecondRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t.TempDir())
	f := crawlFixture()

	first := runOnce(t, cfg, f)
	if first.Extracted != 2 {
		t.Fatalf("first run Extracted = %d, want 2", first.Extracted)
	}

	second := runOnce(t, cfg, f)

	if second.Extracted != 0 {
		t.Errorf("second run Extracted = %d, want 0", second.Extracted)
	}
	if second.Skipped != 2 {
		t.Errorf("second run Skipped = %d, want 2", second.Skipped)
	}
	if f.calls[detailA] != 1 || f.calls[detailB] != 1 {
		t.Errorf("detail fetches = %d/%d, want 1/1 (committed hotels are never refetched)",
			f.calls[detailA], f.calls[detailB])
	}
}

func TestInterruptedRunResumesWhereItStopped(t *testing.T) {
	cfg := testConfig(t.TempDir())

	// First run: Hotel B's detail page keeps failing, so only A commits
	f := crawlFixture()
	f.failing[detailB] = true

	first := runOnce(t, cfg, f)
	if first.Extracted != 1 {
		t.Fatalf("first run Extracted = %d, want 1", first.Extracted)
	}
	if first.DetailFailures != 1 {
		t.Fatalf("first run DetailFailures = %d, want 1", first.DetailFailures)
	}

	// Second run against the same files: B recovers
	f.failing[detailB] = false
	second := runOnce(t, cfg, f)

	if second.Skipped != 1 {
		t.Errorf("second run Skipped = %d, want 1 (Hotel A already committed)", second.Skipped)
	}
	if second.Extracted != 1 {
		t.Errorf("second run Extracted = %d, want 1 (Hotel B retried)", second.Extracted)
	}

	// Exactly one committed record per hotel across both runs
	st, err := store.Open(cfg.Output.LogPath, cfg.Output.CSVPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()
	if got := st.ProcessedCount(); got != 2 {
		t.Errorf("ProcessedCount() = %d, want 2", got)
	}
}

func TestCancelledRunStopsEarly(t *testing.T) {
	cfg := testConfig(t.TempDir())
	f := crawlFixture()

	st, err := store.Open(cfg.Output.LogPath, cfg.Output.CSVPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(cfg, f, st).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestStatsSummaryMentionsCounters(t *testing.T) {
	cfg := testConfig(t.TempDir())
	stats := runOnce(t, cfg, crawlFixture())

	summary := stats.Summary()
	for _, want := range []string{"Cities crawled", "Hotels extracted", "Pet friendly"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q:\n%s", want, summary)
		}
	}
}
