package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"hotel-scraper/models"
	"hotel-scraper/retry"
)

// fakeFetcher serves canned pages and can fail a URL a set number of times.
type fakeFetcher struct {
	pages    map[string]string
	failures map[string]int
	calls    []string
}

func (f *fakeFetcher) Fetch(url string) (string, error) {
	f.calls = append(f.calls, url)
	if n, ok := f.failures[url]; ok && n > 0 {
		f.failures[url] = n - 1
		return "", errors.New("connection reset")
	}
	html, ok := f.pages[url]
	if !ok {
		return listingHTML(), nil // page with no cards
	}
	return html, nil
}

func (f *fakeFetcher) Close() error { return nil }

// listingHTML builds a listing page containing cards with the given links.
func listingHTML(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul id="hotelList">`)
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<li><a class="cmp-card__title-link" href=%q>Hotel %s</a></li>`, href, href)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

var testCity = models.CityListing{
	URL:   "https://www.ihg.com/explore/austin-hotels",
	Label: "Austin",
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond}
}

func collectCards(t *testing.T, e *Enumerator, city models.CityListing) []models.HotelCard {
	t.Helper()
	var cards []models.HotelCard
	err := e.Enumerate(context.Background(), city, func(c models.HotelCard) bool {
		cards = append(cards, c)
		return true
	})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	return cards
}

func TestEnumerateWalksPagesUntilEmpty(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://www.ihg.com/explore/austin-hotels":        listingHTML("/h/a", "/h/b"),
		"https://www.ihg.com/explore/austin-hotels?page=2": listingHTML("/h/c"),
		// page 3 comes back empty and ends the walk
	}}

	cards := collectCards(t, NewEnumerator(f, 10, fastRetry()), testCity)

	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}
	if cards[0].DetailURL != "https://www.ihg.com/h/a" {
		t.Errorf("cards[0].DetailURL = %q", cards[0].DetailURL)
	}
	if cards[2].Page != 2 {
		t.Errorf("cards[2].Page = %d, want 2", cards[2].Page)
	}
	if cards[0].City != "Austin" {
		t.Errorf("cards[0].City = %q, want Austin", cards[0].City)
	}
	if len(f.calls) != 3 {
		t.Errorf("fetched %d pages, want 3 (stop on first empty page)", len(f.calls))
	}
}

func TestEnumerateDeduplicatesAcrossPages(t *testing.T) {
	// /h/b appears on both pages; it must be yielded once
	f := &fakeFetcher{pages: map[string]string{
		"https://www.ihg.com/explore/austin-hotels":        listingHTML("/h/a", "/h/b"),
		"https://www.ihg.com/explore/austin-hotels?page=2": listingHTML("/h/b", "/h/c"),
	}}

	cards := collectCards(t, NewEnumerator(f, 10, fastRetry()), testCity)

	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3 deduplicated", len(cards))
	}
	seen := make(map[string]int)
	for _, c := range cards {
		seen[c.DetailURL]++
	}
	for u, n := range seen {
		if n != 1 {
			t.Errorf("card %s yielded %d times, want 1", u, n)
		}
	}
}

func TestEnumerateStopsWhenPageRepeats(t *testing.T) {
	// The site ignores ?page= and returns the same cards forever
	same := listingHTML("/h/a", "/h/b")
	f := &fakeFetcher{pages: map[string]string{
		"https://www.ihg.com/explore/austin-hotels":        same,
		"https://www.ihg.com/explore/austin-hotels?page=2": same,
		"https://www.ihg.com/explore/austin-hotels?page=3": same,
	}}

	cards := collectCards(t, NewEnumerator(f, 100, fastRetry()), testCity)

	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2", len(cards))
	}
	if len(f.calls) != 2 {
		t.Errorf("fetched %d pages, want 2 (stop when a page adds nothing)", len(f.calls))
	}
}

func TestEnumerateLazyStopOnYieldFalse(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://www.ihg.com/explore/austin-hotels":        listingHTML("/h/a", "/h/b"),
		"https://www.ihg.com/explore/austin-hotels?page=2": listingHTML("/h/c"),
	}}

	var got []models.HotelCard
	err := NewEnumerator(f, 10, fastRetry()).Enumerate(context.Background(), testCity,
		func(c models.HotelCard) bool {
			got = append(got, c)
			return false // consumer is done after the first card
		})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	if len(got) != 1 {
		t.Errorf("got %d cards, want 1", len(got))
	}
	if len(f.calls) != 1 {
		t.Errorf("fetched %d pages, want 1 (page 2 must never be requested)", len(f.calls))
	}
}

func TestEnumerateTransientFailureRecovered(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"https://www.ihg.com/explore/austin-hotels": listingHTML("/h/a"),
		},
		failures: map[string]int{
			"https://www.ihg.com/explore/austin-hotels": 1, // fails once, then succeeds
		},
	}

	cards := collectCards(t, NewEnumerator(f, 1, fastRetry()), testCity)

	if len(cards) != 1 {
		t.Errorf("got %d cards, want 1 after retry", len(cards))
	}
}

func TestEnumeratePersistentFailureYieldsPartialResults(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"https://www.ihg.com/explore/austin-hotels": listingHTML("/h/a", "/h/b"),
		},
		failures: map[string]int{
			"https://www.ihg.com/explore/austin-hotels?page=2": 10, // beyond retry budget
		},
	}

	cards := collectCards(t, NewEnumerator(f, 10, fastRetry()), testCity)

	if len(cards) != 2 {
		t.Errorf("got %d cards, want the 2 from page 1", len(cards))
	}
}

func TestEnumerateHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{pages: map[string]string{
		"https://www.ihg.com/explore/austin-hotels": listingHTML("/h/a"),
	}}

	err := NewEnumerator(f, 10, fastRetry()).Enumerate(ctx, testCity,
		func(models.HotelCard) bool { return true })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Enumerate() error = %v, want context.Canceled", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("fetched %d pages after cancellation, want 0", len(f.calls))
	}
}
