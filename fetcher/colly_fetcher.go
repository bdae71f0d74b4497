package fetcher

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher implements the Fetcher interface using colly. It only sees
// server-rendered HTML, so it is a fallback for environments without Chrome;
// fields that IHG renders client-side will come back absent.
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a CollyFetcher with rate limiting applied at the
// collector level.
func NewCollyFetcher(delay time.Duration) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*ihg.*",
		Parallelism: 1,
		Delay:       delay,
		RandomDelay: delay / 2,
	})

	return &CollyFetcher{collector: c}
}

// Fetch retrieves the HTML content of a single URL.
func (cf *CollyFetcher) Fetch(url string) (string, error) {
	var html string
	var fetchErr error

	c := cf.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("request to %s failed: %w", r.Request.URL, err)
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("failed to visit URL: %w", err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if html == "" {
		return "", fmt.Errorf("empty response from %s", url)
	}
	return html, nil
}

// Close implements the Fetcher interface; colly holds no long-lived resources.
func (cf *CollyFetcher) Close() error {
	return nil
}
