package listing

import (
	"context"
	"fmt"
	"log"
	"strings"

	"hotel-scraper/fetcher"
	"hotel-scraper/models"
	"hotel-scraper/paginate"
	"hotel-scraper/retry"

	"github.com/PuerkitoBio/goquery"
)

// Enumerator pages through one city listing and streams hotel cards to a
// consumer. Pages are fetched on demand: page N+1 is requested only after
// every card on page N has been yielded, so a run that stops early never
// paid for pages it did not consume.
type Enumerator struct {
	fetcher  fetcher.Fetcher
	maxPages int
	retry    retry.Config
}

// NewEnumerator creates an Enumerator with the given pagination cap.
func NewEnumerator(f fetcher.Fetcher, maxPages int, r retry.Config) *Enumerator {
	if maxPages < 1 {
		maxPages = 1
	}
	return &Enumerator{
		fetcher:  f,
		maxPages: maxPages,
		retry:    r,
	}
}

// Enumerate calls yield for each unique hotel card on the city listing, in
// card order. Enumeration stops when a page has no cards, the page cap is
// reached, or yield returns false. A page that keeps failing after retries
// ends this listing early with partial results; it never fails the run.
func (e *Enumerator) Enumerate(ctx context.Context, city models.CityListing, yield func(models.HotelCard) bool) error {
	seen := make(map[string]bool)

	for page := 1; page <= e.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageURL, err := paginate.PageURL(city.URL, page)
		if err != nil {
			return fmt.Errorf("bad listing URL %q: %w", city.URL, err)
		}

		var html string
		err = e.retry.Do(ctx, fmt.Sprintf("fetch %s page %d", city.Label, page), func() error {
			h, ferr := e.fetcher.Fetch(pageURL)
			if ferr != nil {
				return ferr
			}
			html = h
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Giving up on %s after page %d: %v (remaining pages skipped)\n",
				city.Label, page-1, err)
			return nil
		}

		cards, err := parseCards(html, pageURL, city)
		if err != nil {
			log.Printf("Failed to parse %s page %d: %v (remaining pages skipped)\n",
				city.Label, page, err)
			return nil
		}
		if len(cards) == 0 {
			return nil
		}

		fresh := 0
		for _, card := range cards {
			if seen[card.DetailURL] {
				continue
			}
			seen[card.DetailURL] = true
			card.Page = page
			fresh++
			if !yield(card) {
				return nil
			}
		}

		// A page made entirely of cards we already saw means the site is
		// ignoring the page parameter; stop instead of looping to the cap.
		if fresh == 0 {
			return nil
		}
	}

	return nil
}

// parseCards extracts hotel cards from one listing page.
func parseCards(html, pageURL string, city models.CityListing) ([]models.HotelCard, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var cards []models.HotelCard

	sel := doc.Find("#hotelList li")
	if sel.Length() == 0 {
		sel = doc.Find("li.cmp-card, [data-component='card']")
	}

	sel.Each(func(i int, s *goquery.Selection) {
		card := extractCard(s, pageURL, city)
		if card != nil {
			cards = append(cards, *card)
		}
	})

	return cards, nil
}

// extractCard builds a HotelCard from one card element. Cards missing both a
// name and a detail link are layout noise and are dropped.
func extractCard(s *goquery.Selection, pageURL string, city models.CityListing) *models.HotelCard {
	nameLink := s.Find("a.cmp-card__title-link").First()
	name := strings.TrimSpace(nameLink.Text())
	detailURL := paginate.AbsoluteURL(pageURL, nameLink.AttrOr("href", ""))

	if name == "" && detailURL == "" {
		return nil
	}

	card := &models.HotelCard{
		Name:      name,
		DetailURL: detailURL,
		SourceURL: city.URL,
		City:      city.Label,
		Address:   strings.TrimSpace(s.Find("address").First().Text()),
	}

	// Card price: value plus optional currency element
	priceValue := strings.TrimSpace(s.Find(".cmp-card__hotel-price-value").First().Text())
	currency := strings.TrimSpace(s.Find(".cmp-card__hotel-price-currency").First().Text())
	if priceValue != "" {
		card.CardPrice = strings.TrimSpace(priceValue + " " + currency)
	}

	card.CardRating = strings.TrimSpace(
		s.Find(".cmp-card__guest-reviews .cmp-card__rating-count").First().Text())

	s.Find(".cmp-amenity-list .cmp-amenity-list__item .cmp-image__title").Each(func(i int, a *goquery.Selection) {
		label := strings.TrimSpace(a.Text())
		if label != "" {
			card.CardAmenities = append(card.CardAmenities, label)
		}
	})

	return card
}
