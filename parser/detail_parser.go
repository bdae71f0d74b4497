package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hotel-scraper/models"

	"github.com/PuerkitoBio/goquery"
)

// DetailParser extracts a full hotel record from a detail page. Every field
// group has its own sub-extractor returning (value, error); the builder folds
// the results and collects failures into Hotel.ExtractionErrors. Detail pages
// routinely omit whole widgets, so partial records are the normal case, not
// an error state.
type DetailParser struct{}

// NewDetailParser creates a new DetailParser instance.
func NewDetailParser() *DetailParser {
	return &DetailParser{}
}

// ParseDetailPage builds a Hotel from the detail page HTML. It never fails:
// the record always carries at least the detail URL and name seeded from the
// card, with per-field failures recorded in ExtractionErrors.
func (dp *DetailParser) ParseDetailPage(html string, card models.HotelCard) *models.Hotel {
	hotel := &models.Hotel{
		DetailURL:        card.DetailURL,
		HotelCode:        HotelCodeFromURL(card.DetailURL),
		Name:             card.Name,
		City:             card.City,
		Address:          card.Address,
		Amenities:        card.CardAmenities,
		ScrapedAt:        time.Now().UTC(),
		ExtractionErrors: make(map[string]string),
	}
	hotel.PetPolicy = models.PetPolicy{Allowed: models.PetUnknown}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		hotel.ExtractionErrors["document"] = err.Error()
		return hotel
	}

	if v, err := dp.extractDescription(doc); err != nil {
		hotel.ExtractionErrors["description"] = err.Error()
	} else {
		hotel.Description = v
	}

	if v, err := dp.extractOverview(doc); err != nil {
		hotel.ExtractionErrors["overview"] = err.Error()
	} else {
		hotel.Overview = v
	}

	// Detail-page amenities replace the card-level list only when found;
	// otherwise the coarser card amenities are kept.
	if v, err := dp.extractAmenities(doc); err != nil {
		hotel.ExtractionErrors["amenities"] = err.Error()
	} else {
		hotel.Amenities = v
	}

	if v, err := dp.extractParking(doc); err != nil {
		hotel.ExtractionErrors["parking"] = err.Error()
	} else {
		hotel.Parking = v
	}

	if v, err := dp.extractNearby(doc); err != nil {
		hotel.ExtractionErrors["nearby"] = err.Error()
	} else {
		hotel.Nearby = v
	}

	if v, err := dp.extractAirports(doc); err != nil {
		hotel.ExtractionErrors["airports"] = err.Error()
	} else {
		hotel.Airports = v
	}

	if v, err := dp.extractPhone(doc); err != nil {
		hotel.ExtractionErrors["phone"] = err.Error()
	} else {
		hotel.Phone = v
	}

	if v, err := dp.extractRating(doc); err != nil {
		if r := parseRatingText(card.CardRating); r > 0 {
			hotel.Rating = r
		} else {
			hotel.ExtractionErrors["rating"] = err.Error()
		}
	} else {
		hotel.Rating = v
	}

	if v, err := dp.extractPrice(doc); err != nil {
		if p := parsePriceText(card.CardPrice); p != nil {
			hotel.Price = p
		} else {
			hotel.ExtractionErrors["price"] = err.Error()
		}
	} else {
		hotel.Price = v
	}

	if policy, err := InferPetPolicy(doc); err != nil {
		hotel.ExtractionErrors["pet_policy"] = err.Error()
	} else {
		hotel.PetPolicy = policy
	}
	hotel.IsPetFriendly = hotel.PetPolicy.Allowed == models.PetAllowed

	return hotel
}

// hotelCodeRe matches the 5-character property code IHG embeds in detail
// URLs, e.g. /hotels/us/en/miami/miaep/hoteldetail.
var hotelCodeRe = regexp.MustCompile(`^[a-z0-9]{5}$`)

// HotelCodeFromURL derives the property code from a detail URL, falling back
// to the last meaningful path segment.
func HotelCodeFromURL(detailURL string) string {
	if detailURL == "" {
		return ""
	}
	u, err := url.Parse(detailURL)
	if err != nil {
		return ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	// The code sits right before the hoteldetail segment; city names can be
	// 5 characters too, so position beats shape.
	for i, p := range parts {
		if strings.ToLower(p) == "hoteldetail" && i > 0 {
			return strings.ToLower(parts[i-1])
		}
	}
	for _, p := range parts {
		if hotelCodeRe.MatchString(strings.ToLower(p)) {
			return strings.ToLower(p)
		}
	}
	for i := len(parts) - 1; i >= 0; i-- {
		p := strings.ToLower(parts[i])
		if p != "" && p != "hoteldetail" && p != "amenities" {
			return p
		}
	}
	return ""
}

// extractDescription finds the main descriptive text block: known containers
// first, then the longest paragraph on the page.
func (dp *DetailParser) extractDescription(doc *goquery.Document) (string, error) {
	candidates := []string{
		"div.hotel-description, div.description, .hotel-overview, .vx-description, .property-description",
		"section#overview, section.overview",
		".cmp-text, .ihg-copy, .content-copy",
	}

	for _, sel := range candidates {
		best := ""
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			t := strings.TrimSpace(s.Text())
			if len(t) > 120 && len(t) > len(best) {
				best = t
			}
		})
		if best != "" {
			return best, nil
		}
	}

	best := ""
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if len(t) > len(best) {
			best = t
		}
	})
	if len(best) > 120 {
		return best, nil
	}

	return "", fmt.Errorf("no description found")
}

// extractOverview collects key/value rows from the overview table (dt/dd
// pairs, with a generic label/value fallback).
func (dp *DetailParser) extractOverview(doc *goquery.Document) (map[string]string, error) {
	data := make(map[string]string)

	doc.Find("dl").Each(func(i int, dl *goquery.Selection) {
		dts := dl.Find("dt")
		dds := dl.Find("dd")
		if dts.Length() == 0 || dts.Length() != dds.Length() {
			return
		}
		dts.Each(func(j int, dt *goquery.Selection) {
			k := strings.TrimSpace(dt.Text())
			v := strings.TrimSpace(dds.Eq(j).Text())
			if k != "" && v != "" {
				data[k] = v
			}
		})
	})

	if len(data) == 0 {
		doc.Find(".overview tr, .kv tr, table.overview tr").Each(func(i int, tr *goquery.Selection) {
			k := strings.TrimSpace(tr.Find("th, .label, .key").First().Text())
			v := strings.TrimSpace(tr.Find("td, .value").First().Text())
			if k != "" && v != "" {
				data[k] = v
			}
		})
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no overview table found")
	}
	return data, nil
}

// extractAmenities collects amenity labels from the known containers,
// deduplicated with page order preserved.
func (dp *DetailParser) extractAmenities(doc *goquery.Document) ([]string, error) {
	selectors := []string{
		".amenities-list li",
		".cmp-amenity-list .cmp-image__title",
		".vx-highlight-items .vx-highlight-item .amenity-title",
		".amenities .amenity, .amenities li",
		"[data-component='amenities'] li",
	}

	seen := make(map[string]bool)
	var items []string
	for _, sel := range selectors {
		doc.Find(sel).Each(func(i int, s *goquery.Selection) {
			t := strings.TrimSpace(s.Text())
			if t != "" && !seen[t] {
				seen[t] = true
				items = append(items, t)
			}
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no amenities found")
	}
	return items, nil
}

var parkingFeeRe = regexp.MustCompile(`\$\s*\d+(?:\.\d{2})?`)

// extractParking locates the parking section and classifies what it offers.
func (dp *DetailParser) extractParking(doc *goquery.Document) (*models.Parking, error) {
	text, err := collectSectionText(doc, []string{"parking", "valet", "self-parking"})
	if err != nil {
		return nil, fmt.Errorf("no parking section found")
	}

	lower := strings.ToLower(text)
	p := &models.Parking{
		Info:        text,
		SelfParking: strings.Contains(lower, "self"),
		Valet:       strings.Contains(lower, "valet"),
	}
	if m := parkingFeeRe.FindString(text); m != "" {
		p.Fee = strings.ReplaceAll(m, " ", "")
	}
	return p, nil
}

// distanceRe pulls a trailing distance out of a nearby/airport line,
// e.g. "Eiffel Tower - 2.3 mi" or "CDG Airport (14 km)".
var distanceRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mi|miles?|km|kilometers?)\b`)

// extractNearby returns nearby points of interest in page order.
func (dp *DetailParser) extractNearby(doc *goquery.Document) ([]models.NearbyPlace, error) {
	lines, err := collectSectionLines(doc, []string{"nearby", "attractions", "points of interest"})
	if err != nil {
		return nil, fmt.Errorf("no nearby section found")
	}

	var places []models.NearbyPlace
	for _, line := range lines {
		name, distance := splitDistance(line)
		if name != "" {
			places = append(places, models.NearbyPlace{Name: name, Distance: distance})
		}
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("no nearby places found")
	}
	return places, nil
}

// extractAirports returns airport entries in page order.
func (dp *DetailParser) extractAirports(doc *goquery.Document) ([]models.Airport, error) {
	lines, err := collectSectionLines(doc, []string{"airport", "airports", "shuttle"})
	if err != nil {
		return nil, fmt.Errorf("no airport section found")
	}

	var airports []models.Airport
	for _, line := range lines {
		name, distance := splitDistance(line)
		if name != "" {
			airports = append(airports, models.Airport{Name: name, Distance: distance})
		}
	}
	if len(airports) == 0 {
		return nil, fmt.Errorf("no airports found")
	}
	return airports, nil
}

// splitDistance separates "Name - 2.3 mi" into name and distance parts.
func splitDistance(line string) (string, string) {
	m := distanceRe.FindStringIndex(line)
	if m == nil {
		return strings.Trim(line, " -—•\t"), ""
	}
	name := strings.Trim(line[:m[0]], " -—•(\t")
	distance := strings.Trim(line[m[0]:m[1]], " ")
	return name, distance
}

var phoneRe = regexp.MustCompile(`\+?\d[\d\-\(\) \.]{7,}\d`)

// extractPhone prefers tel: links, then scans visible text for a
// phone-shaped token.
func (dp *DetailParser) extractPhone(doc *goquery.Document) (string, error) {
	phone := ""
	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		num := strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		if num != "" {
			phone = num
			return false
		}
		return true
	})
	if phone != "" {
		return phone, nil
	}

	if m := phoneRe.FindString(doc.Find("body").Text()); m != "" {
		return strings.TrimSpace(m), nil
	}
	return "", fmt.Errorf("no phone number found")
}

var ratingRe = regexp.MustCompile(`(\d(?:\.\d)?)\s*(?:/\s*5|out of 5|stars?)`)

// extractRating reads the guest rating from structured markup, then from a
// "X out of 5" pattern anywhere on the page.
func (dp *DetailParser) extractRating(doc *goquery.Document) (float64, error) {
	for _, sel := range []string{"[itemprop='ratingValue']", ".cmp-card__rating-count", "[data-testid='rating']"} {
		if r := parseRatingText(doc.Find(sel).First().Text()); r > 0 {
			return r, nil
		}
	}

	if m := ratingRe.FindStringSubmatch(doc.Find("body").Text()); len(m) > 1 {
		if r, err := strconv.ParseFloat(m[1], 64); err == nil && r > 0 && r <= 5 {
			return r, nil
		}
	}
	return 0, fmt.Errorf("no rating found")
}

// parseRatingText parses a bare rating value like "4.5" or "4.5/5".
func parseRatingText(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if m := ratingRe.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(strings.Split(text, "/")[0]), 64)
	if err != nil || r <= 0 || r > 5 {
		return 0
	}
	return r
}

var priceRe = regexp.MustCompile(`([\$€£¥])\s*([\d]{1,3}(?:[,\s]\d{3})*(?:\.[\d]+)?)`)

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// extractPrice reads the displayed nightly price from the page.
func (dp *DetailParser) extractPrice(doc *goquery.Document) (*models.PriceSnapshot, error) {
	for _, sel := range []string{".cmp-card__hotel-price-value", "[data-testid='price']", ".price-value"} {
		if p := parsePriceText(doc.Find(sel).First().Text()); p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no price found")
}

// parsePriceText parses a displayed price like "$189" or "189 USD" into a
// snapshot, returning nil when nothing price-shaped is present.
func parsePriceText(text string) *models.PriceSnapshot {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if m := priceRe.FindStringSubmatch(text); len(m) >= 3 {
		raw := strings.ReplaceAll(strings.ReplaceAll(m[2], ",", ""), " ", "")
		amount, err := strconv.ParseFloat(raw, 64)
		if err == nil && amount > 0 {
			currency := currencySymbols[m[1]]
			if currency == "" {
				currency = m[1]
			}
			return &models.PriceSnapshot{Amount: amount, Currency: currency, Raw: text}
		}
	}

	// "189 USD" style
	codeRe := regexp.MustCompile(`([\d]{1,3}(?:[,\s]\d{3})*(?:\.[\d]+)?)\s*(USD|EUR|GBP|JPY)`)
	if m := codeRe.FindStringSubmatch(text); len(m) >= 3 {
		raw := strings.ReplaceAll(strings.ReplaceAll(m[1], ",", ""), " ", "")
		amount, err := strconv.ParseFloat(raw, 64)
		if err == nil && amount > 0 {
			return &models.PriceSnapshot{Amount: amount, Currency: m[2], Raw: text}
		}
	}

	return nil
}

// collectSectionText returns the text of the longest section whose content
// mentions one of the keywords. Layout drift silently emptying a section is
// expected; the caller converts the error into a field-level annotation.
func collectSectionText(doc *goquery.Document, keywords []string) (string, error) {
	best := ""
	doc.Find("section, .section, .cmp-section, .content-section, .accordion, .accordion-item").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		lower := strings.ToLower(text)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				if len(text) > len(best) {
					best = text
				}
				return
			}
		}
	})

	if best == "" {
		return "", fmt.Errorf("no section matched %v", keywords)
	}
	if len(best) > 1200 {
		best = best[:1200]
	}
	return normalizeWhitespaceLines(best), nil
}

// collectSectionLines returns the non-empty lines of a matched section.
func collectSectionLines(doc *goquery.Document, keywords []string) ([]string, error) {
	text, err := collectSectionText(doc, keywords)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.Trim(ln, " -—•\t")
		if ln == "" {
			continue
		}
		// Drop the heading line itself
		lower := strings.ToLower(ln)
		skip := false
		for _, k := range keywords {
			if lower == k || lower == k+":" {
				skip = true
				break
			}
		}
		if !skip {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("section matched %v but had no content lines", keywords)
	}
	return lines, nil
}

// normalizeWhitespaceLines collapses runs of spaces within each line while
// keeping line structure (sections are split into entries by line).
func normalizeWhitespaceLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
