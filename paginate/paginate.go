package paginate

import (
	"fmt"
	"net/url"
	"strconv"
)

// PageURL returns the listing URL for the given 1-based page number.
// Page 1 is the listing URL itself; later pages carry an explicit ?page=N.
func PageURL(listingURL string, page int) (string, error) {
	if page <= 1 {
		return listingURL, nil
	}

	parsedURL, err := url.Parse(listingURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	query := parsedURL.Query()
	query.Set("page", strconv.Itoa(page))
	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// PageNumber extracts the page number from a listing URL, defaulting to 1.
func PageNumber(listingURL string) int {
	parsedURL, err := url.Parse(listingURL)
	if err != nil {
		return 1
	}

	pageStr := parsedURL.Query().Get("page")
	if pageStr == "" {
		return 1
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// AbsoluteURL resolves href against base, returning "" when either is
// unparsable. Card links on listing pages are frequently relative.
func AbsoluteURL(base, href string) string {
	if href == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return baseURL.ResolveReference(ref).String()
}
