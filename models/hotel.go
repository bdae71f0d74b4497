package models

import "time"

// CityListing is a top-level listing page discovered on the explore site,
// e.g. "Pet-friendly Hotels in Paris".
type CityListing struct {
	URL          string    `json:"url"`
	Label        string    `json:"label"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// HotelCard is a lightweight reference to a hotel, taken from a search
// results card. It seeds the full Hotel record and is keyed by DetailURL.
type HotelCard struct {
	Name          string   `json:"name"`
	DetailURL     string   `json:"detail_url"`
	SourceURL     string   `json:"source_url"` // city listing the card came from
	City          string   `json:"city"`
	Address       string   `json:"address,omitempty"`
	CardPrice     string   `json:"card_price,omitempty"`
	CardRating    string   `json:"card_rating,omitempty"`
	CardAmenities []string `json:"card_amenities,omitempty"`
	Page          int      `json:"page"`
}

// PetVerdict is the normalized pet-policy classification.
type PetVerdict string

const (
	PetAllowed PetVerdict = "yes"
	PetDenied  PetVerdict = "no"
	PetUnknown PetVerdict = "unknown"
)

// PetPolicy is the inferred pet policy with the text it was inferred from.
type PetPolicy struct {
	Allowed     PetVerdict `json:"allowed"`
	Fee         string     `json:"fee,omitempty"`
	WeightLimit string     `json:"weight_limit,omitempty"`
	Species     string     `json:"species_restrictions,omitempty"`
	Evidence    string     `json:"evidence_text,omitempty"`
}

// Parking holds parking info when the detail page publishes any.
type Parking struct {
	Info        string `json:"info"`
	SelfParking bool   `json:"self_parking"`
	Valet       bool   `json:"valet"`
	Fee         string `json:"fee,omitempty"`
}

// NearbyPlace is one point of interest near the hotel, in page order.
type NearbyPlace struct {
	Name     string `json:"name"`
	Distance string `json:"distance,omitempty"`
}

// Airport is one airport entry from the detail page, in page order.
type Airport struct {
	Name     string `json:"name"`
	Distance string `json:"distance,omitempty"`
}

// PriceSnapshot is the price as displayed at scrape time.
type PriceSnapshot struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Raw      string  `json:"raw"`
}

// Hotel is the terminal record appended to the store. DetailURL is the
// primary key; once appended a record is never edited in place.
// Sub-extractor failures land in ExtractionErrors instead of aborting
// the record.
type Hotel struct {
	DetailURL string `json:"detail_url"`
	HotelCode string `json:"hotel_code,omitempty"`
	Name      string `json:"name"`
	City      string `json:"city,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`

	Description string            `json:"description,omitempty"`
	Overview    map[string]string `json:"overview,omitempty"`
	Amenities   []string          `json:"amenities,omitempty"`
	Parking     *Parking          `json:"parking,omitempty"`
	Nearby      []NearbyPlace     `json:"nearby_places,omitempty"`
	Airports    []Airport         `json:"airports,omitempty"`
	Price       *PriceSnapshot    `json:"price,omitempty"`
	Rating      float64           `json:"rating,omitempty"`

	PetPolicy     PetPolicy `json:"pet_policy"`
	IsPetFriendly bool      `json:"is_pet_friendly"`

	ScrapedAt        time.Time         `json:"scraped_at"`
	ExtractionErrors map[string]string `json:"extraction_errors,omitempty"`
}
